// Package toolchain declares the seams between compis's driver logic and
// the C compiler / linker backend: invoking clang to compile objects and
// archive/link them. Clang codegen and LLD linking themselves are out of
// scope (spec.md §1 Non-goals: "no LLVM/LLD bindings") — these interfaces
// exist so internal/sysroot and the (also out-of-scope) package builder can
// be written, tested, and driven against a fake without depending on a real
// toolchain being installed.
package toolchain

import "context"

// CompileJob describes one source-to-object compile invocation.
type CompileJob struct {
	Source  string   // path to the source file (.c, .cc, .S)
	Object  string   // output object path
	Flags   []string // language-specific flags (CFLAGS/CXXFLAGS/ASFLAGS)
	Sysroot string    // --sysroot path, if any
}

// Clang is the seam to a C/C++/asm compiler invocation. The real
// implementation (cmd/compis's execClang) execs the clang binary, the
// bundled {coroot}/bin/clang or else the one on $PATH; tests substitute a
// fake that just touches the output path.
type Clang interface {
	Compile(ctx context.Context, job CompileJob) error
}

// Linker is the seam to static archiving and final linking. Archive
// produces a .a from a set of object files; Link produces an executable or
// shared object from objects plus libraries.
type Linker interface {
	Archive(ctx context.Context, objects []string, archive string) error
	Link(ctx context.Context, objects, libs []string, libDirs []string, out string) error
}
