// Real, out-of-process implementations of the internal/toolchain and
// internal/bootstrap seams: spec.md §1 puts "LLVM/LLD bindings" and "the
// bundled-tar extractor" out of scope ("consumed as black-box tool
// invocations"), so the driver's job is only to find and exec the right
// binary with the right flags, never to implement codegen or archive
// extraction itself — distri's own internal/build/build.go takes the same
// stance toward `tar` ("TODO(later): extract in pure Go... shell out for
// now").
package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/compis-build/compis/internal/bootstrap"
	"github.com/compis-build/compis/internal/toolchain"
)

// toolPath resolves name to a concrete binary: {coroot}/bin/{name} if
// present (a bundled bootstrap toolchain), otherwise whatever exec.LookPath
// finds on $PATH.
func toolPath(coroot, name string) string {
	bundled := filepath.Join(coroot, "bin", name)
	if _, err := os.Stat(bundled); err == nil {
		return bundled
	}
	if found, err := exec.LookPath(name); err == nil {
		return found
	}
	return name // let exec.Command surface the "not found" error itself
}

// runTool execs path with args, inheriting stdio, the same passthrough
// distri's own multicall entrypoints use for external tools.
func runTool(ctx context.Context, path string, args []string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// execClang implements toolchain.Clang by shelling out to a real clang
// binary, one compile per CompileJob.
type execClang struct {
	path string
}

func (c execClang) Compile(ctx context.Context, job toolchain.CompileJob) error {
	args := []string{"-c", job.Source, "-o", job.Object}
	if job.Sysroot != "" {
		args = append(args, "--sysroot="+job.Sysroot)
	}
	args = append(args, job.Flags...)
	return runTool(ctx, c.path, args)
}

// execLinker implements toolchain.Linker via llvm-ar (archiving) and clang
// as a linker driver (final link), matching how distri's own build recipes
// invoke cc/ar rather than driving LLD directly.
type execLinker struct {
	arPath    string
	clangPath string
}

func (l execLinker) Archive(ctx context.Context, objects []string, archive string) error {
	args := append([]string{"rcs", archive}, objects...)
	return runTool(ctx, l.arPath, args)
}

func (l execLinker) Link(ctx context.Context, objects, libs, libDirs []string, out string) error {
	var args []string
	args = append(args, objects...)
	for _, dir := range libDirs {
		args = append(args, "-L"+dir)
	}
	for _, lib := range libs {
		args = append(args, "-l"+lib)
	}
	args = append(args, "-o", out)
	return runTool(ctx, l.clangPath, args)
}

// execExtractor implements bootstrap.Extractor via the `tar` binary.
type execExtractor struct{}

func (execExtractor) Extract(ctx context.Context, archive, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	return runTool(ctx, "tar", []string{"-xf", archive, "-C", destDir})
}

var (
	_ toolchain.Clang     = execClang{}
	_ toolchain.Linker    = execLinker{}
	_ bootstrap.Extractor = execExtractor{}
)
