// Package target implements triple parsing and the per-target directory
// naming backing spec.md §4.D's sysroot layout; it holds no table of known
// targets beyond the Sys names declared below, which Parse accepts. The
// distillation references targets constantly but never specifies triple
// parsing; reconstructed from original_source/src/target.c and
// targets.h (arch/sys/sysver fields, "arch-sys[.sysver]" triple grammar,
// per-sys syslib applicability).
package target

import (
	"fmt"
	"strings"
)

// Arch is a target CPU architecture name, e.g. "x86_64", "aarch64".
type Arch string

// Sys is a target operating system name, or "none" for freestanding.
type Sys string

const (
	SysNone  Sys = "none"
	SysLinux Sys = "linux"
	SysMacOS Sys = "macos"
	SysWASI  Sys = "wasi"
)

// BuildMode selects the optimization/debug posture of a build.
type BuildMode int

const (
	ModeDebug BuildMode = iota
	ModeOpt
)

func (m BuildMode) String() string {
	if m == ModeOpt {
		return "opt"
	}
	return "debug"
}

// Target is a parsed "arch-sys[.sysver]" triple (original_source/src/target.c
// target_t).
type Target struct {
	Arch   Arch
	Sys    Sys
	SysVer string
}

// Parse parses a triple of the form "arch-sys" or "arch-sys.sysver", e.g.
// "aarch64-linux" or "x86_64-macos.13".
func Parse(triple string) (Target, error) {
	dash := strings.IndexByte(triple, '-')
	if dash < 0 {
		return Target{}, fmt.Errorf("invalid target triple %q: missing '-'", triple)
	}
	arch := triple[:dash]
	rest := triple[dash+1:]
	if arch == "" || rest == "" {
		return Target{}, fmt.Errorf("invalid target triple %q: empty arch or sys", triple)
	}
	sys := rest
	sysver := ""
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		sys = rest[:dot]
		sysver = rest[dot+1:]
	}
	switch Sys(sys) {
	case SysNone, SysLinux, SysMacOS, SysWASI:
	default:
		return Target{}, fmt.Errorf("invalid target triple %q: unknown sys %q", triple, sys)
	}
	return Target{Arch: Arch(arch), Sys: Sys(sys), SysVer: sysver}, nil
}

// String renders the canonical triple form.
func (t Target) String() string {
	s := string(t.Arch) + "-" + string(t.Sys)
	if t.SysVer != "" {
		s += "." + t.SysVer
	}
	return s
}

// Dirname is the on-disk directory name component derived from the target
// plus build qualifiers, e.g. "aarch64-linux-lto-debug" (spec.md §4.D).
func (t Target) Dirname(mode BuildMode, lto bool) string {
	s := t.String()
	if lto {
		s += "-lto"
	}
	if mode == ModeDebug {
		s += "-debug"
	}
	return s
}

// Syslib identifies one of the system libraries a sysroot may provide.
type Syslib int

const (
	SyslibC Syslib = iota
	SyslibRT
	SyslibUnwind
	SyslibCXXABI
	SyslibCXX
)

// HasSyslib reports whether t's system requires lib at all
// (original_source/src/build_sysroot.c: target_has_syslib), e.g. SYS_none
// targets never link libc, and WASI has no unwinder.
func (t Target) HasSyslib(lib Syslib) bool {
	switch lib {
	case SyslibC:
		return t.Sys != SysNone
	case SyslibUnwind:
		return t.Sys != SysWASI && t.Sys != SysNone
	case SyslibCXXABI, SyslibCXX:
		return t.Sys != SysNone
	case SyslibRT:
		return t.Sys != SysNone
	}
	return false
}

// Filename is the on-disk archive/library filename for lib under t
// (original_source/src/build_sysroot.c: syslib_filename).
func (t Target) Filename(lib Syslib) string {
	switch lib {
	case SyslibRT:
		return "librt.a"
	case SyslibCXX:
		return "libc++.a"
	case SyslibCXXABI:
		return "libc++abi.a"
	case SyslibUnwind:
		return "libunwind.a"
	case SyslibC:
		switch t.Sys {
		case SysMacOS:
			return "libSystem.tbd"
		case SysLinux, SysWASI:
			return "libc.a"
		}
	}
	return "lib" + string(rune(lib)) + ".a"
}
