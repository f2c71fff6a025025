package sysroot

import "github.com/compis-build/compis/internal/target"

// Component is one of the five pieces of a sysroot (spec.md §4.D). "base"
// in original_source/src/build_sysroot.c bundles Sysinc+LibC+LibRT under
// one buildmark; libcxx bundles the remaining two under a second. Compis
// keeps that same two-buildmark grouping (see baseComponents/cxxComponents
// below): cache state is recorded per group, not per component, so a
// group is rebuilt as a whole.
type Component int

const (
	Sysinc Component = iota
	LibC
	LibRT
	LibUnwind
	LibCXX
)

func (c Component) String() string {
	switch c {
	case Sysinc:
		return "sysinc"
	case LibC:
		return "libc"
	case LibRT:
		return "librt"
	case LibUnwind:
		return "libunwind"
	case LibCXX:
		return "libcxx"
	}
	return "unknown"
}

// baseComponents are built (and marked built) together, before any
// C++-only component.
var baseComponents = []Component{Sysinc, LibC, LibRT}

// cxxComponents are only needed when the package being built uses C++.
var cxxComponents = []Component{LibUnwind, LibCXX}

// srcListKey is the (arch, sys, sysver) lookup key for a per-target source
// list, with fallback to (arch, sys, "") and then (arch, "", "") — the same
// three-level fallback original_source/src/build_sysroot.c's FIND_SRCLIST
// macro performs by linear scan.
type srcListKey struct {
	arch   target.Arch
	sys    target.Sys
	sysver string
}

// srcList holds the compiled-to-archive source files for one component
// under one target, keyed with the fallback rule above.
type srcList struct {
	sources []string
}

// lookupSrcList finds the most specific matching entry for t in table,
// falling back first by dropping sysver, then by dropping sys, matching
// original_source/src/build_sysroot.c's _find_srclist.
func lookupSrcList(table map[srcListKey]*srcList, t target.Target) (*srcList, bool) {
	if sl, ok := table[srcListKey{t.Arch, t.Sys, t.SysVer}]; ok {
		return sl, true
	}
	if sl, ok := table[srcListKey{t.Arch, t.Sys, ""}]; ok {
		return sl, true
	}
	if sl, ok := table[srcListKey{t.Arch, "", ""}]; ok {
		return sl, true
	}
	return nil, false
}
