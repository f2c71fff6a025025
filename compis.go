// Package compis holds the process-wide configuration surface shared by the
// compiler driver and its subsystems: the target coroot, cache locations,
// parallelism caps, and the diagnostic sink. Everything here is modeled as
// methods on Runtime so that tests can construct more than one Runtime in a
// single process (see Design Notes, "global mutable state").
package compis

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/compis-build/compis/internal/target"
	"github.com/compis-build/compis/internal/trace"
)

// BuildMode selects the optimization/debug posture of a build. Alias of
// internal/target.BuildMode, whose package owns target-triple parsing.
type BuildMode = target.BuildMode

const (
	ModeDebug = target.ModeDebug
	ModeOpt   = target.ModeOpt
)

// Target describes a compilation target triple: arch-sys[.sysver]. Alias of
// internal/target.Target (see that package for parsing, Dirname, and
// per-component syslib applicability).
type Target = target.Target

// Runtime is the single mutable handle threaded through the driver in place
// of the original's process-wide globals (coroot, coexefile, coverbose,
// comaxproc, threadpool, locmap). Multiple Runtimes may coexist in one
// process, e.g. under test.
type Runtime struct {
	// Coroot is the Compis installation root (headers, lib/ package search
	// root, bundled sysroot sourcelists). Overridden by $COROOT.
	Coroot string

	// Coexefile is the absolute path to the running compis executable,
	// used for self-reexec (-cc1, multicall subcommands).
	Coexefile string

	// Verbose is a cumulative verbosity counter driven by repeated -v flags.
	Verbose int

	// Comaxproc bounds parallelism across the threadpool and sysroot/package
	// builders. Defaults to runtime.NumCPU(), overridable via $COMAXPROC or
	// -j.
	Comaxproc int

	// Cocache is the sysroot cache root. Overridden by $COCACHE.
	Cocache string

	// Copath is the ':'-separated package search list from $COPATH.
	Copath []string
}

// NewRuntime constructs a Runtime from the process environment, following
// the precedence rules in spec.md §6.
func NewRuntime() (*Runtime, error) {
	rt := &Runtime{
		Comaxproc: runtime.NumCPU(),
	}

	if v := os.Getenv("COROOT"); v != "" {
		rt.Coroot = v
	} else {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate coroot: %w", err)
		}
		rt.Coroot = filepath.Dir(exe)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	rt.Coexefile = exe

	if v := os.Getenv("COCACHE"); v != "" {
		rt.Cocache = v
	} else {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locate cache dir: %w", err)
		}
		rt.Cocache = filepath.Join(cacheDir, "compis")
	}

	if v := os.Getenv("COPATH"); v != "" {
		rt.Copath = filepath.SplitList(v)
	}

	if v := os.Getenv("COMAXPROC"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 {
			rt.Comaxproc = n
		}
	}

	return rt, nil
}

// SysrootCache returns the cache directory for a given target, mode and LTO
// setting (§4.D layout).
func (rt *Runtime) SysrootCache(t Target, mode BuildMode, lto bool) string {
	return filepath.Join(rt.Cocache, t.Dirname(mode, lto))
}

// LibDir is the bundled package search root {coroot}/lib (§4.C probe ③).
func (rt *Runtime) LibDir() string {
	return filepath.Join(rt.Coroot, "lib")
}

// SysIncDir is the bundled system header layer root consumed by the sysroot
// builder's "sysinc" component.
func (rt *Runtime) SysIncDir() string {
	return filepath.Join(rt.Coroot, "sysinc")
}

// EnableTrace turns on Chrome-trace-format event recording for the rest of
// the process's lifetime, writing to $TMPDIR/compis.traces/prefix.$PID
// (modeled on distri's own cmd/distri -trace flag; the compis driver has no
// flag that calls this). Subsystems — the sysroot builder's per-group
// buildGroup, eventually the package build pipeline — emit events
// unconditionally via internal/trace.Event; without a Sink they're dropped
// for free, so callers only pay for tracing once this is called.
func (rt *Runtime) EnableTrace(prefix string) error {
	return trace.Enable(prefix)
}
