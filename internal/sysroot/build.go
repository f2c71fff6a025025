package sysroot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compis-build/compis/internal/bgtask"
	"github.com/compis-build/compis/internal/chanpool"
	"github.com/compis-build/compis/internal/coerr"
	"github.com/compis-build/compis/internal/oninterrupt"
	"github.com/compis-build/compis/internal/target"
	"github.com/compis-build/compis/internal/toolchain"
	"github.com/compis-build/compis/internal/trace"
)

// Options configures one EnsureBuilt call.
type Options struct {
	// SysrootDir is the target-specific sysroot directory, e.g.
	// {cocache}/aarch64-linux-debug (compis.Runtime.SysrootCache).
	SysrootDir string

	// LockDir holds the .lock/.ok marker files. It must be a directory
	// guaranteed not to disappear while the lock is held — the sysroot
	// itself gets wiped and rebuilt on a "base" miss, so this is normally
	// SysrootDir's parent (the shared cache root), matching
	// original_source/src/build_sysroot.c's acquire_build_lock comment.
	LockDir string

	Target    target.Target
	Mode      target.BuildMode
	LTO       bool
	NeedLibCXX bool // SYSROOT_BUILD_LIBCXX flag

	SourceRoot string // {coroot}, containing musl/, librt/, libcxx/, ... trees
	SysIncDir  string // {coroot}/sysinc, per-target layered headers

	Clang  toolchain.Clang
	Linker toolchain.Linker
	MaxJobs int

	Log *fmtLogger
}

// fmtLogger is the minimal logging seam EnsureBuilt uses to report
// "waiting for compis (pid N)..." and per-component progress, matching
// distri's own *log.Logger-based Ctx fields.
type fmtLogger struct {
	Printf func(format string, args ...interface{})
}

func (o *Options) logf(format string, args ...interface{}) {
	if o.Log != nil && o.Log.Printf != nil {
		o.Log.Printf(format, args...)
	}
}

// markerPaths returns the .lock/.ok pair for a component group ("base" or
// "libcxx"), named after the sysroot's base directory so distinct targets
// sharing LockDir don't collide.
func (o *Options) markerPaths(group string) (lockPath, okPath string) {
	base := filepath.Base(o.SysrootDir) + "-" + group
	return filepath.Join(o.LockDir, base+".lock"), filepath.Join(o.LockDir, base+".ok")
}

// EnsureBuilt builds whatever components are missing for opts.Target, under
// a cross-process lock, matching original_source/src/build_sysroot.c's
// build_sysroot_if_needed: a fast path with no lock at all when everything
// is already marked built, then acquire-lock-recheck-build-mark for
// whichever groups are stale. May be called concurrently by multiple
// compis processes racing to build the same sysroot (spec.md P9). The
// fcntl lock belongs to the whole process, so concurrent calls from
// goroutines of one process are not excluded from each other.
func EnsureBuilt(ctx context.Context, opts Options) error {
	baseDone, err := groupDone(opts, "base")
	if err != nil {
		return err
	}
	cxxDone := true
	if opts.NeedLibCXX {
		cxxDone, err = groupDone(opts, "libcxx")
		if err != nil {
			return err
		}
	}
	if baseDone && cxxDone {
		return nil
	}

	if err := os.MkdirAll(opts.LockDir, 0755); err != nil {
		return coerr.Wrap("mkdir "+opts.LockDir, err)
	}

	if !baseDone {
		if err := buildGroup(ctx, opts, "base", func() error { return buildBase(ctx, opts) }); err != nil {
			return err
		}
	}
	if opts.NeedLibCXX && !cxxDone {
		if err := buildGroup(ctx, opts, "libcxx", func() error { return buildLibCXX(ctx, opts) }); err != nil {
			return err
		}
	}
	return nil
}

func groupDone(opts Options, group string) (bool, error) {
	_, okPath := opts.markerPaths(group)
	_, err := os.Stat(okPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, coerr.Wrap("stat "+okPath, err)
}

// buildGroup acquires the group's cross-process lock (waiting on whoever
// holds it, logging their pid), rechecks completion (another process may
// have finished the build while this one waited), runs fn, and on success
// atomically promotes the lock file into the ".ok" marker.
func buildGroup(ctx context.Context, opts Options, group string, fn func() error) error {
	lockPath, okPath := opts.markerPaths(group)

	lf, lockeePID, err := TryLock(lockPath)
	if err != nil {
		if err != coerr.Exists {
			return coerr.Wrap("trylock "+lockPath, err)
		}
		opts.logf("waiting for compis (pid %d) to finish building %s...", lockeePID, group)
		lf, err = Lock(lockPath)
		if err != nil {
			return coerr.Wrap("lock "+lockPath, err)
		}
	}

	// A SIGINT mid-build must not leave the next compis invocation waiting
	// on a lock file whose holder is gone without a word about it.
	unregister := oninterrupt.Register(func() {
		opts.logf("interrupted while building %s, releasing %s", group, lockPath)
		lf.Unlock()
	})
	defer unregister()

	done, derr := groupDone(opts, group)
	if derr != nil {
		lf.Unlock()
		return derr
	}
	if done {
		lf.Unlock()
		return nil
	}

	ev := trace.Event("build "+group, 0)
	buildErr := fn()
	ev.Done()
	if buildErr != nil {
		lf.Unlock()
		return buildErr
	}

	// The rename must happen while still holding the lock: unlocking first
	// would let a waiter acquire it, see no .ok marker yet, and re-enter
	// the build path (including buildBase's os.RemoveAll of SysrootDir)
	// while this process's rename is still in flight.
	if err := os.Rename(lockPath, okPath); err != nil {
		lf.Unlock()
		return coerr.Wrap(fmt.Sprintf("promote %s to %s", lockPath, okPath), err)
	}
	if err := lf.Unlock(); err != nil {
		return coerr.Wrap("unlock "+lockPath, err)
	}
	return nil
}

func libDir(opts Options) string  { return filepath.Join(opts.SysrootDir, "lib") }
func incDir(opts Options) string  { return filepath.Join(opts.SysrootDir, "include") }
func objDir(opts Options, comp string) string {
	return filepath.Join(opts.LockDir, "obj-"+filepath.Base(opts.SysrootDir)+"-"+comp)
}

// buildBase wipes and rebuilds the sysroot's sysinc+libc+librt components
// together, matching build_sysroot_if_needed's "base" group exactly
// (original_source/src/build_sysroot.c).
func buildBase(ctx context.Context, opts Options) error {
	if err := os.RemoveAll(opts.SysrootDir); err != nil {
		return coerr.Wrap("wipe sysroot", err)
	}
	if err := os.MkdirAll(opts.SysrootDir, 0755); err != nil {
		return coerr.Wrap("mkdir sysroot", err)
	}

	if err := copySysincHeaders(opts); err != nil {
		return err
	}

	pool := chanpool.NewPool(maxJobs(opts), nil)
	defer pool.Close()

	task := bgtask.Open("base", 3)
	defer task.End("")

	if opts.Target.HasSyslib(target.SyslibC) {
		task.Advance("building libc for %s", opts.Target)
		if err := buildLibC(ctx, opts, pool); err != nil {
			return err
		}
	}
	if opts.Target.HasSyslib(target.SyslibRT) {
		task.Advance("building librt for %s", opts.Target)
		if err := buildLibRT(ctx, opts, pool); err != nil {
			return err
		}
	}
	if opts.Target.Sys == target.SysLinux {
		task.Advance("writing dummy archives")
		if err := writeDummyArchives(libDir(opts)); err != nil {
			return err
		}
	}
	return nil
}

// buildLibCXX builds libunwind, the libc++ __config_site header, libc++abi,
// and libc++ in that dependency order (original_source/src/
// build_sysroot.c's second must_build group).
func buildLibCXX(ctx context.Context, opts Options) error {
	pool := chanpool.NewPool(maxJobs(opts), nil)
	defer pool.Close()

	task := bgtask.Open("libcxx", 4)
	defer task.End("")

	if opts.Target.HasSyslib(target.SyslibUnwind) {
		task.Advance("building libunwind for %s", opts.Target)
		if err := buildLibUnwind(ctx, opts, pool); err != nil {
			return err
		}
	}
	task.Advance("writing __config_site")
	if err := writeCxxConfigSite(opts); err != nil {
		return err
	}
	task.Advance("building libc++abi for %s", opts.Target)
	if err := buildLibCXXABI(ctx, opts, pool); err != nil {
		return err
	}
	task.Advance("building libc++ for %s", opts.Target)
	return buildLibCXXImpl(ctx, opts, pool)
}

func maxJobs(opts Options) int {
	if opts.MaxJobs > 0 {
		return opts.MaxJobs
	}
	return 4
}

func copySysincHeaders(opts Options) error {
	if opts.Target.Sys == target.SysNone {
		return nil
	}
	return copyTree(filepath.Join(opts.SysIncDir, string(opts.Target.Sys)), incDir(opts))
}
