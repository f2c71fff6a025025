package sysroot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/compis-build/compis/internal/target"
	"github.com/compis-build/compis/internal/toolchain"
)

func TestLockfileTryLockExclusive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.lock")

	lf, pid, err := TryLock(path)
	if err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	if pid != -1 {
		t.Fatalf("expected pid -1 on successful lock, got %d", pid)
	}
	defer lf.Unlock()

	_, lockeePID, err2 := TryLock(path)
	if err2 == nil {
		t.Fatal("expected second TryLock to fail while first holds the lock")
	}
	if lockeePID != os.Getpid() {
		t.Fatalf("expected lockee pid %d, got %d", os.Getpid(), lockeePID)
	}
}

func TestLockfileUnlockReleases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "y.lock")

	lf, _, err := TryLock(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := lf.Unlock(); err != nil {
		t.Fatal(err)
	}

	lf2, _, err := TryLock(path)
	if err != nil {
		t.Fatalf("expected TryLock to succeed after Unlock: %v", err)
	}
	lf2.Unlock()
}

func TestWriteDummyArchives(t *testing.T) {
	dir := t.TempDir()
	if err := writeDummyArchives(dir); err != nil {
		t.Fatal(err)
	}
	for _, name := range dummyLibNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if string(data) != dummyArchiveMagic {
			t.Fatalf("%s: got %q, want %q", name, data, dummyArchiveMagic)
		}
	}
}

type fakeClang struct{ calls int }

func (f *fakeClang) Compile(_ context.Context, job toolchain.CompileJob) error {
	f.calls++
	return os.WriteFile(job.Object, []byte("obj"), 0644)
}

type fakeLinker struct{ archived []string }

func (f *fakeLinker) Archive(_ context.Context, objects []string, archive string) error {
	f.archived = objects
	if err := os.MkdirAll(filepath.Dir(archive), 0755); err != nil {
		return err
	}
	return os.WriteFile(archive, []byte(dummyArchiveMagic), 0644)
}

func (f *fakeLinker) Link(context.Context, []string, []string, []string, string) error {
	return nil
}

// P9: EnsureBuilt is idempotent and safe to call again once the "base"
// marker is already written — a stand-in for two racing compis processes,
// the second of which must see the first's completed work instead of
// rebuilding (spec.md §4.D, P9).
func TestEnsureBuiltIdempotent(t *testing.T) {
	root := t.TempDir()
	srcRoot := filepath.Join(root, "src")
	for _, d := range []string{"musl", "librt"} {
		if err := os.MkdirAll(filepath.Join(srcRoot, d), 0755); err != nil {
			t.Fatal(err)
		}
	}

	opts := Options{
		SysrootDir: filepath.Join(root, "cache", "x86_64-linux-debug"),
		LockDir:    filepath.Join(root, "cache"),
		Target:     target.Target{Arch: "x86_64", Sys: target.SysLinux},
		Mode:       target.ModeDebug,
		SourceRoot: srcRoot,
		SysIncDir:  filepath.Join(root, "sysinc"),
		Clang:      &fakeClang{},
		Linker:     &fakeLinker{},
		MaxJobs:    2,
	}

	if err := EnsureBuilt(context.Background(), opts); err != nil {
		t.Fatalf("first EnsureBuilt: %v", err)
	}

	done, err := groupDone(opts, "base")
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatal("expected base group marked done after first build")
	}

	clang := opts.Clang.(*fakeClang)
	firstCalls := clang.calls

	if err := EnsureBuilt(context.Background(), opts); err != nil {
		t.Fatalf("second EnsureBuilt: %v", err)
	}
	if clang.calls != firstCalls {
		t.Fatalf("expected no additional compiles on idempotent rebuild, got %d -> %d", firstCalls, clang.calls)
	}
}

func TestTargetFilenameAndHasSyslib(t *testing.T) {
	tg := target.Target{Arch: "x86_64", Sys: target.SysLinux}
	if got := tg.Filename(target.SyslibC); got != "libc.a" {
		t.Fatalf("got %q", got)
	}
	if !tg.HasSyslib(target.SyslibC) {
		t.Fatal("linux target should have libc")
	}

	none := target.Target{Arch: "x86_64", Sys: target.SysNone}
	if none.HasSyslib(target.SyslibC) {
		t.Fatal("freestanding target should not have libc")
	}
}
