// Package sysroot implements the Sysroot Builder from spec.md §4.D: a
// content-addressed per-target directory holding the system headers and
// libraries (libc, librt, libunwind, libc++abi, libc++) a compiled program
// links against, built once and shared across concurrent compis invocations
// via a cross-process lock file. Grounded on
// original_source/src/lockfile.c (fcntl F_SETLK/F_SETLKW protocol,
// PID-in-lockfile message) and original_source/src/build_sysroot.c (the
// must_build/.buildmark completion-marker scheme, per-component build
// order), adapted to distri's own subprocess-submission-through-a-pool
// shape (internal/build/build.go) instead of raw cbuild_t bookkeeping.
package sysroot

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/compis-build/compis/internal/coerr"
)

// Lockfile is an exclusive, cross-process file lock written with the
// lockee's pid, matching original_source/src/lockfile.c's on-disk format
// exactly (so a human or another compis process reading the file sees a
// plain decimal pid).
type Lockfile struct {
	fd   int
	path string
}

// Lock blocks until it acquires an exclusive lock on path, creating it if
// necessary, and writes the caller's pid into it
// (original_source/src/lockfile.c: lockfile_lock, F_SETLKW branch).
func Lock(path string) (*Lockfile, error) {
	fd, err := unix.Open(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, coerr.Wrap("open "+path, err)
	}
	fl := unix.Flock_t{Type: unix.F_WRLCK, Whence: int16(os.SEEK_SET)}
	if err := unix.FcntlFlock(uintptr(fd), unix.F_SETLKW, &fl); err != nil {
		unix.Close(fd)
		return nil, coerr.Wrap("fcntl(F_SETLKW) "+path, err)
	}
	if err := writePid(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Lockfile{fd: fd, path: path}, nil
}

// TryLock attempts a non-blocking exclusive lock on path. If another
// process already holds it, TryLock returns (nil, lockeePID, coerr.Exists)
// with lockeePID read from the existing lock file's contents, or -1 if it
// could not be parsed (original_source/src/lockfile.c: lockfile_trylock).
func TryLock(path string) (lf *Lockfile, lockeePID int, err error) {
	fd, oerr := unix.Open(path, os.O_RDWR|os.O_CREATE, 0666)
	if oerr != nil {
		if xerrors.Is(oerr, os.ErrNotExist) {
			if merr := os.MkdirAll(parentDir(path), 0755); merr != nil {
				return nil, -1, coerr.Wrap("mkdir", merr)
			}
			return TryLock(path)
		}
		return nil, -1, coerr.Wrap("open "+path, oerr)
	}

	fl := unix.Flock_t{Type: unix.F_WRLCK, Whence: int16(os.SEEK_SET)}
	if err := unix.FcntlFlock(uintptr(fd), unix.F_SETLK, &fl); err != nil {
		if xerrors.Is(err, unix.EAGAIN) || xerrors.Is(err, unix.EACCES) {
			pid := readPid(fd)
			unix.Close(fd)
			return nil, pid, coerr.Exists
		}
		unix.Close(fd)
		return nil, -1, coerr.Wrap("fcntl(F_SETLK) "+path, err)
	}

	if err := writePid(fd); err != nil {
		unix.Close(fd)
		return nil, -1, err
	}
	return &Lockfile{fd: fd, path: path}, -1, nil
}

// Unlock releases the lock and closes the underlying file descriptor. It
// does not remove the lock file; callers rename or remove it as part of
// their own completion protocol (original_source/src/lockfile.c:
// lockfile_unlock, minus the F_GETPATH-based unlink, which is
// Linux/BSD-only and unnecessary here since callers already hold the path).
func (lf *Lockfile) Unlock() error {
	fl := unix.Flock_t{Type: unix.F_UNLCK, Whence: int16(os.SEEK_SET)}
	_ = unix.FcntlFlock(uintptr(lf.fd), unix.F_SETLKW, &fl)
	return unix.Close(lf.fd)
}

func writePid(fd int) error {
	if err := unix.Ftruncate(fd, 0); err != nil {
		return coerr.Wrap("ftruncate", err)
	}
	if _, err := unix.Seek(fd, 0, os.SEEK_SET); err != nil {
		return coerr.Wrap("seek", err)
	}
	buf := []byte(strconv.Itoa(os.Getpid()))
	if _, err := unix.Write(fd, buf); err != nil {
		return coerr.Wrap("write pid", err)
	}
	return nil
}

func readPid(fd int) int {
	buf := make([]byte, 16)
	_, _ = unix.Seek(fd, 0, os.SEEK_SET)
	n, err := unix.Read(fd, buf)
	if err != nil || n == 0 {
		return -1
	}
	n2, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return -1
	}
	return n2
}

func parentDir(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "."
	}
	return path[:i]
}
