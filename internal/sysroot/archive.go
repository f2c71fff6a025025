package sysroot

import (
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/compis-build/compis/internal/coerr"
)

// dummyArchiveMagic is the Unix ar format magic bytes
// (original_source/src/main_build_sysroot.c: dummy_lib_contents
// = slice_cstr("!<arch>\n")). musl links several libraries (libm, libpthread,
// librt, ...) that have been folded into libc itself; compis still needs
// empty archives of those names on disk so link lines that reference them
// by -lxxx succeed.
const dummyArchiveMagic = "!<arch>\n"

// dummyLibNames are the folded-into-libc archive names musl-based targets
// still need present, empty, on disk (original_source/src/
// main_build_sysroot.c: dummy_lib_filenames).
var dummyLibNames = []string{
	"libcrypt.a",
	"libdl.a",
	"libm.a",
	"libpthread.a",
	"libresolv.a",
	"libutil.a",
	"libxnet.a",
}

// writeDummyArchives creates each of dummyLibNames under libDir as an empty,
// valid ar archive, atomically.
func writeDummyArchives(libDir string) error {
	if err := os.MkdirAll(libDir, 0755); err != nil {
		return coerr.Wrap("mkdir "+libDir, err)
	}
	for _, name := range dummyLibNames {
		if err := writeFileAtomic(filepath.Join(libDir, name), []byte(dummyArchiveMagic), 0644); err != nil {
			return err
		}
	}
	return nil
}

// writeFileAtomic writes data to path via a temp file + rename, the same
// renameio.TempFile pattern distri uses for squashfs image writes
// (internal/build/build.go), so a concurrent reader never observes a
// partially-written file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	f, err := renameio.TempFile("", path)
	if err != nil {
		return coerr.Wrap("create temp file for "+path, err)
	}
	defer f.Cleanup()
	if err := os.Chmod(f.Name(), perm); err != nil {
		return coerr.Wrap("chmod", err)
	}
	if _, err := f.Write(data); err != nil {
		return coerr.Wrap("write "+path, err)
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return coerr.Wrap("rename into place "+path, err)
	}
	return nil
}
