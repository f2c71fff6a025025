// Package metafile persists and consults per-package incremental-build
// records (spec.md §3's API-hash cache key), the compis analogue of
// distri's pb.Meta .meta.textproto sidecar files (pb/readmeta.go,
// cmd/distri/build.go's proto.MarshalTextString(&pb.Meta{...}) call site).
package metafile

import (
	"crypto/sha256"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/protobuf/proto"
	"github.com/google/renameio"

	"github.com/compis-build/compis/internal/coerr"
	"github.com/compis-build/compis/internal/pkgindex"
)

// Path returns the sidecar path for a package's build metadata, under the
// target-specific build directory (spec.md §6:
// "{builddir}/{mode}-{target}/pkg/{pkgpath}/...").
func Path(pkgBuildDir string) string {
	return filepath.Join(pkgBuildDir, "meta.textproto")
}

// Read loads the metadata at path. A missing file is not an error: it
// reports (nil, nil), meaning "no prior build recorded".
func Read(path string) (*Meta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, coerr.Wrap("read "+path, err)
	}
	var m Meta
	if err := proto.UnmarshalText(string(b), &m); err != nil {
		return nil, coerr.Wrap("parse "+path, err)
	}
	return &m, nil
}

// Write atomically persists m to path (renameio.WriteFile, matching
// distri's own atomic metafile writes).
func Write(path string, m *Meta) error {
	text := proto.MarshalTextString(m)
	if err := renameio.WriteFile(path, []byte(text), 0644); err != nil {
		return coerr.Wrap("write "+path, err)
	}
	return nil
}

// InputDigestOf hashes a package's source-file set (name, size, mtime of
// every pkgindex.SourceFile, in sorted order — pkgindex.Package.Sources()
// is already sorted by name) into the 32-byte digest recorded alongside
// the API-hash, so a metadata-only change (e.g. touching a file without
// altering its parsed content) still registers as a cache miss.
func InputDigestOf(sources []*pkgindex.SourceFile) [32]byte {
	sorted := append([]*pkgindex.SourceFile(nil), sources...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	var buf [8]byte
	for _, sf := range sorted {
		h.Write([]byte(sf.Name))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(sf.Size))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(sf.ModTime.UnixNano()))
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Fresh reports whether prev (the previously recorded metadata, possibly
// nil) still matches a package's current API-hash and input digest — the
// end-to-end scenario 2 skip check ("subsequent runs skip the libc step"),
// generalized to per-package Co builds.
func Fresh(prev *Meta, apiHash, inputDigest [32]byte) bool {
	if prev == nil {
		return false
	}
	return bytesEqual(prev.GetApiHash(), apiHash[:]) && bytesEqual(prev.GetInputDigest(), inputDigest[:])
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
