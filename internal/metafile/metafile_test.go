package metafile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/compis-build/compis/internal/pkgindex"
)

func TestWriteReadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)

	want := &Meta{
		ImportPath:   "std/runtime",
		ApiHash:      []byte{1, 2, 3, 4},
		InputDigest:  []byte{5, 6, 7, 8},
		BuildUnixSec: 1700000000,
		Deps:         []string{"std/mem"},
	}
	if err := Write(path, want); err != nil {
		t.Fatal(err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.GetImportPath() != want.ImportPath ||
		string(got.GetApiHash()) != string(want.ApiHash) ||
		string(got.GetInputDigest()) != string(want.InputDigest) ||
		got.GetBuildUnixSec() != want.BuildUnixSec ||
		len(got.GetDeps()) != 1 || got.GetDeps()[0] != "std/mem" {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, want)
	}
}

func TestReadMissingReturnsNil(t *testing.T) {
	m, err := Read(filepath.Join(t.TempDir(), "nope.textproto"))
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Fatalf("expected nil for missing file, got %+v", m)
	}
}

func TestInputDigestOfOrderIndependent(t *testing.T) {
	mtime := time.Unix(1700000000, 0)
	a := &pkgindex.SourceFile{Name: "a.co", Size: 10, ModTime: mtime}
	b := &pkgindex.SourceFile{Name: "b.co", Size: 20, ModTime: mtime}

	d1 := InputDigestOf([]*pkgindex.SourceFile{a, b})
	d2 := InputDigestOf([]*pkgindex.SourceFile{b, a})
	if d1 != d2 {
		t.Fatal("InputDigestOf should be independent of input order")
	}

	c := &pkgindex.SourceFile{Name: "a.co", Size: 11, ModTime: mtime}
	d3 := InputDigestOf([]*pkgindex.SourceFile{c, b})
	if d1 == d3 {
		t.Fatal("InputDigestOf should change when a source's size changes")
	}
}

func TestFresh(t *testing.T) {
	apiHash := [32]byte{1}
	inputDigest := [32]byte{2}

	if Fresh(nil, apiHash, inputDigest) {
		t.Fatal("nil prior metadata must never be fresh")
	}

	prev := &Meta{ApiHash: apiHash[:], InputDigest: inputDigest[:]}
	if !Fresh(prev, apiHash, inputDigest) {
		t.Fatal("identical hashes should be fresh")
	}

	changed := [32]byte{9}
	if Fresh(prev, changed, inputDigest) {
		t.Fatal("a changed API hash must not be fresh")
	}
}
