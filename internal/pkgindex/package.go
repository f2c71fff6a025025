// Package pkgindex implements the Package Index & Resolver from spec.md
// §4.C: package interning by canonical directory, import-path validation,
// search-path resolution, and topological package/definition builds.
// Grounded on distri's own package-graph handling in
// internal/batch/batch.go (gonum DirectedGraph + topo.Sort cycle
// detection) and internal/build/resolve.go's import-probing shape,
// adapted: distri silently breaks cycles for bootstrap packages, whereas
// Compis must report them as a hard diagnostic (spec.md end-to-end
// scenario 5) — see DESIGN.md.
package pkgindex

import (
	"crypto/sha256"
	"sort"
	"sync"
	"time"
)

// SourceKind classifies a package-relative source file.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceCo
	SourceC
	SourceObject
)

// SourceFile is one file belonging to a Package (spec.md §3).
type SourceFile struct {
	Name    string // path relative to the package directory
	Kind    SourceKind
	Data    []byte // optional mmap'd bytes; nil if not loaded
	Size    int64
	ModTime time.Time
	ID      uint32
}

// Package is an interned record identified by its canonical absolute
// directory; two references with the same Dir are always the same *Package
// (spec.md §3 invariant).
type Package struct {
	Dir        string // canonical absolute directory
	ImportPath string // e.g. "std/runtime"

	mu      sync.Mutex
	sources []*SourceFile // sorted set by Name

	Imports    map[string]*Package // populated after parse
	APIHash    [32]byte
	PublicDefs map[string]*Def

	index *Index // back-pointer to the owning Index

	nextSourceID uint32
}

// AddSource inserts name into the package's sorted source-file set,
// idempotently: adding the same name twice returns the existing entry.
func (p *Package) AddSource(name string, kind SourceKind) *SourceFile {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := sort.Search(len(p.sources), func(i int) bool { return p.sources[i].Name >= name })
	if i < len(p.sources) && p.sources[i].Name == name {
		return p.sources[i]
	}
	sf := &SourceFile{Name: name, Kind: kind, ID: p.nextSourceID}
	p.nextSourceID++
	p.sources = append(p.sources, nil)
	copy(p.sources[i+1:], p.sources[i:])
	p.sources[i] = sf
	return sf
}

// Sources returns the package's sorted source-file set.
func (p *Package) Sources() []*SourceFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*SourceFile, len(p.sources))
	copy(out, p.sources)
	return out
}

// APIHashOf computes the 32-byte content digest of a package's encoded
// public AST (spec.md §3 "API-hash"), used as the incremental-build cache
// key.
func APIHashOf(encodedPublicAST []byte) [32]byte {
	return sha256.Sum256(encodedPublicAST)
}

// Index interns packages by canonical directory, guarded by a
// reader-writer mutex keyed logically on directory (spec.md §4.C
// pkgindex_intern).
type Index struct {
	mu    sync.RWMutex
	byDir map[string]*Package
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{byDir: make(map[string]*Package)}
}

// Intern returns the Package for dir, creating and registering one if
// absent. Two calls with the same dir always return the same *Package
// (P10); two calls with different dirs always return different objects.
func (ix *Index) Intern(dir, importPath string) (pkg *Package, created bool) {
	ix.mu.RLock()
	if p, ok := ix.byDir[dir]; ok {
		ix.mu.RUnlock()
		return p, false
	}
	ix.mu.RUnlock()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if p, ok := ix.byDir[dir]; ok {
		return p, false
	}
	p := &Package{
		Dir:        dir,
		ImportPath: importPath,
		Imports:    make(map[string]*Package),
		PublicDefs: make(map[string]*Def),
		index:      ix,
	}
	ix.byDir[dir] = p
	return p, true
}

// Lookup returns the interned Package for dir, if any.
func (ix *Index) Lookup(dir string) (*Package, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.byDir[dir]
	return p, ok
}

// Len reports the number of interned packages.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byDir)
}
