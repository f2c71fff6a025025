package pkgindex

import (
	"fmt"
	"os"
	"path/filepath"
)

// Resolver implements import_find_pkgs (spec.md §4.C): probing candidate
// directories in order (relative → COPATH entries → {coroot}/lib), then
// interning the first one that is itself a package.
type Resolver struct {
	Index  *Index
	Copath []string
	LibDir string

	// IsCoSourceDir reports whether dir contains Co source files. Injected
	// so pkgindex doesn't need to depend on a filesystem-walking policy or
	// the (out-of-scope) frontend parser; the default implementation below
	// checks for any *.co file.
	IsCoSourceDir func(dir string) bool
}

// NewResolver returns a Resolver with the default filesystem-based
// IsCoSourceDir check.
func NewResolver(index *Index, copath []string, libDir string) *Resolver {
	return &Resolver{
		Index:         index,
		Copath:        copath,
		LibDir:        libDir,
		IsCoSourceDir: defaultIsCoSourceDir,
	}
}

func defaultIsCoSourceDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".co" {
			return true
		}
	}
	return false
}

// isPackageDir reports whether dir is itself a package: it contains Co
// source files, or importPath is the literal "std/runtime" (spec.md §4.C
// step 2).
func (r *Resolver) isPackageDir(dir, importPath string) bool {
	if importPath == "std/runtime" {
		return true
	}
	return r.IsCoSourceDir(dir)
}

// Resolve finds the canonical directory for importPath, probing in order:
// ① fromDir (the importing package's directory, for relative imports);
// ② every entry of Copath; ③ {coroot}/lib. The first candidate that is
// itself a package wins. On success the package is interned (spec.md §4.C
// step 3); created reports whether this call newly interned it (callers
// use this to decide whether to enqueue it for a recursive build).
func (r *Resolver) Resolve(fromDir, importPath string) (pkg *Package, created bool, err error) {
	if verr := ValidateImportPath(importPath); verr != nil {
		return nil, false, verr
	}

	var candidates []string
	if fromDir != "" {
		candidates = append(candidates, filepath.Join(fromDir, importPath))
	}
	for _, root := range r.Copath {
		candidates = append(candidates, filepath.Join(root, importPath))
	}
	if r.LibDir != "" {
		candidates = append(candidates, filepath.Join(r.LibDir, importPath))
	}

	for _, cand := range candidates {
		if r.isPackageDir(cand, importPath) {
			abs, aerr := filepath.Abs(cand)
			if aerr != nil {
				abs = cand
			}
			pkg, created = r.Index.Intern(abs, importPath)
			return pkg, created, nil
		}
	}

	return nil, false, fmt.Errorf("package not found: %q (searched %d candidate(s))", importPath, len(candidates))
}
