package orchestrator

import (
	"context"
	"log"
	"sync"
	"testing"

	"github.com/compis-build/compis/internal/pkgindex"
)

func mkPkg(ix *pkgindex.Index, dir, importPath string) *pkgindex.Package {
	pkg, _ := ix.Intern(dir, importPath)
	return pkg
}

// diamond builds A <- B, A <- C, {B,C} <- D (D imports B and C, both import A).
func diamond() (a, b, c, d *pkgindex.Package) {
	ix := pkgindex.NewIndex()
	a = mkPkg(ix, "/a", "a")
	b = mkPkg(ix, "/b", "b")
	c = mkPkg(ix, "/c", "c")
	d = mkPkg(ix, "/d", "d")
	b.Imports["a"] = a
	c.Imports["a"] = a
	d.Imports["b"] = b
	d.Imports["c"] = c
	return a, b, c, d
}

func TestNewPlanOrdersDepsBeforeDependents(t *testing.T) {
	a, b, c, d := diamond()
	plan, err := NewPlan([]*pkgindex.Package{d})
	if err != nil {
		t.Fatal(err)
	}
	order := plan.Order()
	index := make(map[*pkgindex.Package]int)
	for i, pkg := range order {
		index[pkg] = i
	}
	if index[a] >= index[b] || index[a] >= index[c] {
		t.Fatalf("a must precede b and c, got order %v", importPaths(order))
	}
	if index[b] >= index[d] || index[c] >= index[d] {
		t.Fatalf("b and c must precede d, got order %v", importPaths(order))
	}
}

func importPaths(pkgs []*pkgindex.Package) []string {
	var out []string
	for _, p := range pkgs {
		out = append(out, p.ImportPath)
	}
	return out
}

func TestNewPlanDetectsCycle(t *testing.T) {
	ix := pkgindex.NewIndex()
	a := mkPkg(ix, "/a", "a")
	b := mkPkg(ix, "/b", "b")
	a.Imports["b"] = b
	b.Imports["a"] = a

	if _, err := NewPlan([]*pkgindex.Package{a}); err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestRunBuildsInDependencyOrder(t *testing.T) {
	a, b, c, d := diamond()
	plan, err := NewPlan([]*pkgindex.Package{d})
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var built []*pkgindex.Package
	builtAt := make(map[*pkgindex.Package]int)

	fn := func(ctx context.Context, pkg *pkgindex.Package) error {
		mu.Lock()
		defer mu.Unlock()
		builtAt[pkg] = len(built)
		built = append(built, pkg)
		return nil
	}

	err = Run(context.Background(), plan, Options{Workers: 2, Log: log.New(discard{}, "", 0)}, fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(built) != 4 {
		t.Fatalf("expected 4 packages built, got %d", len(built))
	}
	if builtAt[a] >= builtAt[b] || builtAt[a] >= builtAt[c] {
		t.Fatalf("a must build before b and c: %v", builtAt)
	}
	if builtAt[b] >= builtAt[d] || builtAt[c] >= builtAt[d] {
		t.Fatalf("b and c must build before d: %v", builtAt)
	}
}

func TestRunFailurePropagatesToDependents(t *testing.T) {
	a, b, c, d := diamond()
	plan, err := NewPlan([]*pkgindex.Package{d})
	if err != nil {
		t.Fatal(err)
	}

	fn := func(ctx context.Context, pkg *pkgindex.Package) error {
		if pkg == a {
			return errBoom
		}
		return nil
	}

	err = Run(context.Background(), plan, Options{Workers: 2, Log: log.New(discard{}, "", 0)}, fn)
	if err == nil {
		t.Fatal("expected an error when a dependency fails")
	}
	_ = b
	_ = c
	_ = d
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
