package pkgindex

import (
	"errors"
	"testing"
)

// P8: import-path validation.
func TestValidateImportPath(t *testing.T) {
	valid := []string{"std/runtime", "a", "a/b/c", "a.b-c/d_e"}
	for _, p := range valid {
		if err := ValidateImportPath(p); err != nil {
			t.Errorf("%q: expected valid, got %v", p, err)
		}
	}

	invalid := []string{"", "/abs", "./rel", "a//b", "a/", "a/../b", "a/-b"}
	for _, p := range invalid {
		err := ValidateImportPath(p)
		if err == nil {
			t.Errorf("%q: expected invalid, got nil", p)
			continue
		}
		var ipe *ImportPathError
		if !errors.As(err, &ipe) {
			t.Errorf("%q: error is not *ImportPathError: %v", p, err)
		}
	}
}

// P10: interning the same dir returns the same object; different dirs
// return different objects.
func TestInternIdentity(t *testing.T) {
	ix := NewIndex()
	a1, created1 := ix.Intern("/pkgs/a", "a")
	if !created1 {
		t.Fatal("expected first intern to create")
	}
	a2, created2 := ix.Intern("/pkgs/a", "a")
	if created2 {
		t.Fatal("expected second intern of same dir to not create")
	}
	if a1 != a2 {
		t.Fatal("expected same *Package for same dir")
	}

	b, _ := ix.Intern("/pkgs/b", "b")
	if b == a1 {
		t.Fatal("expected different *Package for different dir")
	}
	if ix.Len() != 2 {
		t.Fatalf("expected 2 interned packages, got %d", ix.Len())
	}
}

func TestSourceSetSortedAndIdempotent(t *testing.T) {
	ix := NewIndex()
	pkg, _ := ix.Intern("/pkgs/a", "a")
	pkg.AddSource("z.co", SourceCo)
	pkg.AddSource("a.co", SourceCo)
	pkg.AddSource("m.co", SourceCo)
	pkg.AddSource("a.co", SourceCo) // duplicate, idempotent

	names := make([]string, 0)
	for _, sf := range pkg.Sources() {
		names = append(names, sf.Name)
	}
	want := []string{"a.co", "m.co", "z.co"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

// End-to-end scenario 5: an import cycle A→B→A produces a diagnostic
// naming the chain and exits the build.
func TestBuildTransitiveDetectsCycle(t *testing.T) {
	ix := NewIndex()
	a, _ := ix.Intern("/pkgs/a", "a")
	b, _ := ix.Intern("/pkgs/b", "b")

	resolve := func(pkg *Package) ([]*Package, error) {
		switch pkg {
		case a:
			return []*Package{b}, nil
		case b:
			return []*Package{a}, nil
		}
		return nil, nil
	}
	var built []*Package
	build := func(pkg *Package) error {
		built = append(built, pkg)
		return nil
	}

	err := BuildTransitive(a, resolve, build)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	var cycErr *CycleError
	if !errors.As(err, &cycErr) {
		t.Fatalf("expected *CycleError, got %v (%T)", err, err)
	}
	got := err.Error()
	want := "import cycle: a → b → a"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildTransitiveOrdersDepsBeforeDependents(t *testing.T) {
	ix := NewIndex()
	leaf, _ := ix.Intern("/pkgs/leaf", "leaf")
	mid, _ := ix.Intern("/pkgs/mid", "mid")
	top, _ := ix.Intern("/pkgs/top", "top")

	resolve := func(pkg *Package) ([]*Package, error) {
		switch pkg {
		case top:
			return []*Package{mid}, nil
		case mid:
			return []*Package{leaf}, nil
		}
		return nil, nil
	}
	var built []*Package
	build := func(pkg *Package) error {
		built = append(built, pkg)
		return nil
	}
	if err := BuildTransitive(top, resolve, build); err != nil {
		t.Fatal(err)
	}
	if len(built) != 3 || built[0] != leaf || built[1] != mid || built[2] != top {
		t.Fatalf("unexpected build order: %v", built)
	}
}

func TestToposortDefsForwardDeclaresCycles(t *testing.T) {
	a := &Def{Name: "A"}
	b := &Def{Name: "B"}
	a.Refs = []*Def{b}
	b.Refs = []*Def{a} // cyclic struct reference

	order := ToposortDefs([]*Def{a, b})
	if len(order) != 2 {
		t.Fatalf("expected both defs emitted, got %d", len(order))
	}
	if !a.Forward && !b.Forward {
		t.Fatal("expected at least one def to require a forward declaration")
	}
}
