package pkgindex

import "github.com/compis-build/compis/internal/astcodec"

// Def is one top-level declaration in a package's AST, annotated with the
// other Defs it directly references (types, functions). ToposortDefs
// visits these before emitting the Def itself, matching
// ast_toposort_visit_def (spec.md §4.C).
type Def struct {
	Name string
	Node *astcodec.Node
	Refs []*Def

	// Forward reports that this Def participates in a reference cycle and
	// must be forward-declared by callers (a C header emitter, out of
	// scope) before its dependents are emitted.
	Forward bool

	mark1 bool // reentry guard; clear at entry, cleared before return
}

// ToposortDefs orders defs so that every Def's referenced types/functions
// are emitted before it, forward-declaring (Forward = true) any Def
// reached while it is still being visited (a cyclic reference). The MARK1
// flag (mark1) is clear on entry to visiting a Def and is always cleared
// again before that visit returns, so a Def can be legitimately revisited
// via a different path later without being mistaken for a cycle.
func ToposortDefs(defs []*Def) []*Def {
	emitted := make(map[*Def]bool, len(defs))
	var order []*Def
	for _, d := range defs {
		visitDef(d, emitted, &order)
	}
	return order
}

func visitDef(d *Def, emitted map[*Def]bool, order *[]*Def) {
	if emitted[d] {
		return
	}
	if d.mark1 {
		// Reentry while still visiting d: a cyclic reference. The original
		// emits a forward declaration here instead of recursing further.
		d.Forward = true
		return
	}
	d.mark1 = true
	for _, r := range d.Refs {
		visitDef(r, emitted, order)
	}
	d.mark1 = false
	if !emitted[d] {
		emitted[d] = true
		*order = append(*order, d)
	}
}
