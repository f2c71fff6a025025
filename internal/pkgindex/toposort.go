package pkgindex

import "strings"

type visitState uint8

const (
	unvisited visitState = iota
	inProgress
	done
)

// CycleError reports an import cycle found while building dependencies
// before dependents (spec.md §4.C, end-to-end scenario 5).
type CycleError struct {
	Chain []*Package // e.g. [A, B, A]
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Chain))
	for i, p := range e.Chain {
		names[i] = p.ImportPath
	}
	return "import cycle: " + strings.Join(names, " → ")
}

// ResolveDepsFunc returns pkg's direct dependencies, resolving/interning
// and enqueuing newly-discovered packages as a side effect if desired.
type ResolveDepsFunc func(pkg *Package) ([]*Package, error)

// BuildFunc performs the actual build work for one already-dependency-built
// package (parse, type-check, codegen, compile — all out of pkgindex's
// scope, invoked as a callback).
type BuildFunc func(pkg *Package) error

// BuildTransitive builds pkg's dependencies before pkg itself
// (depth-first), detecting import cycles by marking packages
// "in-progress" while visiting; revisiting an in-progress package produces
// a *CycleError naming the chain, e.g. "import cycle: A → B → A".
func BuildTransitive(root *Package, resolveDeps ResolveDepsFunc, build BuildFunc) error {
	state := make(map[*Package]visitState)
	var stack []*Package
	return visitBuild(root, state, &stack, resolveDeps, build)
}

func visitBuild(pkg *Package, state map[*Package]visitState, stack *[]*Package, resolveDeps ResolveDepsFunc, build BuildFunc) error {
	switch state[pkg] {
	case done:
		return nil
	case inProgress:
		idx := -1
		for i, p := range *stack {
			if p == pkg {
				idx = i
				break
			}
		}
		chain := append([]*Package(nil), (*stack)[idx:]...)
		chain = append(chain, pkg)
		return &CycleError{Chain: chain}
	}

	state[pkg] = inProgress
	*stack = append(*stack, pkg)

	deps, err := resolveDeps(pkg)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if err := visitBuild(dep, state, stack, resolveDeps, build); err != nil {
			return err
		}
	}

	*stack = (*stack)[:len(*stack)-1]

	if err := build(pkg); err != nil {
		return err
	}
	state[pkg] = done
	return nil
}
