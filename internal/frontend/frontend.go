// Package frontend declares the seam between the compis driver and the Co
// language parser/type checker. Parsing and type checking are out of scope
// (spec.md §1 Non-goals: "no Co-language parser/type checker") — these
// interfaces exist so internal/pkgindex's definition toposort and package
// build pipeline can be written and tested against a fake implementation.
package frontend

import "github.com/compis-build/compis/internal/astcodec"

// Parser turns a package's source files into an AST, one Node tree per
// file, ready for astcodec encoding and caching.
type Parser interface {
	ParseFile(path string, data []byte) (*astcodec.Node, error)
}

// TypeChecker resolves names and types across a package's parsed files,
// given the already-built ASTs of its direct dependencies.
type TypeChecker interface {
	Check(pkgFiles []*astcodec.Node, depPkgs map[string][]*astcodec.Node) error
}
