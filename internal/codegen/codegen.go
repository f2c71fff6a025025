// Package codegen declares the seam between the compis driver and the C
// backend that lowers a type-checked Co AST into C source for clang to
// compile. Code generation itself is out of scope (spec.md §1 Non-goals:
// "no C codegen") — this interface exists so the package build pipeline
// can be written and tested against a fake generator.
package codegen

import "github.com/compis-build/compis/internal/astcodec"

// Generator lowers a type-checked package AST into one or more C source
// files, written under outDir.
type Generator interface {
	Generate(pkgFiles []*astcodec.Node, outDir string) (cSources []string, err error)
}
