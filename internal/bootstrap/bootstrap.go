// Package bootstrap declares the seam for extracting a prebuilt bootstrap
// toolchain archive (clang/lld binaries compis shells out to before it can
// build its own sysroot). Implementing a tar extractor is out of scope —
// distri's own internal/build/build.go Ctx.Extract shells out to the `tar`
// binary rather than using archive/tar directly ("TODO(later): extract in
// pure Go to avoid tar dependency"), and compis follows the same stance:
// this interface is consumed by the CLI's first-run bootstrap step, never
// implemented against archive/tar here.
package bootstrap

import "context"

// Extractor unpacks a bootstrap toolchain archive into destDir.
type Extractor interface {
	Extract(ctx context.Context, archive, destDir string) error
}
