package sysroot

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/compis-build/compis/internal/chanpool"
	"github.com/compis-build/compis/internal/coerr"
	"github.com/compis-build/compis/internal/strlist"
	"github.com/compis-build/compis/internal/toolchain"
)

// cbuild assembles one static library's worth of compile jobs (cc/cxx/as
// flag lists plus a source list) and drives them through a worker pool,
// the Go shape of original_source/src/cbuild.c's cbuild_t: per-language
// flag lists kept separate since a single library mixes C, C++, and
// assembly sources with different flags (see build_libcxx/build_libcxxabi
// in build_sysroot.c).
type cbuild struct {
	name    string
	srcDir  string
	objDir  string
	cc      *strlist.List
	cxx     *strlist.List
	as      *strlist.List
	sources []string // paths relative to srcDir
	clang   toolchain.Clang
	linker  toolchain.Linker
}

func newCbuild(name, srcDir, objDir string, clang toolchain.Clang, linker toolchain.Linker) *cbuild {
	return &cbuild{
		name:   name,
		srcDir: srcDir,
		objDir: objDir,
		cc:     strlist.New(),
		cxx:    strlist.New(),
		as:     strlist.New(),
		clang:  clang,
		linker: linker,
	}
}

func (b *cbuild) addSource(rel string) {
	b.sources = append(b.sources, rel)
}

// flagsFor picks the flag list matching a source file's extension
// (original_source/src/build_sysroot.c routes .c through build.cc, .cpp
// through build.cxx, .S through build.as).
func (b *cbuild) flagsFor(src string) []string {
	switch filepath.Ext(src) {
	case ".cc", ".cpp", ".cxx":
		return b.cxx.Strings()
	case ".s", ".S":
		return b.as.Strings()
	default:
		return b.cc.Strings()
	}
}

func (b *cbuild) objectPath(src string) string {
	rel := strings.TrimSuffix(src, filepath.Ext(src)) + ".o"
	return filepath.Join(b.objDir, rel)
}

// build compiles every source in parallel (via pool) and archives the
// resulting objects into outArchive, matching cbuild_build's two-phase
// shape (compile all objects, then archive).
func (b *cbuild) build(ctx context.Context, pool *chanpool.Pool, outArchive string) error {
	objects := make([]string, len(b.sources))
	errs := make(chan error, len(b.sources))

	for i, src := range b.sources {
		i, src := i, src
		obj := b.objectPath(src)
		objects[i] = obj
		if err := os.MkdirAll(filepath.Dir(obj), 0755); err != nil {
			return coerr.Wrap("mkdir "+filepath.Dir(obj), err)
		}
		pool.Submit(chanpool.Job{
			Fn: func(_ [chanpool.MaxArgs]any) error {
				err := b.clang.Compile(ctx, toolchain.CompileJob{
					Source: filepath.Join(b.srcDir, src),
					Object: obj,
					Flags:  b.flagsFor(src),
				})
				errs <- err
				return err
			},
		})
	}

	var firstErr error
	for range b.sources {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return coerr.Wrap("compile "+b.name, firstErr)
	}

	if err := b.linker.Archive(ctx, objects, outArchive); err != nil {
		return coerr.Wrap("archive "+b.name, err)
	}
	return nil
}
