package sysroot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/compis-build/compis/internal/chanpool"
	"github.com/compis-build/compis/internal/coerr"
	"github.com/compis-build/compis/internal/target"
)

// buildLibC assembles and compiles libc.a (or copies darwin's .tbd stubs),
// dispatching on target.Sys exactly as original_source/src/
// build_sysroot.c's build_libc switch does.
func buildLibC(ctx context.Context, opts Options, pool *chanpool.Pool) error {
	switch opts.Target.Sys {
	case target.SysMacOS:
		return copyTree(filepath.Join(opts.SourceRoot, "darwin", "lib"), libDir(opts))
	case target.SysWASI:
		return buildLibCFromList(ctx, opts, pool, "wasi", nil)
	case target.SysLinux:
		sl, ok := lookupSrcList(muslSrclist, opts.Target)
		if !ok {
			return fmt.Errorf("no musl source list for target %s", opts.Target)
		}
		return buildLibCFromList(ctx, opts, pool, "musl", sl)
	}
	return nil
}

func buildLibCFromList(ctx context.Context, opts Options, pool *chanpool.Pool, treeName string, sl *srcList) error {
	srcDir := filepath.Join(opts.SourceRoot, treeName)
	b := newCbuild("libc", srcDir, objDir(opts, "libc"), opts.Clang, opts.Linker)

	b.cc.Add("-std=c99", "-nostdinc", "-ffreestanding", "-w")
	b.cc.Addf("-isystem%s", incDir(opts))
	b.as.Add("-Wa,--noexecstack", "-Os")

	if sl != nil {
		for _, src := range sl.sources {
			b.addSource(src)
		}
		for _, src := range muslCrtSources {
			b.addSource(src)
		}
	}

	outfile := filepath.Join(libDir(opts), opts.Target.Filename(target.SyslibC))
	if err := os.MkdirAll(filepath.Dir(outfile), 0755); err != nil {
		return coerr.Wrap("mkdir", err)
	}
	return b.build(ctx, pool, outfile)
}

// buildLibRT builds librt.a from compiler-rt-style builtin sources
// (original_source/src/build_sysroot.c's build_librt). It returns an error
// when no librt source list matches the target; targets without a runtime
// library are skipped by the caller (HasSyslib), not here.
func buildLibRT(ctx context.Context, opts Options, pool *chanpool.Pool) error {
	sl, ok := lookupSrcList(librtSrclist, opts.Target)
	if !ok {
		return fmt.Errorf("no librt source list for target %s", opts.Target)
	}
	srcDir := filepath.Join(opts.SourceRoot, "librt")
	b := newCbuild("librt", srcDir, objDir(opts, "librt"), opts.Clang, opts.Linker)
	b.cc.Add("-std=c11", "-Os", "-fPIC", "-fno-builtin", "-fomit-frame-pointer", "-fvisibility=hidden")
	for _, src := range sl.sources {
		b.addSource(src)
	}
	outfile := filepath.Join(libDir(opts), opts.Target.Filename(target.SyslibRT))
	return b.build(ctx, pool, outfile)
}

// buildLibUnwind builds libunwind.a (original_source/src/
// build_sysroot.c's build_libunwind). Skipped entirely for WASI, which
// doesn't support exceptions, by the caller in build.go.
func buildLibUnwind(ctx context.Context, opts Options, pool *chanpool.Pool) error {
	srcDir := filepath.Join(opts.SourceRoot, "libunwind")
	b := newCbuild("libunwind", filepath.Join(srcDir, "src"), objDir(opts, "libunwind"), opts.Clang, opts.Linker)
	b.cc.Add("-std=c11", "-fPIC", "-fvisibility=hidden", "-funwind-tables")
	b.cxx.Add("-std=c++20", "-fno-exceptions", "-fno-rtti", "-nostdlib++", "-nostdinc++")
	b.cc.Addf("-I%s/include", srcDir)
	b.cxx.Addf("-I%s/include", srcDir)
	for _, src := range libunwindSources {
		b.addSource(src)
	}
	outfile := filepath.Join(libDir(opts), opts.Target.Filename(target.SyslibUnwind))
	return b.build(ctx, pool, outfile)
}

// buildLibCXXABI builds libc++abi.a (original_source/src/
// build_sysroot.c's build_libcxxabi).
func buildLibCXXABI(ctx context.Context, opts Options, pool *chanpool.Pool) error {
	srcDir := filepath.Join(opts.SourceRoot, "libcxxabi")
	b := newCbuild("libc++abi", filepath.Join(srcDir, "src"), objDir(opts, "libcxxabi"), opts.Clang, opts.Linker)
	b.cxx.Add("-std=c++20", "-nostdinc++", "-D_LIBCXXABI_BUILDING_LIBRARY")
	b.cxx.Addf("-I%s/include", srcDir)
	b.cxx.Addf("-I%s/libunwind/include", opts.SourceRoot)
	b.cxx.Addf("-I%s/libcxx/include", opts.SourceRoot)
	for _, src := range libcxxabiSources {
		if opts.Target.Sys == target.SysWASI && isWasiExcludedCxxabi(src) {
			continue
		}
		b.addSource(src)
	}
	outfile := filepath.Join(libDir(opts), opts.Target.Filename(target.SyslibCXXABI))
	return b.build(ctx, pool, outfile)
}

func isWasiExcludedCxxabi(name string) bool {
	switch name {
	case "cxa_exception.cpp", "cxa_personality.cpp", "cxa_thread_atexit.cpp":
		return true
	}
	return false
}

// buildLibCXXImpl builds libc++.a (original_source/src/
// build_sysroot.c's build_libcxx).
func buildLibCXXImpl(ctx context.Context, opts Options, pool *chanpool.Pool) error {
	srcDir := filepath.Join(opts.SourceRoot, "libcxx")
	b := newCbuild("libc++", filepath.Join(srcDir, "src"), objDir(opts, "libcxx"), opts.Clang, opts.Linker)
	b.cxx.Add("-std=c++20", "-nostdinc++", "-D_LIBCPP_BUILDING_LIBRARY")
	b.cxx.Addf("-I%s/include", srcDir)
	b.cxx.Addf("-I%s/libcxxabi/include", opts.SourceRoot)
	for _, src := range libcxxSources {
		if opts.Target.Sys == target.SysWASI && isFilesystemSource(src) {
			continue // WASI build excludes libc++'s filesystem/ sources
		}
		b.addSource(src)
	}
	outfile := filepath.Join(libDir(opts), opts.Target.Filename(target.SyslibCXX))
	return b.build(ctx, pool, outfile)
}

func isFilesystemSource(name string) bool {
	return len(name) > 11 && name[:11] == "filesystem/"
}

// writeCxxConfigSite writes libc++'s __config_site header, matching
// original_source/src/build_sysroot.c's build_cxx_config_site exactly
// (content, install path, per-sys #defines).
func writeCxxConfigSite(opts Options) error {
	contents := "" +
		"#ifndef _LIBCPP___CONFIG_SITE\n" +
		"#define _LIBCPP___CONFIG_SITE\n" +
		"\n" +
		"#define _LIBCPP_DISABLE_EXTERN_TEMPLATE\n" +
		"#define _LIBCPP_DISABLE_NEW_DELETE_DEFINITIONS\n" +
		"#define _LIBCPP_DISABLE_VISIBILITY_ANNOTATIONS\n" +
		"#define _LIBCPP_HAS_NO_PRAGMA_SYSTEM_HEADER\n" +
		"#define _LIBCPP_HAS_NO_VENDOR_AVAILABILITY_ANNOTATIONS\n" +
		"\n"

	if opts.Target.Sys == target.SysWASI {
		contents += "#define _LIBCPP_HAS_NO_THREADS\n#define _LIBCPP_NO_EXCEPTIONS\n"
	}
	if opts.Target.Sys == target.SysLinux || opts.Target.Sys == target.SysWASI {
		contents += "#define _LIBCPP_HAS_MUSL_LIBC\n"
	}
	contents += "#endif // _LIBCPP___CONFIG_SITE\n"

	path := filepath.Join(opts.SysrootDir, "include", "c++", "v1", "__config_site")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return coerr.Wrap("mkdir", err)
	}
	return writeFileAtomic(path, []byte(contents), 0644)
}

// copyTree recursively copies src into dst, matching distri's fs_copyfile
// usage in build_sysroot.c's copy_target_layer_dirs/copy_sysinc_headers.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // a layer that doesn't exist for this target is skipped
		}
		return coerr.Wrap("stat "+src, err)
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode())
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return coerr.Wrap("readdir "+src, err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return coerr.Wrap("mkdir "+dst, err)
	}
	for _, e := range entries {
		if err := copyTree(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return coerr.Wrap("open "+src, err)
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return coerr.Wrap("mkdir", err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return coerr.Wrap("create "+dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return coerr.Wrap("copy "+src+" -> "+dst, err)
	}
	return nil
}
