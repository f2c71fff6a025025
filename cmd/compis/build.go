package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	compis "github.com/compis-build/compis"
	"github.com/compis-build/compis/internal/buildsvc"
	"github.com/compis-build/compis/internal/coerr"
	"github.com/compis-build/compis/internal/conf"
	"github.com/compis-build/compis/internal/metafile"
	"github.com/compis-build/compis/internal/orchestrator"
	"github.com/compis-build/compis/internal/pkgindex"
	"github.com/compis-build/compis/internal/roview"
	"github.com/compis-build/compis/internal/sysroot"
	"github.com/compis-build/compis/internal/target"
)

// cmdBuild wires the in-scope half of the driver — sysroot materialization,
// package resolution, incremental-build freshness checks, and concurrent
// scheduling — all the way up to the point a real Co frontend/codegen pair
// would take over. Neither is linked into this binary (spec.md §1 puts
// both out of scope: the frontend is "consumed as a producer of AST
// trees", codegen as "a producer of .c files from AST"), so buildOne below
// reports coerr.NotSupported for anything that isn't already cached.
func cmdBuild(ctx context.Context, rt *compis.Runtime, args []string) error {
	fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
	targetFlag := fs.StringP("target", "", "x86_64-linux", "target triple (arch-sys[.sysver])")
	buildDir := fs.String("build-dir", "", "build products root (default: {cocache}/build)")
	debugMode := fs.BoolP("debug", "d", false, "build in debug mode")
	lto := fs.Bool("lto", false, "enable LTO sysroot variant")
	jobs := fs.IntP("j", "j", rt.Comaxproc, "max concurrent jobs")
	verbose := fs.CountP("verbose", "v", "increase verbosity (cumulative)")
	_ = fs.Bool("no-link", false, "stop after producing objects, don't link")
	_ = fs.Bool("no-main", false, "build without synthesizing a main entry point")
	_ = fs.Bool("no-stdruntime", false, "don't link std/runtime implicitly")
	_ = fs.Bool("print-ast", false, "print the decoded AST of each built package")
	_ = fs.Bool("print-ir", false, "print generated C before compiling it")
	out := fs.StringP("o", "o", "", "output binary path")
	sandbox := fs.Bool("sandbox", false, "mount the sysroot read-only via internal/roview instead of passing --sysroot directly")
	statusSocket := fs.String("status-socket", "", "serve build status over a unix gRPC socket at this path (see internal/buildsvc)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rt.Verbose += *verbose

	t, err := target.Parse(*targetFlag)
	if err != nil {
		return coerr.Wrap("parse --target", err)
	}
	mode := target.ModeOpt
	if *debugMode {
		mode = target.ModeDebug
	}

	cfg, err := conf.Load(rt.Coroot)
	if err != nil {
		return coerr.Wrap("load config", err)
	}
	override := cfg.ForTarget(t)

	sysrootDir := rt.SysrootCache(t, mode, *lto)
	if override.Sysroot != "" {
		sysrootDir = override.Sysroot
	}

	clangPath := toolPath(rt.Coroot, "clang")
	arPath := toolPath(rt.Coroot, "llvm-ar")

	sysOpts := sysroot.Options{
		SysrootDir: sysrootDir,
		LockDir:    rt.Cocache,
		Target:     t,
		Mode:       mode,
		LTO:        *lto,
		SourceRoot: rt.Coroot,
		SysIncDir:  rt.SysIncDir(),
		Clang:      execClang{path: clangPath},
		Linker:     execLinker{arPath: arPath, clangPath: clangPath},
		MaxJobs:    *jobs,
	}
	if err := sysroot.EnsureBuilt(ctx, sysOpts); err != nil {
		return coerr.Wrap("ensure sysroot built", err)
	}

	// clangSysroot is the --sysroot path every compile job under this
	// build sees: the real on-disk sysroot directory, or — when -sandbox
	// is set — a read-only FUSE view over it, so a misbehaving compile
	// step can't write back into the shared sysroot cache.
	clangSysroot := sysrootDir
	if *sandbox {
		mountpoint := filepath.Join(rt.Cocache, "roview-"+t.Dirname(mode, *lto))
		if err := os.MkdirAll(mountpoint, 0755); err != nil {
			return coerr.Wrap("mkdir roview mountpoint", err)
		}
		mounted, err := roview.Mount(sysrootDir, mountpoint)
		if err != nil {
			return coerr.Wrap("mount sysroot view", err)
		}
		defer mounted.Unmount()
		clangSysroot = mountpoint
	}

	buildRoot := *buildDir
	if buildRoot == "" {
		buildRoot = filepath.Join(rt.Cocache, "build")
	}
	pkgBuildRoot := filepath.Join(buildRoot, mode.String()+"-"+t.String())

	ix := pkgindex.NewIndex()

	pkgPaths := fs.Args()
	if len(pkgPaths) == 0 {
		pkgPaths = []string{"."}
	}

	var roots []*pkgindex.Package
	for _, p := range pkgPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return coerr.Wrap("resolve "+p, err)
		}
		pkg, _ := ix.Intern(abs, p)
		roots = append(roots, pkg)
	}

	statusSvc := buildsvc.NewServer()

	if *statusSocket != "" {
		os.Remove(*statusSocket)
		lis, err := net.Listen("unix", *statusSocket)
		if err != nil {
			return coerr.Wrap("listen on "+*statusSocket, err)
		}
		grpcSrv, err := statusSvc.Serve(lis)
		if err != nil {
			lis.Close()
			return coerr.Wrap("serve build status on "+*statusSocket, err)
		}
		defer grpcSrv.GracefulStop()
	}

	// resolveDeps would normally turn a package's parsed import statements
	// into resolver.Resolve calls; with no frontend linked in to parse
	// those statements out of its source files, a root has no discoverable
	// dependencies beyond itself.
	resolveDeps := func(pkg *pkgindex.Package) ([]*pkgindex.Package, error) {
		return nil, nil
	}

	buildOne := func(pkg *pkgindex.Package) error {
		pkgDir := filepath.Join(pkgBuildRoot, "pkg", pkg.ImportPath)
		metaPath := metafile.Path(pkgDir)
		prev, err := metafile.Read(metaPath)
		if err != nil {
			return coerr.Wrap("read metafile for "+pkg.ImportPath, err)
		}

		inputDigest := metafile.InputDigestOf(pkg.Sources())
		if metafile.Fresh(prev, pkg.APIHash, inputDigest) {
			statusSvc.SetStatus(pkg.ImportPath, "cached", nil)
			return nil
		}

		if rt.Verbose > 0 {
			fmt.Fprintf(os.Stderr, "compis: would compile %s against sysroot %s\n", pkg.ImportPath, clangSysroot)
		}
		return coerr.Wrap(
			fmt.Sprintf("build %s: no Co frontend/codegen linked into this driver binary", pkg.ImportPath),
			coerr.NotSupported)
	}

	for _, root := range roots {
		if err := pkgindex.BuildTransitive(root, resolveDeps, buildOne); err != nil {
			return coerr.Wrap("build "+root.ImportPath, err)
		}
	}

	plan, err := orchestrator.NewPlan(roots)
	if err != nil {
		return coerr.Wrap("plan package graph", err)
	}
	orchOpts := orchestrator.Options{
		Workers: *jobs,
		OnStatus: func(pkg *pkgindex.Package, state string, err error) {
			statusSvc.SetStatus(pkg.ImportPath, state, err)
		},
	}
	if err := orchestrator.Run(ctx, plan, orchOpts, func(ctx context.Context, pkg *pkgindex.Package) error {
		return buildOne(pkg)
	}); err != nil {
		return coerr.Wrap("orchestrate build", err)
	}

	if *out != "" && rt.Verbose > 0 {
		fmt.Fprintf(os.Stderr, "compis: would link final output to %s\n", *out)
	}
	return nil
}

// cmdTargets prints the canonical target triples compis knows how to build
// a sysroot for. internal/target has no such table of its own (Arch has no
// predefined constants, unlike Sys), so this list is a CLI-level
// convenience, not something internal/target exposes.
func cmdTargets(ctx context.Context, rt *compis.Runtime, args []string) error {
	arches := []string{"x86_64", "aarch64"}
	syses := []target.Sys{target.SysLinux, target.SysMacOS, target.SysWASI, target.SysNone}
	for _, arch := range arches {
		for _, sys := range syses {
			fmt.Println(target.Target{Arch: target.Arch(arch), Sys: sys}.String())
		}
	}
	return nil
}

// cmdBuildSysroot is the hidden compis-build-sysroot companion verb: a thin
// standalone wrapper around sysroot.EnsureBuilt, usable to pre-warm a
// sysroot cache without resolving or building any packages.
func cmdBuildSysroot(ctx context.Context, rt *compis.Runtime, args []string) error {
	fs := pflag.NewFlagSet("compis-build-sysroot", pflag.ContinueOnError)
	targetFlag := fs.StringP("target", "", "x86_64-linux", "target triple (arch-sys[.sysver])")
	debugMode := fs.BoolP("debug", "d", false, "build in debug mode")
	lto := fs.Bool("lto", false, "enable LTO sysroot variant")
	needCXX := fs.Bool("libcxx", false, "also build libc++/libc++abi/libunwind")
	jobs := fs.IntP("j", "j", rt.Comaxproc, "max concurrent jobs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := target.Parse(*targetFlag)
	if err != nil {
		return coerr.Wrap("parse --target", err)
	}
	mode := target.ModeOpt
	if *debugMode {
		mode = target.ModeDebug
	}

	clangPath := toolPath(rt.Coroot, "clang")
	arPath := toolPath(rt.Coroot, "llvm-ar")

	sysOpts := sysroot.Options{
		SysrootDir: rt.SysrootCache(t, mode, *lto),
		LockDir:    rt.Cocache,
		Target:     t,
		Mode:       mode,
		LTO:        *lto,
		NeedLibCXX: *needCXX,
		SourceRoot: rt.Coroot,
		SysIncDir:  rt.SysIncDir(),
		Clang:      execClang{path: clangPath},
		Linker:     execLinker{arPath: arPath, clangPath: clangPath},
		MaxJobs:    *jobs,
	}
	return coerr.Wrap("build sysroot for "+t.String(), sysroot.EnsureBuilt(ctx, sysOpts))
}
