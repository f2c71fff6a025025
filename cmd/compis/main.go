// Command compis is the Co compiler driver's multicall entry point: the
// "build" verb plus the hidden compis-build-sysroot companion, the
// LLVM/LLD tool-forwarding verbs (cc, as, ar, ld*, -cc1, -cc1as), and a
// handful of informational verbs (help, version, targets). Modeled on
// distri's own cmd/distri/distri.go funcmain()/verbs dispatch table.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	compis "github.com/compis-build/compis"
)

var version = "dev"

type cmd struct {
	fn   func(ctx context.Context, rt *compis.Runtime, args []string) error
	help string
}

func verbs() map[string]cmd {
	v := map[string]cmd{
		"build": {cmdBuild, "compile a Co package and its dependencies"},
		"compis-build-sysroot": {cmdBuildSysroot,
			"build a target's sysroot without building any packages"},
		"targets": {cmdTargets, "list target triples compis can build a sysroot for"},
		"version": {func(ctx context.Context, rt *compis.Runtime, args []string) error {
			fmt.Println(version)
			return nil
		}, "print the compis version"},
	}
	for verb, real := range llvmTool {
		verb, real := verb, real
		v[verb] = cmd{
			fn: func(ctx context.Context, rt *compis.Runtime, args []string) error {
				return cmdMulticall(ctx, rt.Coroot, verb, args)
			},
			help: "forward to the bundled/system " + real,
		}
	}
	return v
}

func printHelp(v map[string]cmd) {
	fmt.Fprintf(os.Stderr, "compis [-flags] <command> [-flags] <args>\n\n")
	fmt.Fprintf(os.Stderr, "To get help on any command, use compis <command> -help.\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	for _, name := range []string{"build", "targets", "version"} {
		fmt.Fprintf(os.Stderr, "\t%-22s %s\n", name, v[name].help)
	}
	fmt.Fprintf(os.Stderr, "\nTool-forwarding commands (clang/LLD passthrough):\n")
	for verb := range llvmTool {
		fmt.Fprintf(os.Stderr, "\t%-22s %s\n", verb, v[verb].help)
	}
}

func funcmain() error {
	// clang expects "-cc1"/"-cc1as" as its own argv[0]-adjacent first
	// argument when self-reexecing for integrated-assembler invocations;
	// detect that form before any flag parsing, the same way distri
	// recognizes os.Args[0] == "/entrypoint" ahead of its own flag.Parse.
	if len(os.Args) > 1 && (os.Args[1] == "-cc1" || os.Args[1] == "-cc1as") {
		rt, err := compis.NewRuntime()
		if err != nil {
			return err
		}
		ctx, canc := compis.InterruptibleContext()
		defer canc()
		return cmdMulticall(ctx, rt.Coroot, os.Args[1], os.Args[2:])
	}

	debug := pflag.Bool("debug", false, "format error messages with additional detail")
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	rt, err := compis.NewRuntime()
	if err != nil {
		return err
	}

	args := pflag.Args()
	verb := "build"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	v := verbs()

	if verb == "help" {
		if len(args) != 1 {
			printHelp(v)
			os.Exit(2)
		}
		verb = args[0]
		args = []string{"-help"}
	}

	ctx, canc := compis.InterruptibleContext()
	defer canc()

	c, ok := v[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: compis <command> [options]\n")
		os.Exit(2)
	}
	if err := c.fn(ctx, rt, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}

	return compis.RunAtExit()
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
