package main

import "context"

// llvmTool maps a multicall verb to the real binary it forwards to,
// following actual LLVM tool naming (ld.lld for ELF, ld64.lld for Mach-O,
// lld-link for COFF, wasm-ld for WebAssembly) — spec.md §1 puts "LLVM/LLD
// bindings" out of scope, so these verbs are pure exec passthroughs, never
// a reimplementation of the tools themselves.
var llvmTool = map[string]string{
	"cc":       "clang",
	"as":       "clang", // clang -c forwards assembly the same as C.
	"ar":       "llvm-ar",
	"ld":       "ld.lld",
	"ld-macho": "ld64.lld",
	"ld-elf":   "ld.lld",
	"ld-coff":  "lld-link",
	"ld-wasm":  "wasm-ld",
	"-cc1":     "clang",
	"-cc1as":   "clang",
}

// cmdMulticall execs the real tool behind verb, forwarding args unchanged
// (plus, for the -cc1/-cc1as self-dispatch forms, the verb itself — clang
// expects "-cc1" as its own first argument).
func cmdMulticall(ctx context.Context, coroot, verb string, args []string) error {
	real, ok := llvmTool[verb]
	if !ok {
		panic("BUG: cmdMulticall called with unregistered verb " + verb)
	}
	path := toolPath(coroot, real)
	if verb == "-cc1" || verb == "-cc1as" {
		args = append([]string{verb}, args...)
	}
	return runTool(ctx, path, args)
}
