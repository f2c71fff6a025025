package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestToolPathPrefersBundledOverPath(t *testing.T) {
	coroot := t.TempDir()
	bin := filepath.Join(coroot, "bin")
	if err := os.MkdirAll(bin, 0755); err != nil {
		t.Fatal(err)
	}
	bundled := filepath.Join(bin, "clang")
	if err := os.WriteFile(bundled, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	if got := toolPath(coroot, "clang"); got != bundled {
		t.Fatalf("toolPath returned %q, want bundled %q", got, bundled)
	}
}

func TestToolPathFallsBackToBareName(t *testing.T) {
	coroot := t.TempDir()
	const name = "definitely-not-a-real-binary-xyz"
	if got := toolPath(coroot, name); got != name {
		t.Fatalf("toolPath returned %q, want bare name %q", got, name)
	}
}

func TestCmdMulticallPanicsOnUnregisteredVerb(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unregistered verb")
		}
	}()
	cmdMulticall(context.Background(), t.TempDir(), "not-a-verb", nil)
}

func TestLLVMToolTableCoversEveryMulticallVerb(t *testing.T) {
	want := []string{"cc", "as", "ar", "ld", "ld-macho", "ld-elf", "ld-coff", "ld-wasm", "-cc1", "-cc1as"}
	for _, verb := range want {
		if _, ok := llvmTool[verb]; !ok {
			t.Errorf("llvmTool missing verb %q", verb)
		}
	}
	if len(llvmTool) != len(want) {
		t.Errorf("llvmTool has %d entries, want %d", len(llvmTool), len(want))
	}
}
