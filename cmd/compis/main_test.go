package main

import "testing"

func TestVerbsIncludesCoreCommands(t *testing.T) {
	v := verbs()
	for _, name := range []string{"build", "compis-build-sysroot", "targets", "version", "cc", "ld", "-cc1"} {
		if _, ok := v[name]; !ok {
			t.Errorf("verbs() missing %q", name)
		}
	}
}

func TestVerbsRegistersOneEntryPerLLVMTool(t *testing.T) {
	v := verbs()
	for verb := range llvmTool {
		if _, ok := v[verb]; !ok {
			t.Errorf("verbs() missing multicall verb %q", verb)
		}
	}
}
