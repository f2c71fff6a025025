package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/compis-build/compis/internal/toolchain"
)

// recordingTool writes a shell script that appends its invocation's
// arguments to logPath, one per line, each call terminated by "---".
func recordingTool(t *testing.T, logPath string) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "tool")
	body := "#!/bin/sh\nfor a in \"$@\"; do echo \"$a\" >> " + logPath + "; done\necho --- >> " + logPath + "\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	return script
}

func readInvocation(t *testing.T, logPath string) []string {
	t.Helper()
	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	var out []string
	for _, l := range lines {
		if l == "---" {
			break
		}
		out = append(out, l)
	}
	return out
}

func TestExecClangComposesSysrootFlag(t *testing.T) {
	log := filepath.Join(t.TempDir(), "log")
	c := execClang{path: recordingTool(t, log)}
	job := toolchain.CompileJob{
		Source:  "foo.c",
		Object:  "foo.o",
		Sysroot: "/sysroot",
		Flags:   []string{"-O2"},
	}
	if err := c.Compile(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	got := readInvocation(t, log)
	want := []string{"-c", "foo.c", "-o", "foo.o", "--sysroot=/sysroot", "-O2"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("Compile invoked with %v, want %v", got, want)
	}
}

func TestExecClangOmitsSysrootFlagWhenUnset(t *testing.T) {
	log := filepath.Join(t.TempDir(), "log")
	c := execClang{path: recordingTool(t, log)}
	job := toolchain.CompileJob{Source: "foo.c", Object: "foo.o"}
	if err := c.Compile(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	got := readInvocation(t, log)
	for _, arg := range got {
		if strings.HasPrefix(arg, "--sysroot") {
			t.Fatalf("unexpected sysroot flag in %v", got)
		}
	}
}

func TestExecLinkerArchiveInvokesAr(t *testing.T) {
	log := filepath.Join(t.TempDir(), "log")
	l := execLinker{arPath: recordingTool(t, log)}
	if err := l.Archive(context.Background(), []string{"a.o", "b.o"}, "out.a"); err != nil {
		t.Fatal(err)
	}
	got := readInvocation(t, log)
	want := []string{"rcs", "out.a", "a.o", "b.o"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("Archive invoked with %v, want %v", got, want)
	}
}

func TestExecLinkerLinkComposesLibFlags(t *testing.T) {
	log := filepath.Join(t.TempDir(), "log")
	l := execLinker{clangPath: recordingTool(t, log)}
	err := l.Link(context.Background(), []string{"a.o"}, []string{"m"}, []string{"/lib"}, "a.out")
	if err != nil {
		t.Fatal(err)
	}
	got := readInvocation(t, log)
	want := []string{"a.o", "-L/lib", "-lm", "-o", "a.out"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("Link invoked with %v, want %v", got, want)
	}
}

func TestExecExtractorCreatesDestDir(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "dir")
	// tar with a nonexistent archive still fails, but destDir must exist
	// by the time it's invoked.
	_ = execExtractor{}.Extract(context.Background(), "/nonexistent.tar", dest)
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected dest dir to be created: %v", err)
	}
}
