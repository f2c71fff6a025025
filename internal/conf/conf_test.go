package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/compis-build/compis/internal/target"
)

func TestLoadFileGlobalAndOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compis.ini")
	contents := "" +
		"sysroot = /opt/default-sysroot\n" +
		"linkflags = -static -s\n" +
		"\n" +
		"[aarch64-linux]\n" +
		"sysroot = /opt/arm-sysroot\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Global.Sysroot != "/opt/default-sysroot" {
		t.Fatalf("got %q", cfg.Global.Sysroot)
	}
	if len(cfg.Global.LinkFlags) != 2 || cfg.Global.LinkFlags[0] != "-static" {
		t.Fatalf("got %v", cfg.Global.LinkFlags)
	}

	tgt, err := target.Parse("aarch64-linux")
	if err != nil {
		t.Fatal(err)
	}
	merged := cfg.ForTarget(tgt)
	if merged.Sysroot != "/opt/arm-sysroot" {
		t.Fatalf("expected override sysroot, got %q", merged.Sysroot)
	}
	if len(merged.LinkFlags) != 2 {
		t.Fatalf("expected global linkflags to carry through, got %v", merged.LinkFlags)
	}

	other, err := target.Parse("x86_64-macos")
	if err != nil {
		t.Fatal(err)
	}
	unmerged := cfg.ForTarget(other)
	if unmerged.Sysroot != "/opt/default-sysroot" {
		t.Fatalf("expected global fallback for untargeted section, got %q", unmerged.Sysroot)
	}
}

func TestLoadMissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent-coroot"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Global.Sysroot != "" {
		t.Fatalf("expected empty config, got %+v", cfg.Global)
	}
}
