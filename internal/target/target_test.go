package target

import "testing"

func TestParseTriple(t *testing.T) {
	cases := []struct {
		triple  string
		want    Target
		wantErr bool
	}{
		{"aarch64-linux", Target{Arch: "aarch64", Sys: SysLinux}, false},
		{"x86_64-macos.13", Target{Arch: "x86_64", Sys: SysMacOS, SysVer: "13"}, false},
		{"wasm32-wasi", Target{Arch: "wasm32", Sys: SysWASI}, false},
		{"no-dash", Target{}, true},
		{"-linux", Target{}, true},
		{"aarch64-", Target{}, true},
	}
	for _, c := range cases {
		got, err := Parse(c.triple)
		if c.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %+v", c.triple, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", c.triple, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %+v, want %+v", c.triple, got, c.want)
		}
	}
}

func TestTargetStringRoundTrips(t *testing.T) {
	for _, triple := range []string{"aarch64-linux", "x86_64-macos.13", "wasm32-wasi", "x86_64-none"} {
		got, err := Parse(triple)
		if err != nil {
			t.Fatalf("Parse(%q): %v", triple, err)
		}
		if got.String() != triple {
			t.Errorf("Parse(%q).String() = %q", triple, got.String())
		}
	}
}

func TestDirnameAppendsQualifiers(t *testing.T) {
	tg := Target{Arch: "aarch64", Sys: SysLinux}
	if got, want := tg.Dirname(ModeOpt, false), "aarch64-linux"; got != want {
		t.Errorf("Dirname(opt, no-lto) = %q, want %q", got, want)
	}
	if got, want := tg.Dirname(ModeDebug, true), "aarch64-linux-lto-debug"; got != want {
		t.Errorf("Dirname(debug, lto) = %q, want %q", got, want)
	}
}

func TestHasSyslib(t *testing.T) {
	linux := Target{Arch: "x86_64", Sys: SysLinux}
	wasi := Target{Arch: "wasm32", Sys: SysWASI}
	none := Target{Arch: "x86_64", Sys: SysNone}

	if !linux.HasSyslib(SyslibUnwind) {
		t.Error("linux should require an unwinder")
	}
	if wasi.HasSyslib(SyslibUnwind) {
		t.Error("wasi has no unwinder")
	}
	if none.HasSyslib(SyslibC) {
		t.Error("freestanding targets don't link libc")
	}
}

func TestFilenameKnownLibs(t *testing.T) {
	linux := Target{Arch: "x86_64", Sys: SysLinux}
	macos := Target{Arch: "aarch64", Sys: SysMacOS}

	if got, want := linux.Filename(SyslibC), "libc.a"; got != want {
		t.Errorf("linux libc filename = %q, want %q", got, want)
	}
	if got, want := macos.Filename(SyslibC), "libSystem.tbd"; got != want {
		t.Errorf("macos libc filename = %q, want %q", got, want)
	}
	if got, want := linux.Filename(SyslibCXX), "libc++.a"; got != want {
		t.Errorf("libc++ filename = %q, want %q", got, want)
	}
}
