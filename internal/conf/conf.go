// Package conf loads compis's INI configuration file (spec.md §6): global
// keys plus per-target override sections named after a target triple
// (e.g. "[aarch64-linux]", "[x86_64-macos.13]"), consulted in a
// first-found-wins search path. The grammar ("[section]", "key = value",
// "#"/";" comments) is confirmed against original_source/src/iniparse.c,
// which the distilled spec.md only gestures at; the loader itself uses
// gopkg.in/ini.v1 rather than reimplementing iniparse's hand-rolled
// line scanner.
package conf

import (
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/compis-build/compis/internal/coerr"
	"github.com/compis-build/compis/internal/target"
)

// Global holds the keys that apply regardless of target, readable from the
// INI file's default (unnamed) section.
type Global struct {
	Sysroot   string
	LinkFlags []string
}

// Override holds keys scoped to one target triple, read from a
// "[arch-sys[.sysver]]" section.
type Override struct {
	Sysroot   string
	LinkFlags []string
}

// Config is the parsed configuration: global defaults plus zero or more
// per-target overrides.
type Config struct {
	Global    Global
	Overrides map[string]Override // keyed by the section's triple string
}

// SearchPaths returns the first-found-wins candidate config file locations:
// $COCONFIG if set, then {coroot}/etc/compis.ini, then
// $XDG_CONFIG_HOME/compis/config.ini (or ~/.config/compis/config.ini).
func SearchPaths(coroot string) []string {
	var paths []string
	if v := os.Getenv("COCONFIG"); v != "" {
		paths = append(paths, v)
	}
	if coroot != "" {
		paths = append(paths, filepath.Join(coroot, "etc", "compis.ini"))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "compis", "config.ini"))
	}
	return paths
}

// Load reads the first existing file among SearchPaths(coroot), or returns
// a zero Config if none exist (spec.md §6: configuration is optional).
func Load(coroot string) (*Config, error) {
	for _, p := range SearchPaths(coroot) {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return &Config{Overrides: make(map[string]Override)}, nil
}

// LoadFile parses the INI file at path.
func LoadFile(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, coerr.Wrap("load config "+path, err)
	}

	cfg := &Config{Overrides: make(map[string]Override)}
	def := f.Section(ini.DefaultSection)
	cfg.Global.Sysroot = def.Key("sysroot").String()
	cfg.Global.LinkFlags = def.Key("linkflags").Strings(" ")

	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		if _, perr := target.Parse(sec.Name()); perr != nil {
			continue // not a target-triple section; ignore unknown sections
		}
		cfg.Overrides[sec.Name()] = Override{
			Sysroot:   sec.Key("sysroot").String(),
			LinkFlags: sec.Key("linkflags").Strings(" "),
		}
	}
	return cfg, nil
}

// ForTarget merges the global config with t's override section, if any,
// the override's fields winning when non-empty.
func (c *Config) ForTarget(t target.Target) Override {
	merged := Override{Sysroot: c.Global.Sysroot, LinkFlags: c.Global.LinkFlags}
	if o, ok := c.Overrides[t.String()]; ok {
		if o.Sysroot != "" {
			merged.Sysroot = o.Sysroot
		}
		if len(o.LinkFlags) > 0 {
			merged.LinkFlags = o.LinkFlags
		}
	}
	return merged
}
