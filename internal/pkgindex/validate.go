package pkgindex

import (
	"fmt"
	"strings"
)

// ImportPathError reports the byte offset of the first invalid character
// or segment in an import path (spec.md §4.C, P8).
type ImportPathError struct {
	Path   string
	Offset int
	Reason string
}

func (e *ImportPathError) Error() string {
	return fmt.Sprintf("invalid import path %q at byte %d: %s", e.Path, e.Offset, e.Reason)
}

func isAllowedPathByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-' || b == '.' || b == '/':
		return true
	}
	return false
}

// ValidateImportPath reports whether path is a valid symbolic import path:
// non-empty, '/'-separated segments, no segment empty/"."/".."/leading '-',
// and restricted to [A-Za-z0-9_-./]. Widened per
// original_source/src/path.c beyond the minimal grammar: embedded NUL bytes
// are rejected and segments are capped at 255 bytes.
func ValidateImportPath(path string) error {
	if path == "" {
		return &ImportPathError{Path: path, Offset: 0, Reason: "empty path"}
	}
	offset := 0
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		segStart := offset
		for i := 0; i < len(seg); i++ {
			b := seg[i]
			if b == 0 {
				return &ImportPathError{Path: path, Offset: offset + i, Reason: "embedded NUL byte"}
			}
			if !isAllowedPathByte(b) {
				return &ImportPathError{Path: path, Offset: offset + i, Reason: "disallowed character"}
			}
		}
		switch seg {
		case "":
			return &ImportPathError{Path: path, Offset: segStart, Reason: "empty path segment"}
		case ".":
			return &ImportPathError{Path: path, Offset: segStart, Reason: `segment "." is not allowed`}
		case "..":
			return &ImportPathError{Path: path, Offset: segStart, Reason: `segment ".." is not allowed`}
		}
		if len(seg) > 0 && seg[0] == '-' {
			return &ImportPathError{Path: path, Offset: segStart, Reason: "segment must not begin with '-'"}
		}
		if len(seg) > 255 {
			return &ImportPathError{Path: path, Offset: segStart, Reason: "segment exceeds 255 bytes"}
		}
		offset += len(seg) + 1 // +1 for the '/' separator (or would-be one)
	}
	return nil
}
