// Package strlist implements a small ordered, deduplicating string list
// (original_source/src/strlist.c), used throughout the original for
// assembling compiler flag lists (CFLAGS, LDFLAGS) without growing
// duplicate entries. Reimplemented as a thin helper in the spirit of
// distri's own small internal/ leaf packages rather than as a generic
// container type, since its only use here is flag assembly.
package strlist

import "fmt"

// List is an ordered set of strings: Add is a no-op for a value already
// present, preserving the first-seen order.
type List struct {
	items []string
	seen  map[string]bool
}

// New returns an empty List.
func New() *List {
	return &List{seen: make(map[string]bool)}
}

// Add appends each of vals not already present, in order, skipping empty
// strings (the original's flag-assembly macros routinely pass "" for a
// conditionally-omitted flag).
func (l *List) Add(vals ...string) {
	for _, v := range vals {
		if v == "" || l.seen[v] {
			continue
		}
		l.seen[v] = true
		l.items = append(l.items, v)
	}
}

// Addf formats and appends a single flag.
func (l *List) Addf(format string, args ...interface{}) {
	l.Add(fmt.Sprintf(format, args...))
}

// Strings returns the list's contents in insertion order. The returned
// slice must not be modified.
func (l *List) Strings() []string {
	return l.items
}

// Len reports the number of distinct entries.
func (l *List) Len() int {
	return len(l.items)
}
