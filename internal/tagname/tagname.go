// Package tagname holds the canonical form of tag names. Both the server-side
// store and the client-side components normalize through here so the two
// sides never disagree on what a tag is called.
package tagname

import (
	"sort"
	"strings"
)

// Normalize trims and lower-cases in. Inner whitespace is kept as typed, so
// "a  b" and "a b" are different tags. The result is stable:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(in string) string {
	return strings.ToLower(strings.TrimSpace(in))
}

// NormalizeAll normalizes, drops empties and duplicates, and sorts.
func NormalizeAll(names []string) []string {
	set := make(map[string]struct{})
	for _, n := range names {
		c := Normalize(n)
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ContainsFold reports whether s contains substr, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
