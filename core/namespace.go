package core

import "strings"

// NamespacePath is the ancestry chain identifying which (possibly nested)
// worker produced a stream item, outermost first.
type NamespacePath []string

// Prepend returns a new path with segment placed in front of p.
func (p NamespacePath) Prepend(segment string) NamespacePath {
	out := make(NamespacePath, 0, len(p)+1)
	out = append(out, segment)
	return append(out, p...)
}

// Join returns prefix followed by p as a new path.
func (p NamespacePath) Join(prefix NamespacePath) NamespacePath {
	out := make(NamespacePath, 0, len(prefix)+len(p))
	out = append(out, prefix...)
	return append(out, p...)
}

// Rebase replaces the root segment with root. An empty path becomes [root].
func (p NamespacePath) Rebase(root string) NamespacePath {
	if len(p) == 0 {
		return NamespacePath{root}
	}
	out := append(NamespacePath(nil), p...)
	out[0] = root
	return out
}

// HasPrefix reports whether prefix is a leading sub-path of p.
func (p NamespacePath) HasPrefix(prefix NamespacePath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both paths hold the same segments.
func (p NamespacePath) Equal(other NamespacePath) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// String renders the path with "/" separators.
func (p NamespacePath) String() string { return strings.Join(p, "/") }

// ParseNamespacePath is the inverse of String.
func ParseNamespacePath(s string) NamespacePath {
	if s == "" {
		return nil
	}
	return NamespacePath(strings.Split(s, "/"))
}
