// Package pathutil implements the normalisation contract shared by the
// journal replayer and the snapshot builder: paths are compared and keyed
// in a single canonical form regardless of how the volume adapter or the
// source tree spells them.
package pathutil

import "strings"

// Normalise lowercases a path, converts backslashes to forward slashes,
// strips a leading drive letter (e.g. "C:"), and collapses consecutive
// slashes. It is idempotent: Normalise(Normalise(p)) == Normalise(p).
func Normalise(p string) string {
	p = strings.ToLower(p)
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) >= 2 && p[1] == ':' {
		p = p[2:]
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// Ancestors returns every strict ancestor directory of the normalised path,
// shallowest first, not including the path itself. "a/b/c" yields
// ["", "a", "a/b"]; "/a/b/c" (a path rooted at the volume root, as the
// replayer builds them) yields ["", "/a", "/a/b"] — the leading slash is
// preserved so the result stays directly comparable to other normalised
// paths, rather than silently dropping the root marker partway through.
func Ancestors(p string) []string {
	p = Normalise(p)

	prefix := ""
	trimmed := p
	if strings.HasPrefix(trimmed, "/") {
		prefix = "/"
		trimmed = strings.TrimPrefix(trimmed, "/")
	}
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return []string{""}
	}

	parts := strings.Split(trimmed, "/")
	ancestors := make([]string, 0, len(parts))
	subpath := ""
	for _, c := range parts[:len(parts)-1] {
		if subpath == "" {
			subpath = c
		} else {
			subpath = subpath + "/" + c
		}
		ancestors = append(ancestors, Normalise(prefix+subpath))
	}
	// The empty-string root is always an ancestor of any non-root path.
	return append([]string{""}, ancestors...)
}

// Join joins a relative path with a child name using forward slashes,
// tolerating an empty base (the snapshot root).
func Join(base, name string) string {
	if base == "" {
		return name
	}
	return base + "/" + name
}
