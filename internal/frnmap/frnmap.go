// Package frnmap implements the FRN directory map (spec.md §4.2): a
// persistent map from a directory's file reference number to its parent FRN
// and name, used to reconstruct a path from a bare FRN even after the
// directory's own ancestors have since been renamed.
package frnmap

import "github.com/ejrh/backup/internal/volume"

// entry is one FRN's parent pointer and name.
type entry struct {
	ParentFRN volume.FRN
	Name      string
}

// maxDepth bounds the recursive walk in BuildPath so a corrupted state file
// that introduces a cycle can't exhaust the stack (spec.md §4.2 and §9).
const maxDepth = 4096

// Map is the FRN→(parent FRN, name) directory map. The zero value is ready
// to use. Map is not safe for concurrent use; the replayer that owns it
// runs single-threaded per spec.md §5.
type Map struct {
	entries map[volume.FRN]entry
}

// New returns an empty Map.
func New() *Map {
	return &Map{entries: make(map[volume.FRN]entry)}
}

// Set unconditionally overwrites the entry for frn.
func (m *Map) Set(frn, parentFRN volume.FRN, name string) {
	if m.entries == nil {
		m.entries = make(map[volume.FRN]entry)
	}
	m.entries[frn] = entry{ParentFRN: parentFRN, Name: name}
}

// BuildPath returns the concatenation of ancestor names by repeated lookup
// of parent FRNs, e.g. "/dir1/dir2". A lookup miss — including exceeding
// maxDepth on a malformed, cyclic map — terminates the recursion and yields
// the empty string for the missing segment, rather than faulting. The
// result is not normalised; that is the caller's responsibility.
func (m *Map) BuildPath(frn volume.FRN) string {
	return m.buildPath(frn, 0)
}

func (m *Map) buildPath(frn volume.FRN, depth int) string {
	if depth >= maxDepth {
		return ""
	}
	e, ok := m.entries[frn]
	if !ok {
		return ""
	}
	return m.buildPath(e.ParentFRN, depth+1) + "/" + e.Name
}

// Entry is the serialisable form of one FRN's directory-map entry.
type Entry struct {
	FRN       volume.FRN
	ParentFRN volume.FRN
	Name      string
}

// Entries returns every entry in the map as a flat slice, for
// serialisation.
func (m *Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for frn, e := range m.entries {
		out = append(out, Entry{FRN: frn, ParentFRN: e.ParentFRN, Name: e.Name})
	}
	return out
}

// Load replaces the map's contents with the given entries (used when
// restoring from persisted journal state).
func (m *Map) Load(entries []Entry) {
	m.entries = make(map[volume.FRN]entry, len(entries))
	for _, e := range entries {
		m.entries[e.FRN] = entry{ParentFRN: e.ParentFRN, Name: e.Name}
	}
}

// Len returns the number of directory entries currently recorded.
func (m *Map) Len() int {
	return len(m.entries)
}
