// Package manifest implements the content-hash manifest index (spec.md
// §4.4): a persistent map from content hash to a LIFO stack of
// snapshot-relative paths, used to intra/inter-snapshot deduplicate via hard
// links.
package manifest

import (
	"encoding/json"
	"os"

	"github.com/ejrh/backup/internal/notify"
	"github.com/ejrh/backup/internal/volume"
)

// Manifest is the hash -> []path index. It is not safe for concurrent use;
// the engine is single-threaded per spec.md §5.
type Manifest struct {
	// targetRoot is the target directory the recorded paths are relative
	// to (i.e. paths stored are "<snapshot>/<rel>").
	targetRoot string
	entries    map[string][]string
	links      volume.Adapter
	notifier   notify.Notifier
}

// New returns an empty Manifest rooted at targetRoot, using links to
// materialise hard links and notifier to report warnings.
func New(targetRoot string, links volume.Adapter, notifier notify.Notifier) *Manifest {
	return &Manifest{targetRoot: targetRoot, entries: map[string][]string{}, links: links, notifier: notifier}
}

// Load replaces the manifest's contents from a previously serialised form.
func (m *Manifest) Load(entries map[string][]string) {
	if entries == nil {
		entries = map[string][]string{}
	}
	m.entries = entries
}

// Entries returns the manifest's contents for serialisation.
func (m *Manifest) Entries() map[string][]string {
	return m.entries
}

// Reuse implements spec.md §4.4's reuse: given the content hash and size of
// a file about to be written at newPath (target-relative), it tries to hard
// link newPath to a previously-recorded path with the same hash and size.
// It returns true iff the link was made.
func (m *Manifest) Reuse(hash string, size int64, newPath string) bool {
	if size == 0 {
		return false
	}

	candidates, known := m.entries[hash]
	if !known {
		m.entries[hash] = []string{newPath}
		return false
	}

	var sizeMismatched []string
	var matched string
	for len(candidates) > 0 {
		n := candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]

		info, err := os.Stat(m.path(n))
		if err != nil {
			m.notifier.Warning(n, "manifest candidate missing: %v", err)
			continue
		}
		if info.Size() != size {
			m.notifier.Warning(n, "manifest candidate size mismatch (expected %d, was %d)", size, info.Size())
			sizeMismatched = append(sizeMismatched, n)
			continue
		}
		matched = n
		break
	}

	// Size-mismatched candidates move to the front so the most-recently
	// written match bubbles to the top of the LIFO stack on the next pop.
	candidates = append(sizeMismatched, candidates...)

	if matched == "" {
		m.entries[hash] = append(candidates, newPath)
		return false
	}

	if err := m.links.Hardlink(m.path(matched), m.path(newPath)); err != nil {
		m.notifier.Warning(newPath, "unable to reuse from manifest: %v", err)
		m.entries[hash] = append(candidates, newPath)
		return false
	}

	m.entries[hash] = append(candidates, newPath, matched)
	return true
}

func (m *Manifest) path(rel string) string {
	return m.targetRoot + "/" + rel
}

// MarshalEntries JSON-encodes the manifest's entries for a single hash, for
// storage in internal/store.KV.
func MarshalEntries(paths []string) ([]byte, error) {
	return json.Marshal(paths)
}

// UnmarshalEntries decodes a single hash's path list.
func UnmarshalEntries(b []byte) ([]string, error) {
	var paths []string
	err := json.Unmarshal(b, &paths)
	return paths, err
}
