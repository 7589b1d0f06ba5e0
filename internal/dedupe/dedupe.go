// Package dedupe implements a read-only report over an existing directory
// tree of files that share content and could be merged into hard links,
// grounded on original_source/dedupe.py. Unlike the core snapshot engine it
// does not materialise any link itself: spec.md §1 scopes "a content-dedup
// post-pass over existing trees" out of the engine, so this stays a report,
// matching dedupe_file's own "Can dedupe" print rather than an os.link call.
package dedupe

import (
	"os"
	"path/filepath"

	"github.com/ejrh/backup/internal/hashutil"
	"github.com/ejrh/backup/internal/notify"
	"github.com/ejrh/backup/internal/volume"
)

// Candidate is one reported opportunity: newPath could be hard-linked to
// existingPath since both have content hash Hash.
type Candidate struct {
	ExistingPath string
	NewPath      string
	Hash         string
}

// Deduper walks a tree and accumulates dedup candidates, mirroring the
// Python Deduper class's frn_map/md5_map pair.
type Deduper struct {
	notifier notify.Notifier

	// identities holds one representative path per file-identity group seen
	// so far (the frn_map short-circuit): once any path in a hard-linked
	// group has been hashed, later paths sharing that identity are skipped
	// entirely rather than re-hashed.
	identities []string

	byHash map[string]string

	Candidates []Candidate
}

// New returns a Deduper ready to Walk, reporting progress via notifier.
func New(notifier notify.Notifier) *Deduper {
	return &Deduper{notifier: notifier, byHash: map[string]string{}}
}

// Walk recursively visits root, reporting a Candidate for each regular file
// whose content hash matches one already seen elsewhere in the walk.
func (d *Deduper) Walk(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		d.notifier.Warning(root, "enumeration failure, treating as empty: %v", err)
		return nil
	}
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if e.IsDir() {
			if err := d.Walk(path); err != nil {
				return err
			}
			continue
		}
		d.dedupeFile(path)
	}
	return nil
}

func (d *Deduper) dedupeFile(path string) {
	for _, seen := range d.identities {
		if volume.SameFile(path, seen) {
			return
		}
	}
	d.identities = append(d.identities, path)

	result, err := hashutil.HashFile(path, hashutil.DefaultChunkSize, hashutil.DefaultMaxChunks)
	if err != nil {
		d.notifier.Warning(path, "unable to hash: %v", err)
		return
	}
	d.notifier.Notice(path, "%s *%s", result.Hex, path)

	if existing, known := d.byHash[result.Hex]; known {
		d.Candidates = append(d.Candidates, Candidate{ExistingPath: existing, NewPath: path, Hash: result.Hex})
	}
	d.byHash[result.Hex] = path
}
