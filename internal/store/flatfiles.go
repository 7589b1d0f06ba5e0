package store

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ReadPrevious loads the name of the last successful snapshot. A missing
// file is not an error: it means no previous snapshot exists yet (spec.md
// §6).
func ReadPrevious(path string) (name string, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "read previous-snapshot pointer %q", path)
	}
	return strings.TrimSpace(string(b)), true, nil
}

// WritePreviousAtomic overwrites path with name, atomically: it writes to a
// uniquely-named temp file in the same directory and renames it into place,
// so a crash mid-write never leaves a truncated or partially-written
// pointer (spec.md §4.6 steps 7-9, the success-defining sequence).
func WritePreviousAtomic(path, name string) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, ".previous-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, []byte(name), 0644); err != nil {
		return errors.Wrapf(err, "write previous-snapshot pointer temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "rename previous-snapshot pointer into place")
	}
	return nil
}

// ReadExclusions loads the exclusion set: one path per line, blank lines
// skipped. A missing file yields an empty set, not an error, so a run
// without an exclusions file proceeds with no exclusions; the result does
// not distinguish a missing file from an empty one.
func ReadExclusions(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, errors.Wrapf(err, "read exclusions %q", path)
	}
	defer f.Close()

	exclusions := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		exclusions[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan exclusions %q", path)
	}
	return exclusions, nil
}
