package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrh/backup/internal/notify"
	"github.com/ejrh/backup/internal/volume"
)

func writeFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}

func TestReuseZeroSizeNeverLinks(t *testing.T) {
	root := t.TempDir()
	m := New(root, volume.NewMemory(), notify.NewLogrus(nil))

	assert.False(t, m.Reuse("deadbeef", 0, "a/empty.txt"))
	assert.Empty(t, m.Entries()["deadbeef"])
}

func TestReuseFirstSighting(t *testing.T) {
	root := t.TempDir()
	m := New(root, volume.NewMemory(), notify.NewLogrus(nil))

	writeFile(t, root, "a/one.txt", []byte("hello"))

	linked := m.Reuse("hash1", 5, "a/one.txt")
	assert.False(t, linked)
	assert.Equal(t, []string{"a/one.txt"}, m.Entries()["hash1"])
}

func TestReuseMatchCreatesHardlink(t *testing.T) {
	root := t.TempDir()
	m := New(root, volume.NewMemory(), notify.NewLogrus(nil))

	writeFile(t, root, "a/one.txt", []byte("hello"))
	m.Reuse("hash1", 5, "a/one.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0755))

	linked := m.Reuse("hash1", 5, "b/two.txt")
	require.True(t, linked)

	info1, err := os.Stat(filepath.Join(root, "a/one.txt"))
	require.NoError(t, err)
	info2, err := os.Stat(filepath.Join(root, "b/two.txt"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(info1, info2))

	// The matched candidate is pushed back on top so it is the first one
	// tried next time, not the just-written path.
	assert.Equal(t, []string{"b/two.txt", "a/one.txt"}, m.Entries()["hash1"])
}

func TestReuseSizeMismatchSkipsCandidate(t *testing.T) {
	root := t.TempDir()
	m := New(root, volume.NewMemory(), notify.NewLogrus(nil))

	writeFile(t, root, "a/one.txt", []byte("12345"))
	m.entries["hash1"] = []string{"a/one.txt"}

	// Recorded size is 999, but the on-disk file is 5 bytes: no match.
	linked := m.Reuse("hash1", 999, "b/two.txt")
	assert.False(t, linked)
	assert.Equal(t, []string{"a/one.txt", "b/two.txt"}, m.Entries()["hash1"])
}

func TestReuseMissingCandidateIsDropped(t *testing.T) {
	root := t.TempDir()
	m := New(root, volume.NewMemory(), notify.NewLogrus(nil))

	// "a/gone.txt" was recorded but no longer exists on disk.
	m.entries["hash1"] = []string{"a/gone.txt"}

	linked := m.Reuse("hash1", 5, "b/two.txt")
	assert.False(t, linked)
	assert.Equal(t, []string{"b/two.txt"}, m.Entries()["hash1"])
}

func TestMarshalUnmarshalEntriesRoundTrip(t *testing.T) {
	paths := []string{"a/one.txt", "b/two.txt"}
	b, err := MarshalEntries(paths)
	require.NoError(t, err)

	got, err := UnmarshalEntries(b)
	require.NoError(t, err)
	assert.Equal(t, paths, got)
}
