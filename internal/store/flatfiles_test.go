package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPreviousMissing(t *testing.T) {
	name, exists, err := ReadPrevious(filepath.Join(t.TempDir(), "previous"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, name)
}

func TestWriteAndReadPreviousAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "previous")

	require.NoError(t, WritePreviousAtomic(path, "20260101"))

	name, exists, err := ReadPrevious(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "20260101", name)

	// Overwriting replaces the pointer, and leaves no temp file behind.
	require.NoError(t, WritePreviousAtomic(path, "20260102"))
	name, exists, err = ReadPrevious(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "20260102", name)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadExclusionsMissing(t *testing.T) {
	exclusions, err := ReadExclusions(filepath.Join(t.TempDir(), "exclusions"))
	require.NoError(t, err)
	assert.Empty(t, exclusions)
}

func TestReadExclusionsParsesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exclusions")
	content := "/data/tmp\n\n/data/cache\n  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	exclusions, err := ReadExclusions(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"/data/tmp": true, "/data/cache": true}, exclusions)
}
