package dedupe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrh/backup/internal/notify"
)

func TestWalkReportsDuplicateContent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("same content"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("same content"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.txt"), []byte("different"), 0644))

	d := New(notify.NewLogrus(nil))
	require.NoError(t, d.Walk(root))

	require.Len(t, d.Candidates, 1)
	assert.Equal(t, filepath.Join(root, "a.txt"), d.Candidates[0].ExistingPath)
	assert.Equal(t, filepath.Join(root, "sub", "b.txt"), d.Candidates[0].NewPath)
}

func TestWalkSkipsAlreadyLinkedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("same content"), 0644))
	require.NoError(t, os.Link(filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")))

	d := New(notify.NewLogrus(nil))
	require.NoError(t, d.Walk(root))

	// a.txt and b.txt are already the same file identity, so no candidate
	// should be reported for them.
	assert.Empty(t, d.Candidates)
}

func TestWalkMissingDirTreatedAsEmpty(t *testing.T) {
	d := New(notify.NewLogrus(nil))
	require.NoError(t, d.Walk(filepath.Join(t.TempDir(), "nope")))
	assert.Empty(t, d.Candidates)
}
