package fixtimes

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrh/backup/internal/notify"
)

func TestWalkCorrectsDriftedMtime(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	target := filepath.Join(root, "target")
	require.NoError(t, os.MkdirAll(source, 0755))
	require.NoError(t, os.MkdirAll(target, 0755))

	sourceTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.WriteFile(filepath.Join(source, "f.txt"), []byte("data"), 0644))
	require.NoError(t, os.Chtimes(filepath.Join(source, "f.txt"), sourceTime, sourceTime))

	require.NoError(t, os.WriteFile(filepath.Join(target, "f.txt"), []byte("data"), 0644))
	copyTime := time.Now()
	require.NoError(t, os.Chtimes(filepath.Join(target, "f.txt"), copyTime, copyTime))

	f := New(notify.NewLogrus(nil))
	require.NoError(t, f.Walk(target, source))

	assert.Equal(t, 1, f.Fixed)
	info, err := os.Stat(filepath.Join(target, "f.txt"))
	require.NoError(t, err)
	assert.WithinDuration(t, sourceTime, info.ModTime(), time.Second)
}

func TestWalkLeavesSmallDriftAlone(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	target := filepath.Join(root, "target")
	require.NoError(t, os.MkdirAll(source, 0755))
	require.NoError(t, os.MkdirAll(target, 0755))

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.WriteFile(filepath.Join(source, "f.txt"), []byte("data"), 0644))
	require.NoError(t, os.Chtimes(filepath.Join(source, "f.txt"), base, base))
	require.NoError(t, os.WriteFile(filepath.Join(target, "f.txt"), []byte("data"), 0644))
	require.NoError(t, os.Chtimes(filepath.Join(target, "f.txt"), base, base))

	f := New(notify.NewLogrus(nil))
	require.NoError(t, f.Walk(target, source))

	assert.Equal(t, 0, f.Fixed)
}

func TestWalkMissingSourceIsSkipped(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	target := filepath.Join(root, "target")
	require.NoError(t, os.MkdirAll(source, 0755))
	require.NoError(t, os.MkdirAll(target, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "orphan.txt"), []byte("data"), 0644))

	f := New(notify.NewLogrus(nil))
	require.NoError(t, f.Walk(target, source))
	assert.Equal(t, 0, f.Fixed)
}
