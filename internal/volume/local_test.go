package volume

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrh/backup/internal/errkind"
)

func TestHardlinkCreatesSameFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0644))

	var l LocalLinks
	require.NoError(t, l.Hardlink(src, dst))

	assert.True(t, SameFile(src, dst))
}

func TestHardlinkAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0644))
	require.NoError(t, os.WriteFile(dst, []byte("other"), 0644))

	var l LocalLinks
	err := l.Hardlink(src, dst)
	assert.True(t, errors.Is(err, errkind.AlreadyExists))
}

func TestDirSymlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "srcdir")
	dst := filepath.Join(dir, "dstdir")
	require.NoError(t, os.Mkdir(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f.txt"), []byte("x"), 0644))

	var l LocalLinks
	require.NoError(t, l.DirSymlink(src, dst))

	b, err := os.ReadFile(filepath.Join(dst, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(b))
}

func TestSameFileFalseForDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("1"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("2"), 0644))

	assert.False(t, SameFile(a, b))
}
