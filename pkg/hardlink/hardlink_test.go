package hardlink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLink_File(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "file.mkv")
	dst := filepath.Join(dir, "dst", "file.mkv")
	writeFile(t, src, "data")

	require.NoError(t, Link(src, dst, false))

	same, err := sameFile(src, dst)
	require.NoError(t, err)
	assert.True(t, same)
}

func TestLink_Directory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "torrent")
	dst := filepath.Join(dir, "dst", "torrent")
	writeFile(t, filepath.Join(src, "a.mkv"), "a")
	writeFile(t, filepath.Join(src, "sub", "b.srt"), "b")

	require.NoError(t, Link(src, dst, false))

	for _, rel := range []string{"a.mkv", filepath.Join("sub", "b.srt")} {
		same, err := sameFile(filepath.Join(src, rel), filepath.Join(dst, rel))
		require.NoError(t, err)
		assert.True(t, same, rel)
	}
}

func TestLink_ExistingSameFileIsNoop(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeFile(t, src, "data")
	require.NoError(t, os.Link(src, dst))

	assert.NoError(t, Link(src, dst, false))
}

func TestLink_ForceReplacesDifferentFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeFile(t, src, "new")
	writeFile(t, dst, "old")

	require.NoError(t, Link(src, dst, true))

	same, err := sameFile(src, dst)
	require.NoError(t, err)
	assert.True(t, same)

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
}

func TestLink_NoForceKeepsDifferentFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeFile(t, src, "new")
	writeFile(t, dst, "old")

	require.NoError(t, Link(src, dst, false))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(b))
}

func TestLink_CannotReplaceDirectoryWithFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "data")
	require.NoError(t, os.MkdirAll(dst, 0o755))

	assert.Error(t, Link(src, dst, true))
}

func TestLink_CannotReplaceFileWithDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, filepath.Join(src, "a.mkv"), "a")
	writeFile(t, dst, "plain file")

	assert.Error(t, Link(src, dst, true))
}

func TestLink_MissingSource(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, Link(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"), false))
}
