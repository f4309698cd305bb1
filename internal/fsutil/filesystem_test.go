package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	dir := t.TempDir()
	path := filepath.Join(dir, "maps", "arena.txt")

	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, fsys.WriteFile(path, []byte("000\n"), 0o644))
	assert.True(t, fsys.Exists(path))

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "000\n", string(data))

	info, err := fsys.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size())

	w, err := fsys.Create(filepath.Join(dir, "out.png"))
	require.NoError(t, err)
	_, err = w.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.True(t, fsys.Exists(filepath.Join(dir, "out.png")))

	assert.False(t, fsys.Exists(filepath.Join(dir, "missing")))
}

func TestMemoryFileSystemReadWrite(t *testing.T) {
	m := NewMemoryFileSystem()

	require.NoError(t, m.WriteFile("/maps/a.txt", []byte("010"), 0o644))
	data, err := m.ReadFile("/maps/./a.txt")
	require.NoError(t, err)
	assert.Equal(t, "010", string(data))

	// Returned slices do not alias stored data.
	data[0] = 'X'
	again, _ := m.ReadFile("/maps/a.txt")
	assert.Equal(t, "010", string(again))

	_, err = m.ReadFile("/maps/b.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystemCreate(t *testing.T) {
	m := NewMemoryFileSystem()

	w, err := m.Create("/reports/run.html")
	require.NoError(t, err)
	assert.True(t, m.Exists("/reports/run.html"))

	_, _ = w.Write([]byte("<html>"))
	_, _ = w.Write([]byte("</html>"))
	require.NoError(t, w.Close())

	data, err := m.ReadFile("/reports/run.html")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	info, err := m.Stat("/reports/run.html")
	require.NoError(t, err)
	assert.Equal(t, int64(13), info.Size())
	assert.False(t, info.IsDir())
}

func TestMemoryFileSystemDirs(t *testing.T) {
	m := NewMemoryFileSystem()
	require.NoError(t, m.MkdirAll("/a/b/c", 0o755))

	for _, dir := range []string{"/a", "/a/b", "/a/b/c"} {
		assert.True(t, m.Exists(dir), dir)
		info, err := m.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	_, err := m.Stat("/z")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystemFiles(t *testing.T) {
	m := NewMemoryFileSystem()
	_ = m.WriteFile("/out/b.png", nil, 0o644)
	_ = m.WriteFile("/out/a.html", nil, 0o644)
	_ = m.WriteFile("/other/c.txt", nil, 0o644)

	assert.Equal(t, []string{"/out/a.html", "/out/b.png"}, m.Files("/out"))
	assert.Empty(t, m.Files("/none"))
}
