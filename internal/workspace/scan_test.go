package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"scriptpack/internal/ignore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func matcher(t *testing.T, patterns ...string) *ignore.Matcher {
	t.Helper()
	m, err := ignore.Compile(patterns)
	require.NoError(t, err)
	return m
}

func TestScanPythonScenario(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py":              "print('a')",
		"b.pyc":             "compiled",
		"__pycache__/x.pyc": "compiled",
	})

	s := &Scanner{Matcher: matcher(t, "*.pyc", "__pycache__/")}
	snap, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.py"}, Plan(snap).Names())
}

func TestScanPrunesIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"keep.py":            "k",
		".git/HEAD":          "ref",
		".git/objects/ab/cd": "obj",
		"pkg/mod.py":         "m",
	})

	var visited []string
	s := &Scanner{
		Matcher: matcher(t, ".git/"),
		Skip: func(rel string, isDir bool) bool {
			visited = append(visited, rel)
			return false
		},
	}

	snap, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"keep.py", "pkg/mod.py"}, snap.Paths())
	for _, v := range visited {
		assert.NotContains(t, v, ".git/", "descendant of ignored dir was visited")
	}
}

func TestScanRecordsSizeAndModTime(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "hello"})

	snap, err := (&Scanner{}).Scan(root)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "a.txt"))
	require.NoError(t, err)

	e := snap.Entries["a.txt"]
	assert.Equal(t, int64(5), e.Size)
	assert.True(t, e.ModTime.Equal(info.ModTime()))
}

func TestScanEmptyDirPolicy(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.py":           "a",
		"full/b.py":      "b",
		"only_pyc/c.pyc": "c",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "nested"), 0755))

	m := matcher(t, "*.pyc")

	omit, err := (&Scanner{Matcher: m}).Scan(root)
	require.NoError(t, err)
	assert.Empty(t, omit.EmptyDirs)
	assert.Equal(t, []string{"a.py", "full/b.py"}, Plan(omit).Names())

	keep, err := (&Scanner{Matcher: m, PreserveEmptyDirs: true}).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty/nested", "only_pyc"}, keep.EmptyDirs)
	assert.Equal(t, []string{"a.py", "empty/nested/", "full/b.py", "only_pyc/"}, Plan(keep).Names())
}

func TestScanMissingRoot(t *testing.T) {
	_, err := (&Scanner{}).Scan(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestScanSkipsSymlinkedDirs(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "a"})
	writeFiles(t, outside, map[string]string{"secret.py": "s"})

	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	snap, err := (&Scanner{}).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, snap.Paths())
}

func TestScanEmptyDirsInWideTree(t *testing.T) {
	root := t.TempDir()
	for i := range 300 {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "wide", fmt.Sprintf("d%03d", i)), 0755))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "out", "build"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "outer", "inner"), 0755))

	snap, err := (&Scanner{Matcher: matcher(t, "build/"), PreserveEmptyDirs: true}).Scan(root)
	require.NoError(t, err)

	assert.Len(t, snap.EmptyDirs, 302)
	assert.Contains(t, snap.EmptyDirs, "wide/d000")
	assert.Contains(t, snap.EmptyDirs, "wide/d299")
	assert.Contains(t, snap.EmptyDirs, "out")
	assert.Contains(t, snap.EmptyDirs, "outer/inner")
	assert.NotContains(t, snap.EmptyDirs, "wide")
	assert.NotContains(t, snap.EmptyDirs, "outer")
}
