package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree 按 相对路径 -> 内容 创建文件，内容为 nil 时创建目录
func writeTree(t *testing.T, root string, entries map[string][]byte) {
	t.Helper()
	for rel, body := range entries {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if body == nil {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, body, 0o644))
	}
}

func TestBuildSortsAndKeepsEmptyDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"a/z.txt": []byte("z"),
		"a/a.txt": []byte("a"),
		"b":       nil,
	})

	m, err := Build(Options{Root: root})
	require.NoError(t, err)

	assert.Equal(t, Manifest{RootKey: {
		"a": {"a.txt", "z.txt"},
		"b": {},
	}}, m)
}

func TestBuildNestedAndRootFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"top.txt":                []byte("skipped"),
		"images/cat.png":         []byte("c"),
		"images/icons/star.png":  []byte("s"),
		"images/icons/arrow.png": []byte("a"),
	})

	m, err := Build(Options{Root: root})
	require.NoError(t, err)

	tree := m[RootKey]
	assert.Len(t, tree, 2)
	assert.Equal(t, []string{"cat.png"}, tree["images"])
	assert.Equal(t, []string{"arrow.png", "star.png"}, tree["images/icons"])
}

func TestBuildIgnore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"a/keep.txt":      []byte("k"),
		"a/.DS_Store":     []byte("x"),
		"a/deep/.gitkeep": []byte(""),
	})

	m, err := Build(Options{Root: root, Ignore: []string{"**/.DS_Store", "**/.gitkeep"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, m[RootKey]["a"])
	assert.Equal(t, []string{}, m[RootKey]["a/deep"])

	_, err = Build(Options{Root: root, Ignore: []string{"[unclosed"}})
	assert.Error(t, err)
}

func TestBuildSkipsDirectoryLinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"a/real/x.txt": []byte("x"),
		"a/y.txt":      []byte("y"),
	})
	if err := os.Symlink(filepath.Join(root, "a", "real"), filepath.Join(root, "a", "link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(root, "a", "y.txt"), filepath.Join(root, "a", "y-link.txt")))

	m, err := Build(Options{Root: root})
	require.NoError(t, err)

	assert.Equal(t, Manifest{RootKey: {
		"a":      {"y-link.txt", "y.txt"},
		"a/real": {"x.txt"},
	}}, m)
}

func TestBuildMissingRoot(t *testing.T) {
	_, err := Build(Options{Root: filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestGenerateRewritesOutput(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"a/z.txt": []byte("z"),
		"a/a.txt": []byte("a"),
		"b":       nil,
		FileName:  []byte(`{"stale": true}`),
	})

	path, _, err := Generate(Options{Root: root}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := `{
  "/files": {
    "a": [
      "a.txt",
      "z.txt"
    ],
    "b": []
  }
}`
	assert.Equal(t, want, string(data))

	var decoded map[string]map[string][]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "stale")
}
