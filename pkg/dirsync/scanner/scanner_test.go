package scanner

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dirsync/pkg/dirsync/logging"
	"github.com/jamesainslie/dirsync/pkg/dirsync/types"
)

// writeTree creates files (relative path -> content) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relPaths(set types.FileSet) []string {
	paths := make([]string, 0, len(set))
	for k := range set {
		paths = append(paths, k.RelPath)
	}
	sort.Strings(paths)
	return paths
}

func TestScanDir_FlatDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"file1.txt":  "first",
		"file2.txt":  "second file",
		"file3.json": `{"k":"v"}`,
	})

	files, err := ScanDir(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, files, 3)

	key := types.Key{RelPath: "file1.txt", Hash: HashBytes([]byte("first"))}
	rec, ok := files[key]
	require.True(t, ok, "expected key %s", key)
	assert.Equal(t, "file1.txt", rec.Name)
	assert.Equal(t, filepath.Join(root, "file1.txt"), rec.Path)
	assert.Equal(t, int64(5), rec.Size)
}

func TestScanDir_Nested(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"r/file1.txt":      "one",
		"q/file2.txt":      "two",
		"e/deep/file3.txt": "three",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "dir"), 0o755))

	files, err := ScanDir(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join("e", "deep", "file3.txt"),
		filepath.Join("q", "file2.txt"),
		filepath.Join("r", "file1.txt"),
	}, relPaths(files), "directories are traversed but not recorded")
}

func TestScanDir_SameContentDifferentPaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "same",
		"sub/a.txt": "same",
	})

	files, err := ScanDir(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestScanDir_IgnoresSymlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.txt": "data"})

	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"x.txt": "outside"})

	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linkdir")))

	files, err := ScanDir(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"real.txt"}, relPaths(files))
}

func TestScanDir_HashIsContentOnly(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeTree(t, a, map[string]string{"f.bin": "payload"})
	writeTree(t, b, map[string]string{"f.bin": "payload"})

	fa, err := ScanDir(context.Background(), a, nil)
	require.NoError(t, err)
	fb, err := ScanDir(context.Background(), b, nil)
	require.NoError(t, err)

	for k := range fa {
		_, ok := fb[k]
		assert.True(t, ok, "identical content at identical relative path must produce the same key")
	}
}

func TestScanDir_UnreadableFileIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{"ok.txt": "fine", "secret.txt": "hidden"})
	secret := filepath.Join(root, "secret.txt")
	require.NoError(t, os.Chmod(secret, 0o000))
	t.Cleanup(func() { _ = os.Chmod(secret, 0o644) })

	files, err := ScanDir(context.Background(), root, nil)
	assert.Nil(t, files)

	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, secret, scanErr.Path)
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestScanDir_InvalidRoot(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := ScanDir(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
		var scanErr *ScanError
		require.ErrorAs(t, err, &scanErr)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("file", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"f": "x"})
		_, err := ScanDir(context.Background(), filepath.Join(root, "f"), nil)
		assert.ErrorIs(t, err, ErrNotDirectory)
	})
}

func TestScanDir_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a": "1", "b/c": "2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ScanDir(ctx, root, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestScanner_Scan(t *testing.T) {
	source, target := t.TempDir(), t.TempDir()
	writeTree(t, source, map[string]string{"a.txt": "A", "dir/b.txt": "B"})
	writeTree(t, target, map[string]string{"a.txt": "A"})

	s := New(source, target, logging.Nop())
	snap, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap.Source, 2)
	assert.Len(t, snap.Target, 1)
}

func TestScanner_MissingTargetIsEmpty(t *testing.T) {
	source := t.TempDir()
	writeTree(t, source, map[string]string{"a.txt": "A"})

	s := New(source, filepath.Join(t.TempDir(), "not-yet"), nil)
	snap, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Source, 1)
	assert.Empty(t, snap.Target)
}

func TestScanner_MissingSourceIsFatal(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "gone"), t.TempDir(), nil)
	_, err := s.Scan(context.Background())
	var scanErr *ScanError
	assert.ErrorAs(t, err, &scanErr)
}

func TestHashFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"f": "abc"})

	got, err := HashFile(filepath.Join(root, "f"))
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)

	_, err = HashFile(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestScanDir_DebugLogsKey(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"f": "abc"})

	var logs bytes.Buffer
	logger, err := logging.New(logging.Config{Level: "debug", Console: &logs})
	require.NoError(t, err)

	_, err = ScanDir(context.Background(), root, logger)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "f@ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
}
