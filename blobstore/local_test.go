package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)

	data := []byte("hello world, this is a test blob")

	w, err := store.Create(ctx, "segments/a/data-001.bin")
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible before Close.
	_, err = store.Open(ctx, "segments/a/data-001.bin")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())
	_, err = os.Stat(filepath.Join(tmpDir, "segments", "a", "data-001.bin"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, "segments/a/data-001.bin")
	require.NoError(t, err)
	defer blob.Close()
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	r, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, "this", string(got))

	require.NoError(t, store.Put(ctx, "segments/a/data-002.bin", nil))
	require.NoError(t, store.Put(ctx, "other.bin", []byte("x")))

	names, err := store.List(ctx, "segments/")
	require.NoError(t, err)
	require.Equal(t, []string{"segments/a/data-001.bin", "segments/a/data-002.bin"}, names)

	empty, err := ReadAll(ctx, store, "segments/a/data-002.bin")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Delete(ctx, "other.bin"))
	require.NoError(t, store.Delete(ctx, "other.bin"))

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"segments/a/data-001.bin", "segments/a/data-002.bin"}, names)
}

func TestLocalStore_ReadRangeBoundaries(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())
	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "boundary.bin", data))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	r, err := blob.ReadRange(ctx, 0, 10)
	require.NoError(t, err)
	content, _ := io.ReadAll(r)
	r.Close()
	require.Equal(t, data, content)

	r, err = blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "89", string(content))
	r.Close()

	_, err = blob.ReadRange(ctx, 20, 5)
	require.ErrorIs(t, err, io.EOF)

	_, err = blob.ReadRange(ctx, -1, 5)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "absent"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "b/2")
	require.NoError(t, err)
	_, err = w.Write([]byte("two"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
	require.NoError(t, store.Put(ctx, "b/1", []byte("one")))
	require.NoError(t, store.Put(ctx, "a", []byte("a")))

	names, err := store.List(ctx, "b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/1", "b/2"}, names)

	blob, err := store.Open(ctx, "b/2")
	require.NoError(t, err)
	got, err := io.ReadAll(NewReader(ctx, blob))
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	require.NoError(t, store.Delete(ctx, "b/2"))
	_, err = store.Open(ctx, "b/2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_Abort(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewLocalStore(dir)

	w, err := store.Create(ctx, "partial.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("half"))
	require.NoError(t, err)
	require.NoError(t, Abort(w))

	_, err = store.Open(ctx, "partial.bin")
	require.ErrorIs(t, err, ErrNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
