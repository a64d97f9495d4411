package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir(), "http://localhost:9000", "images")
	require.NoError(t, err)
	return s
}

func TestFSStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	url, err := s.Put(ctx, "cat.jpg", []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/images/cat.jpg", url)

	data, err := s.Get(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), data)
}

func TestFSStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	first, err := s.Put(ctx, "cat.jpg", []byte("v1"))
	require.NoError(t, err)
	second, err := s.Put(ctx, "cat.jpg", []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := s.Get(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestFSStore_GetMissing(t *testing.T) {
	s := newTestFSStore(t)

	_, err := s.Get(context.Background(), "nope.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSStore_DeleteMissingIsNoError(t *testing.T) {
	s := newTestFSStore(t)
	assert.NoError(t, s.Delete(context.Background(), "nope.jpg"))
}

func TestFSStore_RejectsTraversalKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	for _, key := range []string{"", ".", "..", "../escape", "a/b", `a\b`} {
		_, err := s.Put(ctx, key, []byte("x"))
		assert.Error(t, err, "key %q", key)
	}
}

func TestFSStore_ListSkipsTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	_, err := s.Put(ctx, "a.jpg", []byte("a"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "b.jpg", []byte("b"))
	require.NoError(t, err)

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, keys)
}

func TestFSStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)

	ok, err := s.Exists(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Put(ctx, "cat.jpg", []byte("x"))
	require.NoError(t, err)

	ok, err = s.Exists(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeyFromURL(t *testing.T) {
	assert.Equal(t, "cat.jpg", KeyFromURL("http://host/images/cat.jpg"))
	assert.Equal(t, "cat.jpg", KeyFromURL("http://host/images/cat.jpg?se=1&sig=abc"))
	assert.Equal(t, "", KeyFromURL("http://host/images/"))
}
