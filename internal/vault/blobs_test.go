package vault

import (
	"bytes"
	"testing"

	"stash/shared/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlobStore(t *testing.T) *BlobStore {
	t.Helper()

	db, err := InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := NewBlobStore(db, 16)
	require.NoError(t, err)
	return blobs
}

func TestBlobStoreRoundTrip(t *testing.T) {
	blobs := newBlobStore(t)

	content := []byte("small blob")
	hash, err := blobs.Store(content)
	require.NoError(t, err)
	assert.Equal(t, utils.HashContent(content), hash)

	got, err := blobs.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestBlobStoreDedupes(t *testing.T) {
	blobs := newBlobStore(t)

	first, err := blobs.Store([]byte("same"))
	require.NoError(t, err)
	second, err := blobs.Store([]byte("same"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBlobStoreCompressedRoundTrip(t *testing.T) {
	blobs := newBlobStore(t)

	// Highly compressible and above the compression floor.
	content := bytes.Repeat([]byte("abcdefgh"), 1024)
	hash, err := blobs.Store(content)
	require.NoError(t, err)

	// Bypass the cache to force a database read and decompression.
	blobs.cache.Purge()

	got, err := blobs.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestBlobStoreContentThatLooksLikeZstd(t *testing.T) {
	blobs := newBlobStore(t)

	// User content that is itself a zstd frame, below the compression
	// floor so it is stored as-is. Reading it back must not decode it.
	content := blobs.encoder.EncodeAll([]byte("already a zstd frame"), nil)
	require.Less(t, len(content), minCompressSize)

	hash, err := blobs.Store(content)
	require.NoError(t, err)

	blobs.cache.Purge()

	got, err := blobs.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestBlobStoreEmptyContent(t *testing.T) {
	blobs := newBlobStore(t)

	hash, err := blobs.Store(nil)
	require.NoError(t, err)

	got, err := blobs.Get(hash)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBlobStoreMissing(t *testing.T) {
	blobs := newBlobStore(t)

	_, err := blobs.Get("deadbeef")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	exists, err := blobs.Exists("deadbeef")
	require.NoError(t, err)
	assert.False(t, exists)
}
