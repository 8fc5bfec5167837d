// internal/vault/blobs.go
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stash/shared/utils"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
)

// Blobs below this size are stored uncompressed.
const minCompressSize = 1024

// BlobMeta stores metadata about one stored blob.
type BlobMeta struct {
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

// BlobStore provides deduplicated content-addressable storage inside
// the vault database. Content is keyed by SHA-256 hash, cached in an
// LRU, and zstd-compressed above a size floor.
type BlobStore struct {
	db      *badger.DB
	cache   *lru.Cache[string, []byte]
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewBlobStore(db *badger.DB, cacheSize int) (*BlobStore, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}

	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating blob cache: %w", err)
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &BlobStore{
		db:      db,
		cache:   cache,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Store saves content and returns its hash. Storing the same content
// twice is a no-op.
func (s *BlobStore) Store(content []byte) (string, error) {
	if content == nil {
		content = []byte{}
	}

	hash := utils.HashContent(content)

	exists, err := s.Exists(hash)
	if err != nil {
		return "", fmt.Errorf("checking existence: %w", err)
	}
	if exists {
		return hash, nil
	}

	stored := content
	compressed := false
	if len(content) >= minCompressSize {
		encoded := s.encoder.EncodeAll(content, nil)
		if len(encoded) < len(content) {
			stored = encoded
			compressed = true
		}
	}

	meta := BlobMeta{
		Hash:       hash,
		Size:       int64(len(content)),
		Compressed: compressed,
		CreatedAt:  time.Now(),
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshaling blob metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(blobKey(hash), stored); err != nil {
			return err
		}
		return txn.Set(blobMetaKey(hash), metaData)
	})
	if err != nil {
		return "", fmt.Errorf("storing blob: %w", err)
	}

	s.cache.Add(hash, content)
	return hash, nil
}

// Get retrieves content by hash. Whether the stored bytes need
// decompression comes from the blob's metadata, never from sniffing
// the bytes themselves: user content is free to look like a zstd frame.
func (s *BlobStore) Get(hash string) ([]byte, error) {
	if content, ok := s.cache.Get(hash); ok {
		return content, nil
	}

	var stored []byte
	var meta BlobMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(hash))
		if err == badger.ErrKeyNotFound {
			return ErrBlobNotFound
		}
		if err != nil {
			return err
		}
		if stored, err = item.ValueCopy(nil); err != nil {
			return err
		}

		metaItem, err := txn.Get(blobMetaKey(hash))
		if err == badger.ErrKeyNotFound {
			return ErrBlobNotFound
		}
		if err != nil {
			return err
		}
		return metaItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, err
	}

	content := stored
	if meta.Compressed {
		content, err = s.decoder.DecodeAll(stored, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing blob %s: %w", hash, err)
		}
	}

	// Verify hash
	if utils.HashContent(content) != hash {
		return nil, fmt.Errorf("blob %s: content hash mismatch", hash)
	}

	s.cache.Add(hash, content)
	return content, nil
}

// Exists checks whether content with the given hash is stored.
func (s *BlobStore) Exists(hash string) (bool, error) {
	if s.cache.Contains(hash) {
		return true, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(blobMetaKey(hash))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func blobKey(hash string) []byte {
	return []byte(fmt.Sprintf("blob:%s", hash))
}

func blobMetaKey(hash string) []byte {
	return []byte(fmt.Sprintf("blobmeta:%s", hash))
}
