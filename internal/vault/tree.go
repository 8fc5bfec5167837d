// internal/vault/tree.go
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"stash/internal/tree"
	"stash/shared/utils"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// entryMeta is the per-path index record of a vault tree.
type entryMeta struct {
	Hash    string    `json:"hash,omitempty"`
	Size    int64     `json:"size"`
	IsDir   bool      `json:"is_dir"`
	ModTime time.Time `json:"mod_time"`
}

// Tree is the content-addressable archive realization of tree.Tree.
// The path index lives in the vault database under a per-target
// prefix; file bodies live in the blob store. Writes fan out to
// in-process subscribers, which is the tree's native change
// notification.
type Tree struct {
	db     *badger.DB
	blobs  *BlobStore
	target string
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers []*subscriber
	nextSubID   int
}

type subscriber struct {
	id       int
	onChange func(path string)
}

func NewTree(db *badger.DB, blobs *BlobStore, target string, logger *zap.Logger) *Tree {
	return &Tree{
		db:     db,
		blobs:  blobs,
		target: target,
		logger: logger,
	}
}

func (t *Tree) Target() string {
	return t.target
}

func (t *Tree) entryKey(path string) []byte {
	return []byte(fmt.Sprintf("tree:%s:%s", t.target, path))
}

func (t *Tree) entryPrefix() []byte {
	return []byte(fmt.Sprintf("tree:%s:", t.target))
}

func (t *Tree) Stat(path string) (tree.Info, error) {
	path = utils.NormalizePath(path)

	meta, err := t.getMeta(path)
	if err != nil {
		return tree.Info{}, err
	}

	return tree.Info{
		Path:    path,
		Size:    meta.Size,
		IsDir:   meta.IsDir,
		ModTime: meta.ModTime,
	}, nil
}

func (t *Tree) Walk(fn func(tree.Info) error) error {
	prefix := t.entryPrefix()

	return t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			path := strings.TrimPrefix(string(item.Key()), string(prefix))

			var meta entryMeta
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return fmt.Errorf("decoding entry %s: %w", path, err)
			}

			err = fn(tree.Info{
				Path:    path,
				Size:    meta.Size,
				IsDir:   meta.IsDir,
				ModTime: meta.ModTime,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (t *Tree) ReadFile(path string) ([]byte, error) {
	path = utils.NormalizePath(path)

	meta, err := t.getMeta(path)
	if err != nil {
		return nil, err
	}
	if meta.IsDir {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	content, err := t.blobs.Get(meta.Hash)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return content, nil
}

func (t *Tree) WriteFile(path string, data []byte) error {
	path = utils.NormalizePath(path)
	if path == "" {
		return fmt.Errorf("cannot write to tree root")
	}

	hash, err := t.blobs.Store(data)
	if err != nil {
		return fmt.Errorf("storing content for %s: %w", path, err)
	}

	created, err := t.ensureParents(path)
	if err != nil {
		return err
	}

	// Writing over a directory entry drops it and its descendants first,
	// otherwise the child keys would be orphaned.
	if existing, err := t.getMeta(path); err == nil && existing.IsDir {
		if err := t.Remove(path); err != nil {
			return err
		}
	}

	meta := entryMeta{
		Hash:    hash,
		Size:    int64(len(data)),
		IsDir:   false,
		ModTime: time.Now(),
	}
	if err := t.putMeta(path, meta); err != nil {
		return err
	}

	for _, dir := range created {
		t.notify(dir)
	}
	t.notify(path)
	return nil
}

func (t *Tree) MkdirAll(path string) error {
	path = utils.NormalizePath(path)
	if path == "" {
		return nil
	}

	created, err := t.ensureParents(path)
	if err != nil {
		return err
	}

	// An existing file entry at the path is replaced, not silently kept.
	if existing, err := t.getMeta(path); err == nil {
		if existing.IsDir {
			for _, dir := range created {
				t.notify(dir)
			}
			return nil
		}
		if err := t.Remove(path); err != nil {
			return err
		}
	}

	meta := entryMeta{IsDir: true, ModTime: time.Now()}
	if err := t.putMeta(path, meta); err != nil {
		return err
	}

	for _, dir := range created {
		t.notify(dir)
	}
	t.notify(path)
	return nil
}

// Remove deletes the entry and, for directories, everything beneath
// it. Removing a missing path is a no-op.
func (t *Tree) Remove(path string) error {
	path = utils.NormalizePath(path)
	if path == "" {
		return fmt.Errorf("cannot remove tree root")
	}

	prefix := t.entryKey(path + "/")

	err := t.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(t.entryKey(path)); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}

	t.notify(path)
	return nil
}

// Watch registers onChange with the tree's notification fan-out. The
// returned function unsubscribes; it never fails.
func (t *Tree) Watch(onChange func(path string)) (func() error, error) {
	t.mu.Lock()
	sub := &subscriber{id: t.nextSubID, onChange: onChange}
	t.nextSubID++
	t.subscribers = append(t.subscribers, sub)
	t.mu.Unlock()

	unsubscribe := func() error {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subscribers {
			if s.id == sub.id {
				t.subscribers = append(t.subscribers[:i], t.subscribers[i+1:]...)
				break
			}
		}
		return nil
	}
	return unsubscribe, nil
}

func (t *Tree) notify(path string) {
	t.mu.RLock()
	subs := make([]*subscriber, len(t.subscribers))
	copy(subs, t.subscribers)
	t.mu.RUnlock()

	for _, sub := range subs {
		sub.onChange(path)
	}
}

// ensureParents creates missing ancestor directory entries for path
// and returns the ones it created, topmost first.
func (t *Tree) ensureParents(path string) ([]string, error) {
	var missing []string
	for dir := parentPath(path); dir != ""; dir = parentPath(dir) {
		_, err := t.getMeta(dir)
		if err == nil {
			break
		}
		if err != nil && !errors.Is(err, tree.ErrNotExist) {
			return nil, err
		}
		missing = append([]string{dir}, missing...)
	}

	for _, dir := range missing {
		meta := entryMeta{IsDir: true, ModTime: time.Now()}
		if err := t.putMeta(dir, meta); err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func (t *Tree) getMeta(path string) (entryMeta, error) {
	var meta entryMeta

	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(t.entryKey(path))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%s: %w", path, tree.ErrNotExist)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})

	return meta, err
}

func (t *Tree) putMeta(path string, meta entryMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling entry %s: %w", path, err)
	}

	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(t.entryKey(path), data)
	})
}

func parentPath(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}
	return p[:idx]
}
