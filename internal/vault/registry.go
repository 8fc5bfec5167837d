// internal/vault/registry.go
package vault

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stash/internal/errors"

	"github.com/dgraph-io/badger/v4"
)

// Info is the ownership record of one vault target.
type Info struct {
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Retained  bool      `json:"retained"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry tracks which profile owns each vault and whether the vault
// is still retained. Write access checks run against it before any
// mutating sync operation.
type Registry struct {
	db *badger.DB
}

func NewRegistry(db *badger.DB) *Registry {
	return &Registry{db: db}
}

// NameOf strips the URL scheme from a vault target identity.
func NameOf(target string) string {
	return strings.TrimPrefix(target, "vault://")
}

func registryKey(target string) []byte {
	return []byte(fmt.Sprintf("vault:%s", NameOf(target)))
}

// Create registers a new vault owned by owner.
func (r *Registry) Create(owner, target string) error {
	info := Info{
		Name:      NameOf(target),
		Owner:     owner,
		Retained:  true,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshaling vault record: %w", err)
	}

	key := registryKey(target)
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("vault already exists: %s", target)
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
}

// Get returns the record for target.
func (r *Registry) Get(target string) (*Info, error) {
	var info Info

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(registryKey(target))
		if err == badger.ErrKeyNotFound {
			return errors.NotFound("vault not found: " + target)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// Retire marks a vault as no longer retained. Its data stays readable
// but write access checks fail from then on.
func (r *Registry) Retire(target string) error {
	info, err := r.Get(target)
	if err != nil {
		return err
	}
	info.Retained = false

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshaling vault record: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(registryKey(target), data)
	})
}

// CanWrite confirms profileID owns target and the vault is still
// retained.
func (r *Registry) CanWrite(profileID, target string) error {
	info, err := r.Get(target)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return errors.NotWritable(target, "vault does not exist")
		}
		return err
	}

	if info.Owner != profileID {
		return errors.NotWritable(target, "vault is not owned by "+profileID)
	}
	if !info.Retained {
		return errors.NotWritable(target, "vault has been retired")
	}
	return nil
}
