// Package workspace persists the binding records pairing a local
// directory root with a vault target identity.
package workspace

import (
	"encoding/json"
	"fmt"
	"time"

	"stash/internal/errors"
	"stash/internal/validation"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Record binds a named workspace to its local files path and publish
// target. Records are external bookkeeping; the sync core reconstructs
// its per-call state from them on every operation.
type Record struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Name      string    `json:"name"`
	LocalPath string    `json:"local_path"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the Badger-backed record store.
type Store struct {
	db *badger.DB
}

func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

func recordKey(profileID, name string) []byte {
	return []byte(fmt.Sprintf("workspace:%s:%s", profileID, name))
}

func profilePrefix(profileID string) []byte {
	return []byte(fmt.Sprintf("workspace:%s:", profileID))
}

// Save creates or replaces the record for (ProfileID, Name).
func (s *Store) Save(r *Record) error {
	if err := validation.ValidateProfileID(r.ProfileID); err != nil {
		return err
	}
	if err := validation.ValidateWorkspaceName(r.Name); err != nil {
		return err
	}
	if err := validation.ValidateTarget(r.Target); err != nil {
		return err
	}
	if r.LocalPath == "" {
		return errors.InvalidInput("workspace local path cannot be empty")
	}

	now := time.Now()
	if r.ID == "" {
		r.ID = uuid.New().String()
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling workspace record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(r.ProfileID, r.Name), data)
	})
}

// Get returns the record for (profileID, name).
func (s *Store) Get(profileID, name string) (*Record, error) {
	var record Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(profileID, name))
		if err == badger.ErrKeyNotFound {
			return errors.NotFound(fmt.Sprintf("workspace %s/%s not found", profileID, name))
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// Delete removes the record for (profileID, name).
func (s *Store) Delete(profileID, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(profileID, name))
	})
}

// List returns all records under a profile.
func (s *Store) List(profileID string) ([]*Record, error) {
	var records []*Record
	prefix := profilePrefix(profileID)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record Record
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				records = append(records, &record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}
