package vault

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// InitDB opens the vault database at path, creating the directory if
// needed.
func InitDB(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

// InitTestDB returns an in-memory database for tests.
func InitTestDB() (*badger.DB, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithNumVersionsToKeep(1).
		WithNumGoroutines(1).
		WithLogger(nil)

	return badger.Open(opts)
}
