// Package tree defines the hierarchical store abstraction shared by
// the local filesystem backend and the vault backend. Diff, apply and
// watch operate only against this interface.
package tree

import (
	"errors"
	"time"
)

// ErrNotExist is returned by Stat and ReadFile for missing paths,
// regardless of backend.
var ErrNotExist = errors.New("path does not exist")

// Info describes one entry in a tree. Paths are relative to the tree
// root, slash-separated, with no trailing separator.
type Info struct {
	Path    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// Tree is an abstract hierarchical store. Implementations must accept
// normalized slash-separated relative paths everywhere.
type Tree interface {
	// Stat returns the entry at path, or ErrNotExist.
	Stat(path string) (Info, error)

	// Walk visits every file and directory in the tree, excluding the
	// root itself. Order is unspecified; callers sort.
	Walk(fn func(Info) error) error

	// ReadFile returns the full content of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile stores content at path, creating parent directories.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string) error

	// Remove deletes the entry at path, recursively for directories.
	// Removing a missing path is not an error.
	Remove(path string) error

	// Watch subscribes to the tree's native change notifications at its
	// root. onChange is invoked with the changed path for every native
	// event, in arrival order. The returned function unsubscribes.
	Watch(onChange func(path string)) (func() error, error)
}
