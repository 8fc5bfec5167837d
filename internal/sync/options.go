package sync

import (
	"strings"

	"stash/internal/errors"
)

// Options carries the per-operation settings. Validation happens once
// at the operation boundary, before any tree I/O.
type Options struct {
	// Shallow reports a one-sided directory as a single entry.
	// Publish, revert and setup always run deep regardless.
	Shallow bool

	// CompareContent reports a file as modified only when bytes differ.
	CompareContent bool

	// Paths restricts the operation to an explicit allow-list. When
	// set, ignore rules are not consulted: the two filters are
	// mutually exclusive.
	Paths []string
}

func DefaultOptions() Options {
	return Options{Shallow: true, CompareContent: true}
}

func (o Options) validate() error {
	for _, p := range o.Paths {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || trimmed == "/" {
			return errors.InvalidInput("paths entries cannot be empty")
		}
		if strings.HasPrefix(trimmed, "..") {
			return errors.InvalidInput("paths entries cannot escape the workspace root: " + p)
		}
	}
	return nil
}
