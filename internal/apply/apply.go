// Package apply mutates one tree to match another, driven by a diff.
package apply

import (
	"fmt"

	"stash/internal/diff"
	"stash/internal/tree"

	"go.uber.org/zap"
)

// Direction selects which side of a diff wins. The diff is always
// computed as diff(left, right).
type Direction int

const (
	// LeftToRight mutates the right tree to match the left.
	LeftToRight Direction = iota
	// RightToLeft mutates the left tree to match the right.
	RightToLeft
)

func (d Direction) String() string {
	if d == RightToLeft {
		return "right-to-left"
	}
	return "left-to-right"
}

// EntryError names the entry an apply run stopped at.
type EntryError struct {
	Entry diff.Entry
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("applying %s %s: %v", e.Entry.Change, e.Entry.Path, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Result reports which entries were applied before a failure, if any.
// Application is per-entry, not transactional: applied entries stay
// applied, and callers re-diff to discover remaining divergence.
type Result struct {
	Applied []diff.Entry
	Failed  *EntryError
}

func (r *Result) Err() error {
	if r.Failed == nil {
		return nil
	}
	return r.Failed
}

type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Apply processes entries in their given order, stopping at the first
// failure without rolling back prior entries.
func (e *Engine) Apply(direction Direction, left, right tree.Tree, entries []diff.Entry) *Result {
	result := &Result{}

	for _, entry := range entries {
		if err := e.applyEntry(direction, left, right, entry); err != nil {
			result.Failed = &EntryError{Entry: entry, Err: err}
			e.logger.Warn("apply stopped",
				zap.String("path", entry.Path),
				zap.String("direction", direction.String()),
				zap.Error(err))
			return result
		}
		result.Applied = append(result.Applied, entry)
	}

	e.logger.Info("applied diff",
		zap.Int("entries", len(result.Applied)),
		zap.String("direction", direction.String()))

	return result
}

func (e *Engine) applyEntry(direction Direction, left, right tree.Tree, entry diff.Entry) error {
	switch direction {
	case LeftToRight:
		switch entry.Change {
		case diff.Add, diff.Modify:
			return copyEntry(left, right, entry)
		case diff.Remove:
			return right.Remove(entry.Path)
		}
	case RightToLeft:
		switch entry.Change {
		case diff.Add:
			// Present only on the left; the right side is the source of
			// truth, so drop it.
			return left.Remove(entry.Path)
		case diff.Remove, diff.Modify:
			return copyEntry(right, left, entry)
		}
	}
	return fmt.Errorf("unknown change kind %d", entry.Change)
}

// copyEntry copies one entry from src to dst. Directories are created
// structurally, never content-copied; file writes create parents
// implicitly. When the destination already holds an entry of the other
// kind (file where a directory is wanted, or vice versa) it is removed
// first, so a type flip converges instead of reappearing in every
// subsequent diff.
func copyEntry(src, dst tree.Tree, entry diff.Entry) error {
	if info, err := dst.Stat(entry.Path); err == nil && info.IsDir != entry.IsDir {
		if err := dst.Remove(entry.Path); err != nil {
			return err
		}
	}

	if entry.IsDir {
		return dst.MkdirAll(entry.Path)
	}

	data, err := src.ReadFile(entry.Path)
	if err != nil {
		return err
	}
	return dst.WriteFile(entry.Path, data)
}

// AddOnly filters a diff down to Add entries. First-time folder
// initialization uses this so it never deletes or overwrites existing
// content.
func AddOnly(entries []diff.Entry) []diff.Entry {
	var out []diff.Entry
	for _, entry := range entries {
		if entry.Change == diff.Add {
			out = append(out, entry)
		}
	}
	return out
}
