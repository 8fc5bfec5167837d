// Package diff computes structural differences between two trees.
package diff

import (
	"bytes"
	"fmt"
	"sort"

	"stash/internal/filter"
	"stash/internal/tree"

	"go.uber.org/zap"
)

type Change int

const (
	Add Change = iota
	Remove
	Modify
)

func (c Change) String() string {
	switch c {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Modify:
		return "modify"
	}
	return "unknown"
}

// Entry is one reported difference between two trees at a path.
// Entries are immutable once produced.
type Entry struct {
	Path   string `json:"path"`
	Change Change `json:"change"`
	IsDir  bool   `json:"is_dir"`
}

// Options configures one diff computation. Use DefaultOptions as the
// base; the zero value disables both shallow mode and content
// comparison.
type Options struct {
	// Shallow reports a one-sided directory as a single entry instead
	// of enumerating its descendants.
	Shallow bool

	// CompareContent reports Modify only when byte content differs,
	// not just metadata.
	CompareContent bool

	// Filter is applied to every candidate path before it is
	// considered; excluded paths are skipped entirely, descendants
	// included. Nil means no filtering.
	Filter filter.Predicate
}

func DefaultOptions() Options {
	return Options{Shallow: true, CompareContent: true}
}

// Engine walks two trees and produces an ordered change list.
type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Compute diffs src against dst. Add means the path exists only in
// src, Remove only in dst, Modify on both sides with differing
// content. Output is ordered lexicographically by path and contains at
// most one entry per path, so repeated diffs without intervening
// changes are reproducible.
func (e *Engine) Compute(src, dst tree.Tree, opts Options) ([]Entry, error) {
	srcEntries, err := e.collect(src, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("walking source tree: %w", err)
	}
	dstEntries, err := e.collect(dst, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("walking destination tree: %w", err)
	}

	paths := make([]string, 0, len(srcEntries)+len(dstEntries))
	for p := range srcEntries {
		paths = append(paths, p)
	}
	for p := range dstEntries {
		if _, ok := srcEntries[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var entries []Entry
	for _, p := range paths {
		srcInfo, inSrc := srcEntries[p]
		dstInfo, inDst := dstEntries[p]

		switch {
		case inSrc && !inDst:
			entries = append(entries, Entry{Path: p, Change: Add, IsDir: srcInfo.IsDir})

		case !inSrc && inDst:
			entries = append(entries, Entry{Path: p, Change: Remove, IsDir: dstInfo.IsDir})

		case srcInfo.IsDir != dstInfo.IsDir:
			// A path that is a file on one side and a directory on the
			// other always counts as modified.
			entries = append(entries, Entry{Path: p, Change: Modify, IsDir: srcInfo.IsDir})

		case !srcInfo.IsDir && opts.CompareContent:
			differs, err := e.contentDiffers(src, dst, srcInfo, dstInfo)
			if err != nil {
				return nil, err
			}
			if differs {
				entries = append(entries, Entry{Path: p, Change: Modify, IsDir: false})
			}
		}
	}

	if opts.Shallow {
		entries = collapse(entries)
	}

	e.logger.Debug("computed diff",
		zap.Int("entries", len(entries)),
		zap.Bool("shallow", opts.Shallow))

	return entries, nil
}

// collect builds the filtered path set of one tree. Directory paths
// are tested against the filter with a trailing slash.
func (e *Engine) collect(t tree.Tree, pred filter.Predicate) (map[string]tree.Info, error) {
	out := make(map[string]tree.Info)
	err := t.Walk(func(info tree.Info) error {
		if pred != nil {
			p := info.Path
			if info.IsDir {
				p += "/"
			}
			if !pred(p) {
				return nil
			}
		}
		out[info.Path] = info
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Drop entries beneath an excluded directory.
	if pred != nil {
		for p := range out {
			for dir := parent(p); dir != ""; dir = parent(dir) {
				if !pred(dir + "/") {
					delete(out, p)
					break
				}
			}
		}
	}

	return out, nil
}

func parent(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return ""
}

// contentDiffers compares two files, short-circuiting on size before
// reading any bytes so oversized files are never loaded needlessly.
func (e *Engine) contentDiffers(src, dst tree.Tree, srcInfo, dstInfo tree.Info) (bool, error) {
	if srcInfo.Size != dstInfo.Size {
		return true, nil
	}

	srcData, err := src.ReadFile(srcInfo.Path)
	if err != nil {
		return false, fmt.Errorf("reading source %s: %w", srcInfo.Path, err)
	}
	dstData, err := dst.ReadFile(dstInfo.Path)
	if err != nil {
		return false, fmt.Errorf("reading destination %s: %w", dstInfo.Path, err)
	}

	return !bytes.Equal(srcData, dstData), nil
}

// collapse suppresses per-descendant entries once a one-sided
// directory has been reported, leaving the topmost entry per changed
// subtree. Input must be sorted by path.
func collapse(entries []Entry) []Entry {
	var out []Entry
	var prefix string
	var change Change

	for _, entry := range entries {
		if prefix != "" && entry.Change == change && isUnder(prefix, entry.Path) {
			continue
		}
		out = append(out, entry)
		if entry.IsDir && (entry.Change == Add || entry.Change == Remove) {
			prefix = entry.Path
			change = entry.Change
		} else {
			prefix = ""
		}
	}
	return out
}

func isUnder(dir, p string) bool {
	return len(p) > len(dir)+1 && p[:len(dir)] == dir && p[len(dir)] == '/'
}
