package filter

import (
	"strings"

	"stash/shared/utils"
)

// Scope builds the allow-list predicate for explicit target paths.
// Included paths are: each target itself, descendants of targets that
// denote directories (trailing slash), and ancestor directories of any
// target so a diff restricted to a deep file still reports its
// containing directories. Everything else is out of scope and skipped.
// A target without a trailing slash matches only exactly, never as a
// directory prefix.
func Scope(targets []string) Predicate {
	type target struct {
		path  string
		isDir bool
	}

	normalized := make([]target, 0, len(targets))
	for _, t := range targets {
		isDir := strings.HasSuffix(t, "/")
		p := utils.NormalizePath(t)
		if p == "" {
			continue
		}
		normalized = append(normalized, target{path: p, isDir: isDir})
	}

	return func(p string) bool {
		p = utils.NormalizePath(p)
		if p == "" {
			return false
		}

		for _, t := range normalized {
			if p == t.path {
				return true
			}
			if t.isDir && utils.IsAncestor(t.path, p) {
				return true
			}
			if utils.IsAncestor(p, t.path) {
				return true
			}
		}
		return false
	}
}
