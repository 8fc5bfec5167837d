package filter

import (
	"path"
	"strings"

	"stash/shared/utils"
)

// Control-metadata directories are excluded from every diff no matter
// what the user's ignore file says.
var implicitRules = []string{"**/.git/", "**/.stash/"}

// RuleSet is an ordered sequence of normalized glob patterns compiled
// from an ignore file.
type RuleSet struct {
	patterns []string
}

// CompileIgnoreRules parses ignore-file contents into a RuleSet. Each
// non-empty line becomes one pattern. A line rooted with a leading
// slash matches only from the tree root; any other line matches at any
// depth via a recursive-wildcard prefix. The two implicit
// control-metadata rules are always appended.
func CompileIgnoreRules(content string) *RuleSet {
	var patterns []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		patterns = append(patterns, NormalizeRule(line))
	}

	patterns = append(patterns, implicitRules...)

	return &RuleSet{patterns: patterns}
}

// NormalizeRule converts one ignore-file line into a normalized glob
// pattern.
func NormalizeRule(line string) string {
	line = strings.TrimSpace(strings.ReplaceAll(line, "\\", "/"))
	isDir := strings.HasSuffix(line, "/")

	if strings.HasPrefix(line, "/") {
		line = strings.TrimPrefix(line, "/")
	} else if !strings.HasPrefix(line, "**/") {
		line = "**/" + line
	}

	line = strings.TrimSuffix(line, "/")
	if isDir {
		line += "/"
	}
	return line
}

// Match reports whether p matches any pattern in the set. Directory
// paths may carry a trailing slash.
func (rs *RuleSet) Match(p string) bool {
	isDir := strings.HasSuffix(p, "/")
	p = utils.NormalizePath(p)

	for _, pattern := range rs.patterns {
		if matchPattern(p, isDir, pattern) {
			return true
		}
	}
	return false
}

// Predicate returns the include-in-diff predicate for this rule set:
// a path is included unless it matches a pattern.
func (rs *RuleSet) Predicate() Predicate {
	return func(p string) bool {
		return !rs.Match(p)
	}
}

func (rs *RuleSet) Patterns() []string {
	return rs.patterns
}

// matchPattern matches one normalized path against one pattern.
// Patterns with a trailing slash name directories and also match
// everything beneath them.
func matchPattern(p string, isDir bool, pattern string) bool {
	patSegs := strings.Split(strings.TrimSuffix(pattern, "/"), "/")
	pathSegs := strings.Split(p, "/")

	if strings.HasSuffix(pattern, "/") {
		// Directory pattern: match the directory itself or any prefix
		// of the path, which covers all descendants.
		for i := 1; i <= len(pathSegs); i++ {
			if matchSegments(patSegs, pathSegs[:i]) {
				if i == len(pathSegs) && !isDir {
					continue
				}
				return true
			}
		}
		return false
	}

	return matchSegments(patSegs, pathSegs)
}

// matchSegments implements segment-wise glob matching where "**"
// matches zero or more whole segments.
func matchSegments(patSegs, pathSegs []string) bool {
	if len(patSegs) == 0 {
		return len(pathSegs) == 0
	}

	if patSegs[0] == "**" {
		for i := 0; i <= len(pathSegs); i++ {
			if matchSegments(patSegs[1:], pathSegs[i:]) {
				return true
			}
		}
		return false
	}

	if len(pathSegs) == 0 {
		return false
	}

	ok, err := path.Match(patSegs[0], pathSegs[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(patSegs[1:], pathSegs[1:])
}
