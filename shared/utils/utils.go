package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

func HashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// NormalizePath converts p to a clean, slash-separated, relative path.
// Parent traversals above the root are dropped, so a normalized path can
// never escape the tree it is resolved against.
// A trailing slash is dropped; callers that need to mark directory-ness
// (filter inputs) keep it themselves before calling.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	if p == "." || p == ".." {
		return ""
	}
	return p
}

// IsAncestor reports whether dir is a strict path ancestor of p.
func IsAncestor(dir, p string) bool {
	if dir == "" || p == "" || dir == p {
		return false
	}
	return strings.HasPrefix(p, dir+"/")
}
