// Package guard protects the textual diff path from binary and
// oversized content.
package guard

import (
	"path"
	"strings"
)

// MaxDiffSize is the byte ceiling above which content-level diffing of
// a single file is refused regardless of classification.
const MaxDiffSize = 100_000

// SniffLen bounds how much of a file's prefix the content heuristic
// inspects.
const SniffLen = 8000

type Classification int

const (
	Unknown Classification = iota
	Text
	Binary
)

// Extensions classified purely from the file name, independent of
// content. Anything not listed is inconclusive and falls through to
// the content sniff.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".ico": true, ".bmp": true, ".tiff": true,
	".zip": true, ".gz": true, ".zst": true, ".xz": true, ".bz2": true, ".tar": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mkv": true, ".wav": true, ".ogg": true,
	".pdf": true, ".docx": true, ".xlsx": true, ".pptx": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".wasm": true,
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true,
	".db": true, ".sqlite": true,
}

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".rst": true,
	".go": true, ".py": true, ".js": true, ".ts": true, ".rb": true, ".rs": true,
	".c": true, ".h": true, ".cpp": true, ".java": true, ".sh": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".xml": true,
	".html": true, ".css": true, ".svg": true,
	".csv": true, ".sql": true, ".ini": true, ".cfg": true, ".conf": true,
}

// ClassifyName classifies a file from its name alone.
func ClassifyName(p string) Classification {
	ext := strings.ToLower(path.Ext(p))
	switch {
	case binaryExtensions[ext]:
		return Binary
	case textExtensions[ext]:
		return Text
	default:
		return Unknown
	}
}

// SniffBinary applies the content heuristic to a bounded prefix: a NUL
// byte or a high ratio of control bytes marks the content binary.
func SniffBinary(prefix []byte) bool {
	if len(prefix) > SniffLen {
		prefix = prefix[:SniffLen]
	}
	if len(prefix) == 0 {
		return false
	}

	suspect := 0
	for _, b := range prefix {
		if b == 0 {
			return true
		}
		if b < 0x07 || (b > 0x0d && b < 0x20) {
			suspect++
		}
	}

	return suspect*10 > len(prefix)*3
}

// IsBinary combines the name heuristic with the content sniff.
func IsBinary(p string, content []byte) bool {
	switch ClassifyName(p) {
	case Binary:
		return true
	case Text:
		return false
	default:
		return SniffBinary(content)
	}
}
