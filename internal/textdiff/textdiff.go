// Package textdiff produces line-level diffs for single-file
// comparisons. The bulk structural diff never goes through here; the
// guard package decides whether a file is eligible first.
package textdiff

import (
	"bytes"
	"fmt"
)

// LineType indicates whether a line was added, removed, or is context.
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// Line is a single line in a diff with its type and content.
type Line struct {
	Type    LineType
	Content string
	OldNum  int
	NewNum  int
}

// Hunk is a continuous section of changes.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Result contains the complete diff information.
type Result struct {
	Hunks []Hunk
	Stats struct {
		Additions int
		Deletions int
		Changes   int
	}
}

// Engine provides line-diffing with a configurable amount of context.
type Engine struct {
	contextLines int
}

func NewEngine(contextLines int) *Engine {
	return &Engine{contextLines: contextLines}
}

// Diff generates a line-by-line diff between two contents.
func (e *Engine) Diff(oldContent, newContent []byte) (*Result, error) {
	oldLines := bytes.Split(bytes.TrimSuffix(oldContent, []byte{'\n'}), []byte{'\n'})
	newLines := bytes.Split(bytes.TrimSuffix(newContent, []byte{'\n'}), []byte{'\n'})

	result := &Result{}

	lcs := computeLCS(oldLines, newLines)
	hunks := extractHunks(oldLines, newLines, lcs)
	result.Hunks = e.addContext(hunks, oldLines)

	for _, hunk := range result.Hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				result.Stats.Additions++
			case Deletion:
				result.Stats.Deletions++
			}
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions

	return result, nil
}

// computeLCS builds the longest-common-subsequence matrix.
func computeLCS(oldLines, newLines [][]byte) [][]int {
	matrix := make([][]int, len(oldLines)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(newLines)+1)
	}

	for i := 1; i <= len(oldLines); i++ {
		for j := 1; j <= len(newLines); j++ {
			if bytes.Equal(oldLines[i-1], newLines[j-1]) {
				matrix[i][j] = matrix[i-1][j-1] + 1
			} else {
				matrix[i][j] = max(matrix[i-1][j], matrix[i][j-1])
			}
		}
	}

	return matrix
}

// extractHunks walks the LCS matrix backwards and groups contiguous
// additions and deletions into hunks.
func extractHunks(oldLines, newLines [][]byte, lcs [][]int) []Hunk {
	var hunks []Hunk
	var current *Hunk

	flush := func() {
		if current != nil && len(current.Lines) > 0 {
			hunks = append([]Hunk{*current}, hunks...)
			current = nil
		}
	}

	i, j := len(oldLines), len(newLines)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && bytes.Equal(oldLines[i-1], newLines[j-1]):
			flush()
			i--
			j--

		case j > 0 && (i == 0 || lcs[i][j-1] >= lcs[i-1][j]):
			if current == nil {
				current = &Hunk{OldStart: i, NewStart: j}
			}
			current.OldStart = i
			current.NewStart = j - 1
			current.Lines = append([]Line{{
				Type:    Addition,
				Content: string(newLines[j-1]),
				NewNum:  j,
			}}, current.Lines...)
			current.NewLines++
			j--

		case i > 0:
			if current == nil {
				current = &Hunk{OldStart: i, NewStart: j}
			}
			current.OldStart = i - 1
			current.Lines = append([]Line{{
				Type:    Deletion,
				Content: string(oldLines[i-1]),
				OldNum:  i,
			}}, current.Lines...)
			current.OldLines++
			i--
		}
	}
	flush()

	return hunks
}

// addContext prepends and appends unchanged lines around each hunk.
func (e *Engine) addContext(hunks []Hunk, oldLines [][]byte) []Hunk {
	if e.contextLines == 0 {
		return hunks
	}

	var result []Hunk
	for i, hunk := range hunks {
		contextStart := max(0, hunk.OldStart-e.contextLines)
		var lines []Line
		for j := contextStart; j < hunk.OldStart && j < len(oldLines); j++ {
			lines = append(lines, Line{
				Type:    Context,
				Content: string(oldLines[j]),
				OldNum:  j + 1,
				NewNum:  j + 1,
			})
		}
		hunk.Lines = append(lines, hunk.Lines...)

		if i < len(hunks)-1 {
			contextEnd := min(len(oldLines), hunk.OldStart+hunk.OldLines+e.contextLines)
			for j := hunk.OldStart + hunk.OldLines; j < contextEnd; j++ {
				hunk.Lines = append(hunk.Lines, Line{
					Type:    Context,
					Content: string(oldLines[j]),
					OldNum:  j + 1,
					NewNum:  j + 1,
				})
			}
		}

		result = append(result, hunk)
	}

	return result
}

// Format returns a unified-diff style string representation.
func (r *Result) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteString("+ ")
			case Deletion:
				buf.WriteString("- ")
			case Context:
				buf.WriteString("  ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
