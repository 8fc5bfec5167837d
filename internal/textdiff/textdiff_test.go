package textdiff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIdenticalContent(t *testing.T) {
	content := []byte("line one\nline two\n")

	result, err := NewEngine(3).Diff(content, content)
	require.NoError(t, err)

	assert.Empty(t, result.Hunks)
	assert.Equal(t, 0, result.Stats.Changes)
}

func TestDiffAddition(t *testing.T) {
	old := []byte("a\nb\n")
	new := []byte("a\nb\nc\n")

	result, err := NewEngine(3).Diff(old, new)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Additions)
	assert.Equal(t, 0, result.Stats.Deletions)
	assert.Equal(t, 1, result.Stats.Changes)

	require.Len(t, result.Hunks, 1)
	var added []string
	for _, line := range result.Hunks[0].Lines {
		if line.Type == Addition {
			added = append(added, line.Content)
		}
	}
	assert.Equal(t, []string{"c"}, added)
}

func TestDiffDeletion(t *testing.T) {
	old := []byte("a\nb\nc\n")
	new := []byte("a\nc\n")

	result, err := NewEngine(3).Diff(old, new)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stats.Additions)
	assert.Equal(t, 1, result.Stats.Deletions)

	require.Len(t, result.Hunks, 1)
	var deleted []string
	for _, line := range result.Hunks[0].Lines {
		if line.Type == Deletion {
			deleted = append(deleted, line.Content)
		}
	}
	assert.Equal(t, []string{"b"}, deleted)
}

func TestDiffModification(t *testing.T) {
	old := []byte("unchanged\nbefore\nalso unchanged\n")
	new := []byte("unchanged\nafter\nalso unchanged\n")

	result, err := NewEngine(3).Diff(old, new)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Additions)
	assert.Equal(t, 1, result.Stats.Deletions)
	assert.Equal(t, 2, result.Stats.Changes)
}

func TestDiffAgainstEmpty(t *testing.T) {
	result, err := NewEngine(3).Diff(nil, []byte("only\nnew\n"))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Stats.Additions, 2)
	assert.Positive(t, result.Stats.Changes)
}

func TestDiffContextLines(t *testing.T) {
	old := []byte("1\n2\n3\n4\n5\n6\n7\n")
	new := []byte("1\n2\n3\nchanged\n5\n6\n7\n")

	result, err := NewEngine(2).Diff(old, new)
	require.NoError(t, err)
	require.Len(t, result.Hunks, 1)

	var context []string
	for _, line := range result.Hunks[0].Lines {
		if line.Type == Context {
			context = append(context, line.Content)
		}
	}
	assert.Equal(t, []string{"2", "3"}, context, "two lines of leading context")
}

func TestFormat(t *testing.T) {
	result, err := NewEngine(1).Diff([]byte("a\nold\nz\n"), []byte("a\nnew\nz\n"))
	require.NoError(t, err)

	out := result.Format()
	assert.True(t, strings.HasPrefix(out, "@@"))
	assert.Contains(t, out, "- old")
	assert.Contains(t, out, "+ new")
	assert.Contains(t, out, "  a")
}
