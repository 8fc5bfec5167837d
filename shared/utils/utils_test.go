package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashContent(t *testing.T) {
	a := HashContent([]byte("hello"))
	b := HashContent([]byte("hello"))
	c := HashContent([]byte("world"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"a/b/c", "a/b/c"},
		{"/a/b", "a/b"},
		{"./a/b", "a/b"},
		{"a/b/", "a/b"},
		{"a\\b", "a/b"},
		{"a/./b", "a/b"},
		{"a/../b", "b"},
		{"../escape", "escape"},
		{"../../escape", "escape"},
		{"..", ""},
		{".", ""},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePath(tc.in), "input %q", tc.in)
	}
}

func TestIsAncestor(t *testing.T) {
	assert.True(t, IsAncestor("a", "a/b"))
	assert.True(t, IsAncestor("a/b", "a/b/c.txt"))
	assert.False(t, IsAncestor("a", "a"))
	assert.False(t, IsAncestor("a", "ab/c"))
	assert.False(t, IsAncestor("", "a"))
	assert.False(t, IsAncestor("a/b", "a"))
}
