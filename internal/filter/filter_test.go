package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRule(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"*.log", "**/*.log"},
		{"build/", "**/build/"},
		{"/build/", "build/"},
		{"/README.md", "README.md"},
		{"**/node_modules/", "**/node_modules/"},
		{"  *.tmp  ", "**/*.tmp"},
		{"sub\\dir", "**/sub/dir"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeRule(tc.in), "input %q", tc.in)
	}
}

func TestCompileIgnoreRulesSkipsBlankLines(t *testing.T) {
	rs := CompileIgnoreRules("*.log\n\n   \nbuild/\n")

	require.Len(t, rs.Patterns(), 4)
	assert.Equal(t, "**/*.log", rs.Patterns()[0])
	assert.Equal(t, "**/build/", rs.Patterns()[1])
}

func TestCompileIgnoreRulesAppendsImplicitRules(t *testing.T) {
	rs := CompileIgnoreRules("")

	assert.Contains(t, rs.Patterns(), "**/.git/")
	assert.Contains(t, rs.Patterns(), "**/.stash/")
}

func TestRuleSetMatch(t *testing.T) {
	rs := CompileIgnoreRules("*.log\nbuild/\n/rooted.txt\n")

	assert.True(t, rs.Match("debug.log"))
	assert.True(t, rs.Match("deep/nested/trace.log"))
	assert.False(t, rs.Match("debug.log.txt"))

	assert.True(t, rs.Match("build/"))
	assert.True(t, rs.Match("build/out.bin"))
	assert.True(t, rs.Match("sub/build/out.bin"))
	assert.False(t, rs.Match("build"), "file named build is not the directory pattern")

	assert.True(t, rs.Match("rooted.txt"))
	assert.False(t, rs.Match("sub/rooted.txt"))
}

func TestRuleSetMatchesControlMetadata(t *testing.T) {
	rs := CompileIgnoreRules("")

	assert.True(t, rs.Match(".git/"))
	assert.True(t, rs.Match(".git/HEAD"))
	assert.True(t, rs.Match("sub/.stash/state"))
	assert.False(t, rs.Match(".gitignore"))
}

func TestRuleSetPredicatePolarity(t *testing.T) {
	pred := CompileIgnoreRules("*.log\n").Predicate()

	assert.False(t, pred("debug.log"), "ignored paths are excluded")
	assert.True(t, pred("main.go"), "everything else is included")
}

func TestScopeIncludesTargetsAndDescendants(t *testing.T) {
	pred := Scope([]string{"docs/"})

	assert.True(t, pred("docs/"))
	assert.True(t, pred("docs/guide.md"))
	assert.True(t, pred("docs/deep/nested.md"))
	assert.False(t, pred("src/main.go"))
	assert.False(t, pred("docsx/other.md"))
}

func TestScopeFileTargetIsExact(t *testing.T) {
	pred := Scope([]string{"docs/guide.md"})

	assert.True(t, pred("docs/guide.md"))
	assert.False(t, pred("docs/other.md"))
	assert.False(t, pred("docs/guide.md.bak"))
}

func TestScopeIncludesAncestors(t *testing.T) {
	pred := Scope([]string{"a/b/c.txt"})

	assert.True(t, pred("a/"))
	assert.True(t, pred("a/b/"))
	assert.False(t, pred("a/other.txt"))
}

func TestScopeEmptyPathExcluded(t *testing.T) {
	pred := Scope([]string{"docs/"})

	assert.False(t, pred(""))
	assert.False(t, pred("/"))
}

func TestAllIncludesEverything(t *testing.T) {
	assert.True(t, All("anything"))
	assert.True(t, All(".git/"))
}
