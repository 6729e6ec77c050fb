package ignore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, patterns ...string) *Matcher {
	t.Helper()
	m, err := Compile(patterns)
	require.NoError(t, err)
	return m
}

func TestIsIgnored(t *testing.T) {
	m := mustCompile(t, "*.pyc", "__pycache__/", "build/out?.txt", "/root.cfg", "docs/**/draft.md", ".DS_Store")

	cases := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"a.py", false, false},
		{"b.pyc", false, true},
		{"pkg/deep/c.pyc", false, true},
		{"__pycache__", true, true},
		{"__pycache__/x.py", false, true},
		{"pkg/__pycache__/x.py", false, true},
		{"__pycache__", false, false},
		{"build/out1.txt", false, true},
		{"build/out12.txt", false, false},
		{"sub/build/out1.txt", false, false},
		{"root.cfg", false, true},
		{"sub/root.cfg", false, false},
		{"docs/draft.md", false, true},
		{"docs/a/b/draft.md", false, true},
		{"other/draft.md", false, false},
		{"x/.DS_Store", false, true},
		{"pyc", false, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, m.IsIgnored(tc.path, tc.isDir), "path %q dir=%v", tc.path, tc.isDir)
	}
}

func TestStarDoesNotCrossSeparator(t *testing.T) {
	m := mustCompile(t, "src/*.py")

	assert.True(t, m.IsIgnored("src/a.py", false))
	assert.False(t, m.IsIgnored("src/sub/a.py", false))

	m = mustCompile(t, "src/**.py")
	assert.True(t, m.IsIgnored("src/sub/a.py", false))
}

func TestDirectoryRuleCoversDescendants(t *testing.T) {
	m := mustCompile(t, "vendor/")

	for _, p := range []string{
		"vendor/a.txt",
		"vendor/x/y/z.bin",
		"lib/vendor/readme",
	} {
		assert.True(t, m.IsIgnored(p, false), p)
	}

	assert.False(t, m.IsIgnored("vendored.txt", false))
}

func TestPythonScenario(t *testing.T) {
	m := mustCompile(t, "*.pyc", "__pycache__/")

	var kept []string
	for _, p := range []string{"a.py", "b.pyc", "__pycache__/x.pyc"} {
		if !m.IsIgnored(p, false) {
			kept = append(kept, p)
		}
	}

	assert.Equal(t, []string{"a.py"}, kept)
}

func TestMatchReturnsFirstRule(t *testing.T) {
	m := mustCompile(t, "*.log", "debug.*")

	r, ok := m.Match("debug.log", false)
	require.True(t, ok)
	assert.Equal(t, "*.log", r.Pattern)

	_, ok = m.Match("notes.txt", false)
	assert.False(t, ok)
}

func TestWhyReportsAncestorRule(t *testing.T) {
	m := mustCompile(t, "*.o", "build/")

	_, ok := m.Match("build/out/x.txt", false)
	assert.False(t, ok)

	r, ok := m.Why("build/out/x.txt", false)
	require.True(t, ok)
	assert.Equal(t, "build/", r.Pattern)

	r, ok = m.Why("src/x.o", false)
	require.True(t, ok)
	assert.Equal(t, "*.o", r.Pattern)

	_, ok = m.Why("src/x.c", false)
	assert.False(t, ok)
}

func TestNilMatcherIgnoresNothing(t *testing.T) {
	var m *Matcher
	assert.False(t, m.IsIgnored("a.pyc", false))
	_, ok := m.Why("a.pyc", false)
	assert.False(t, ok)
	assert.Nil(t, m.Patterns())
}

func TestCompileRejects(t *testing.T) {
	for _, p := range []string{
		"",
		"   ",
		"!keep.py",
		"[abc].py",
		`foo\bar`,
		"***",
		"/",
		"a//b",
		"tab\there",
	} {
		_, err := Compile([]string{"ok.txt", p})

		var invalid *InvalidPatternError
		require.True(t, errors.As(err, &invalid), "pattern %q: %v", p, err)
		assert.NotEmpty(t, invalid.Reason)
	}
}

func TestCompileKeepsOrderAndFlags(t *testing.T) {
	m := mustCompile(t, "  *.tmp ", "cache/")

	assert.Equal(t, []string{"*.tmp", "cache/"}, m.Patterns())

	rules := m.Rules()
	require.Len(t, rules, 2)
	assert.False(t, rules[0].DirOnly)
	assert.True(t, rules[1].DirOnly)
}

func TestBackslashPathsAreNormalized(t *testing.T) {
	m := mustCompile(t, "__pycache__/")
	assert.True(t, m.IsIgnored(`pkg\__pycache__\x.pyc`, false))
}
