// Package ignore compiles ignore patterns and decides which workspace paths
// take part in packing.
//
// Grammar: '*' matches any run of characters except '/', '**' matches any run
// including '/', '?' matches one character other than '/'. A trailing '/'
// restricts the rule to directories, and so to everything beneath them. A
// leading '/' or any inner '/' anchors the rule at the workspace root;
// otherwise it is tested against the base name at every depth.
//
// There is no negation syntax. Rules are binary: the first match excludes.
package ignore

import (
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Rule struct {
	Pattern  string
	DirOnly  bool
	anchored bool
	re       *regexp.Regexp
}

func (r Rule) match(rel, base string, isDir bool) bool {
	if r.DirOnly && !isDir {
		return false
	}
	if r.anchored {
		return r.re.MatchString(rel)
	}
	return r.re.MatchString(base)
}

type Matcher struct {
	rules []Rule
}

// Compile builds a matcher from patterns in order. It fails on the first
// pattern the grammar cannot represent.
func Compile(patterns []string) (*Matcher, error) {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		r, err := compileRule(p)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	return &Matcher{rules: rules}, nil
}

func (m *Matcher) Rules() []Rule {
	if m == nil {
		return nil
	}
	return append([]Rule(nil), m.rules...)
}

func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.Pattern
	}
	return out
}

// IsIgnored reports whether rel is excluded, either by a rule of its own or
// because one of its ancestor directories is.
func (m *Matcher) IsIgnored(rel string, isDir bool) bool {
	_, ok := m.Why(rel, isDir)
	return ok
}

// Why returns the rule that excludes rel. Ancestors are tested first,
// shallowest to deepest, and the first excluded one ends the search, so the
// rule may belong to a parent directory rather than rel itself.
func (m *Matcher) Why(rel string, isDir bool) (Rule, bool) {
	if m == nil || len(m.rules) == 0 {
		return Rule{}, false
	}

	rel = normalize(rel)
	if rel == "" {
		return Rule{}, false
	}

	for i := 0; i < len(rel); i++ {
		if rel[i] != '/' {
			continue
		}
		if r, ok := m.Match(rel[:i], true); ok {
			return r, true
		}
	}

	return m.Match(rel, isDir)
}

// Match tests rel alone, without looking at its ancestors. Walkers that prune
// ignored directories call this for each entry they still visit.
func (m *Matcher) Match(rel string, isDir bool) (Rule, bool) {
	if m == nil {
		return Rule{}, false
	}

	rel = normalize(rel)
	base := path.Base(rel)

	for _, r := range m.rules {
		if r.match(rel, base, isDir) {
			return r, true
		}
	}

	return Rule{}, false
}

func normalize(rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	rel = strings.TrimPrefix(rel, "./")
	rel = strings.Trim(rel, "/")
	return rel
}

func compileRule(raw string) (Rule, error) {
	p := strings.TrimSpace(raw)

	switch {
	case p == "":
		return Rule{}, &InvalidPatternError{Pattern: raw, Reason: "empty pattern"}
	case strings.HasPrefix(p, "!"):
		return Rule{}, &InvalidPatternError{Pattern: raw, Reason: "negation is not supported"}
	case strings.ContainsAny(p, `[]\`):
		return Rule{}, &InvalidPatternError{Pattern: raw, Reason: "character classes and escapes are not supported"}
	case strings.Contains(p, "***"):
		return Rule{}, &InvalidPatternError{Pattern: raw, Reason: "more than two consecutive '*'"}
	}

	for _, c := range p {
		if c == utf8.RuneError || unicode.IsControl(c) {
			return Rule{}, &InvalidPatternError{Pattern: raw, Reason: "invalid character"}
		}
	}

	rule := Rule{Pattern: p}

	if strings.HasSuffix(p, "/") {
		rule.DirOnly = true
		p = strings.TrimSuffix(p, "/")
	}
	if strings.HasPrefix(p, "/") {
		rule.anchored = true
		p = strings.TrimPrefix(p, "/")
	}
	if p == "" || strings.Contains(p, "//") || strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return Rule{}, &InvalidPatternError{Pattern: raw, Reason: "empty path segment"}
	}
	if strings.Contains(p, "/") {
		rule.anchored = true
	}

	re, err := regexp.Compile(translate(p))
	if err != nil {
		return Rule{}, &InvalidPatternError{Pattern: raw, Reason: err.Error()}
	}
	rule.re = re

	return rule, nil
}

func translate(p string) string {
	var b strings.Builder
	b.WriteString(`^`)

	for i := 0; i < len(p); {
		switch {
		case strings.HasPrefix(p[i:], "**/"):
			b.WriteString(`(?:.*/)?`)
			i += 3
		case strings.HasPrefix(p[i:], "**"):
			b.WriteString(`.*`)
			i += 2
		case p[i] == '*':
			b.WriteString(`[^/]*`)
			i++
		case p[i] == '?':
			b.WriteString(`[^/]`)
			i++
		default:
			r, size := utf8.DecodeRuneInString(p[i:])
			b.WriteString(regexp.QuoteMeta(string(r)))
			i += size
		}
	}

	b.WriteString(`$`)
	return b.String()
}
