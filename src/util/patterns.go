package util

import (
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GlobSet matches slash separated relative paths against doublestar patterns
type GlobSet struct {
	patterns []string
}

// NewGlobSet compiles a glob set, dropping invalid patterns
func NewGlobSet(patterns []string) *GlobSet {
	g := &GlobSet{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			Warn("Ignoring invalid glob pattern: %s", p)
			continue
		}
		g.patterns = append(g.patterns, p)
	}
	return g
}

// Empty reports whether the set has no patterns
func (g *GlobSet) Empty() bool {
	return g == nil || len(g.patterns) == 0
}

// Match reports whether relPath matches any pattern. Patterns without a
// slash also match against the base name, the way .gitignore entries do.
func (g *GlobSet) Match(relPath string) bool {
	if g == nil {
		return false
	}
	base := path.Base(relPath)
	for _, p := range g.patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
	}
	return false
}

// MatchDir reports whether a directory can be pruned: it matches a pattern
// directly, or a pattern of the form "<dir>/**" covers everything below it.
func (g *GlobSet) MatchDir(relDir string) bool {
	if g == nil {
		return false
	}
	for _, p := range g.patterns {
		if ok, _ := doublestar.Match(p, relDir); ok {
			return true
		}
		if prefix, found := strings.CutSuffix(p, "/**"); found {
			if ok, _ := doublestar.Match(prefix, relDir); ok {
				return true
			}
		}
	}
	return false
}

// NameMatcher matches identifiers against exact names and regular expressions
type NameMatcher struct {
	names    map[string]bool
	patterns []*regexp.Regexp
}

// NewNameMatcher creates a matcher from exact names and regex patterns
func NewNameMatcher(names, patterns []string) *NameMatcher {
	m := &NameMatcher{names: make(map[string]bool, len(names))}
	for _, n := range names {
		m.names[n] = true
	}
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			m.patterns = append(m.patterns, re)
		} else {
			Warn("Ignoring invalid name pattern %q: %v", p, err)
		}
	}
	return m
}

// Matches reports whether name is listed or matches a pattern
func (m *NameMatcher) Matches(name string) bool {
	if m.names[name] {
		return true
	}
	for _, re := range m.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
