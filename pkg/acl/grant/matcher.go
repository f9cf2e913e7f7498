package grant

import (
	"sync"

	"github.com/gobwas/glob"
)

// Matcher matches client and agent names against granted patterns.
//
// In extended mode patterns are case-sensitive shell globs (`*`, `?`,
// `[...]`) where `*` also matches path separators. Otherwise names must be
// strictly equal.
type Matcher struct {
	extended bool
	globs    sync.Map
}

func NewMatcher(extended bool) *Matcher {
	return &Matcher{extended: extended}
}

func (m *Matcher) Extended() bool {
	return m.extended
}

// Match returns the first pattern matching name.
func (m *Matcher) Match(patterns []string, name string) (string, bool) {
	if name == "" {
		return "", false
	}

	for _, pattern := range patterns {
		if m.match(pattern, name) {
			return pattern, true
		}
	}

	return "", false
}

func (m *Matcher) match(pattern, name string) bool {
	if pattern == name {
		return true
	}

	if !m.extended {
		return false
	}

	return m.compile(pattern).Match(name)
}

type literal string

func (l literal) Match(s string) bool {
	return string(l) == s
}

func (m *Matcher) compile(pattern string) glob.Glob {
	if cached, ok := m.globs.Load(pattern); ok {
		return cached.(glob.Glob)
	}

	var compiled glob.Glob = literal(pattern)

	if g, err := glob.Compile(pattern); err == nil {
		compiled = g
	}

	m.globs.Store(pattern, compiled)

	return compiled
}
