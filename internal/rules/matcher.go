package rules

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Matcher answers "does the text contain any of these phrases" in one pass.
// Phrases are lower-cased and trimmed; text passed in must already be lower-case.
type Matcher struct {
	phrases []string

	// the automaton keeps per-call scratch state, so Match is serialised
	mu sync.Mutex
	ac *ahocorasick.Matcher
}

// NewMatcher compiles phrases into an Aho-Corasick automaton. Blank and
// duplicate phrases are dropped; declaration order is kept.
func NewMatcher(phrases []string) *Matcher {
	seen := make(map[string]bool, len(phrases))
	m := &Matcher{phrases: make([]string, 0, len(phrases))}
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		m.phrases = append(m.phrases, p)
	}
	if len(m.phrases) > 0 {
		m.ac = ahocorasick.NewStringMatcher(m.phrases)
	}
	return m
}

// ContainsAny reports whether text contains at least one phrase as a substring.
func (m *Matcher) ContainsAny(text string) bool {
	if m == nil || m.ac == nil || text == "" {
		return false
	}
	return len(m.match(text)) > 0
}

// First returns the earliest-declared phrase found in text.
func (m *Matcher) First(text string) (string, bool) {
	if m == nil || m.ac == nil || text == "" {
		return "", false
	}
	hits := m.match(text)
	if len(hits) == 0 {
		return "", false
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h < best {
			best = h
		}
	}
	return m.phrases[best], true
}

func (m *Matcher) match(text string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ac.Match([]byte(text))
}

// Has reports whether phrase is one of the compiled phrases (exact match).
func (m *Matcher) Has(phrase string) bool {
	if m == nil {
		return false
	}
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	for _, p := range m.phrases {
		if p == phrase {
			return true
		}
	}
	return false
}

// Len returns the number of distinct phrases.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.phrases)
}
