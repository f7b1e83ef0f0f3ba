package tarbuilder

import (
	"io/fs"
	"path/filepath"
	"sync"
)

// Matcher decides whether a path should be excluded from the archive. It
// stands in for the C builder's lafe_matching include/exclude pattern
// list (b_builder_include/b_builder_exclude in b_builder.h); full pattern
// semantics (bsdtar-style -I/-X matching) are explicitly out of scope
// here, but the capability is still pluggable so a caller can bring their
// own.
type Matcher interface {
	Excluded(path string, fi fs.FileInfo) bool
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(path string, fi fs.FileInfo) bool

func (f MatcherFunc) Excluded(path string, fi fs.FileInfo) bool {
	return f(path, fi)
}

// GlobMatcher excludes paths matching any of a set of shell glob patterns
// evaluated with path/filepath.Match, checked against both the full path
// and its base name so a bare pattern like "*.o" behaves the way most
// users expect without requiring a leading "**/".
type GlobMatcher struct {
	mu       sync.RWMutex
	patterns []string
}

// NewGlobMatcher builds a GlobMatcher from the given patterns.
func NewGlobMatcher(patterns ...string) *GlobMatcher {
	m := &GlobMatcher{}
	m.patterns = append(m.patterns, patterns...)
	return m
}

// Add registers additional patterns.
func (m *GlobMatcher) Add(patterns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, patterns...)
}

func (m *GlobMatcher) Excluded(path string, fi fs.FileInfo) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	base := filepath.Base(path)
	for _, pat := range m.patterns {
		if ok, _ := filepath.Match(pat, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	return false
}
