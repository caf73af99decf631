package watcher

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter decides which inbox paths are considered. Paths are relative to the
// inbox root with forward slashes.
type Filter struct {
	Ignore  []string
	Include []string
}

// Ignored reports whether relPath or one of its parent directories matches an
// ignore pattern.
func (f Filter) Ignored(relPath string) bool {
	parts := strings.Split(relPath, "/")
	for _, pattern := range f.Ignore {
		for i := len(parts); i >= 1; i-- {
			if matched, err := doublestar.Match(pattern, strings.Join(parts[:i], "/")); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Included reports whether relPath matches an include pattern. No include
// patterns includes everything.
func (f Filter) Included(relPath string) bool {
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
	}
	return false
}

// Match reports whether a file at relPath should be imported.
func (f Filter) Match(relPath string) bool {
	return !f.Ignored(relPath) && f.Included(relPath)
}
