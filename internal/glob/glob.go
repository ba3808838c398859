// Package glob wraps doublestar with the operations the watcher needs:
// full-path matching, static-root extraction, and prefix matching of
// directories that may still contain matches.
//
// Patterns and paths are given in OS form and compared in slash form.
package glob

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match reports whether path matches pattern. An invalid pattern matches
// nothing.
func Match(pattern, path string) bool {
	ok, err := doublestar.Match(filepath.ToSlash(pattern), filepath.ToSlash(path))
	return err == nil && ok
}

// Validate returns an error if pattern is not a valid glob.
func Validate(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty pattern")
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return fmt.Errorf("invalid glob pattern %q", pattern)
	}
	return nil
}

// Root returns the longest directory prefix of pattern that contains no
// glob metacharacters. For "src/**/*.go" it is "src"; for "*.txt" it is ".".
func Root(pattern string) string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	if base == "" {
		return "."
	}
	return filepath.FromSlash(base)
}

// HasMeta reports whether pattern contains glob metacharacters.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{\\")
}

// PrefixMatch reports whether dir could contain a path matching pattern,
// either because dir is an ancestor of such a path or because it lies
// under a "**" segment.
func PrefixMatch(pattern, dir string) bool {
	pat := strings.Split(filepath.ToSlash(pattern), "/")
	segs := strings.Split(strings.TrimSuffix(filepath.ToSlash(dir), "/"), "/")

	for i, seg := range segs {
		if i >= len(pat) {
			return false
		}
		if pat[i] == "**" {
			return true
		}
		// Files sit in the last segment; a directory that deep holds nothing.
		if i == len(pat)-1 {
			return false
		}
		if pat[i] == seg {
			continue
		}
		ok, err := doublestar.Match(pat[i], seg)
		if err != nil {
			// A segment split out of a brace group; descend rather than miss.
			return true
		}
		if !ok {
			return false
		}
	}
	return true
}
