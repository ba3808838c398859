package watcher

import (
	"path/filepath"
	"slices"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/fireworm/internal/glob"
)

// matchCacheSize bounds the memo of file-scope decisions.
const matchCacheSize = 4096

// registry holds the glob patterns and the tracked roots derived from them.
// Relative patterns are resolved against base. Owned by the loop.
type registry struct {
	base     string
	patterns []string
	seen     map[string]struct{}
	ignores  []string
	skip     func(path string, isDir bool) bool
	roots    []string
	matches  *lru.Cache[string, bool]
}

func newRegistry(base string, ignores []string) (*registry, error) {
	cache, err := lru.New[string, bool](matchCacheSize)
	if err != nil {
		return nil, err
	}
	r := &registry{
		base:    base,
		seen:    make(map[string]struct{}),
		matches: cache,
	}
	for _, p := range ignores {
		r.ignores = append(r.ignores, r.resolve(p))
	}
	return r, nil
}

func (r *registry) resolve(pattern string) string {
	if filepath.IsAbs(pattern) {
		return filepath.Clean(pattern)
	}
	return filepath.Join(r.base, pattern)
}

// Add registers pattern. It returns the root whose crawl picks up the
// pattern's matches and whether that root is newly tracked. The root is
// empty when the pattern was already registered.
func (r *registry) Add(pattern string) (root string, added bool) {
	resolved := r.resolve(pattern)
	if _, dup := r.seen[resolved]; dup {
		return "", false
	}
	r.seen[resolved] = struct{}{}
	r.patterns = append(r.patterns, resolved)
	r.matches.Purge()

	// Watch from the base dir when the pattern lives under it, so the
	// pattern root is noticed even if it is created later.
	target := glob.Root(resolved)
	if contains(r.base, target) {
		target = r.base
	}
	if r.TrackRoot(target) {
		return target, true
	}
	return r.rootOf(target), false
}

// TrackRoot adds dir to the tracked roots unless a tracked root already
// contains it. Tracked roots inside dir are absorbed.
func (r *registry) TrackRoot(dir string) bool {
	for _, root := range r.roots {
		if contains(root, dir) {
			return false
		}
	}
	kept := r.roots[:0]
	for _, root := range r.roots {
		if !contains(dir, root) {
			kept = append(kept, root)
		}
	}
	r.roots = append(kept, dir)
	sort.Strings(r.roots)
	return true
}

// Roots returns the tracked roots, sorted.
func (r *registry) Roots() []string {
	return append([]string(nil), r.roots...)
}

// Patterns returns the resolved patterns in registration order.
func (r *registry) Patterns() []string {
	return append([]string(nil), r.patterns...)
}

// rootOf returns the tracked root containing path, or "".
func (r *registry) rootOf(path string) string {
	for _, root := range r.roots {
		if contains(root, path) {
			return root
		}
	}
	return ""
}

// DepthOf returns how many path components path lies below its tracked
// root.
func (r *registry) DepthOf(path string) int {
	root := r.rootOf(path)
	if root == "" || root == path {
		return 0
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// Ignored reports whether an ignore pattern vetoes path.
func (r *registry) Ignored(path string) bool {
	for _, p := range r.ignores {
		if glob.Match(p, path) {
			return true
		}
	}
	return false
}

// InScope reports whether path is worth a stat: it is a directory that
// may lead to matches, or a file that matches.
func (r *registry) InScope(path string) bool {
	if r.Ignored(path) {
		return false
	}
	for _, p := range r.patterns {
		if glob.PrefixMatch(p, path) || glob.Match(p, path) {
			return true
		}
	}
	return false
}

// DirInScope reports whether dir is an ancestor of, equal to, or under a
// pattern root in a way that may still contain matches.
func (r *registry) DirInScope(dir string) bool {
	if r.vetoed(dir, true) {
		return false
	}
	for _, p := range r.patterns {
		if glob.PrefixMatch(p, dir) {
			return true
		}
	}
	return false
}

// FileInScope reports whether file matches a pattern.
func (r *registry) FileInScope(file string) bool {
	if hit, ok := r.matches.Get(file); ok {
		return hit
	}
	hit := false
	if !r.vetoed(file, false) {
		for _, p := range r.patterns {
			if glob.Match(p, file) {
				hit = true
				break
			}
		}
	}
	r.matches.Add(file, hit)
	return hit
}

// vetoed applies the ignore patterns and the kind-aware skip hook. Tracked
// roots are never skipped by the hook.
func (r *registry) vetoed(path string, isDir bool) bool {
	if r.Ignored(path) {
		return true
	}
	if r.skip == nil || (isDir && slices.Contains(r.roots, path)) {
		return false
	}
	return r.skip(path, isDir)
}

// Reportable reports whether add and remove events are emitted for dir:
// it must lie strictly inside some pattern root. Directories crawled only
// to reach a pattern root stay silent.
func (r *registry) Reportable(dir string) bool {
	for _, p := range r.patterns {
		root := glob.Root(p)
		if root != dir && contains(root, dir) && glob.PrefixMatch(p, dir) {
			return true
		}
	}
	return false
}

// Clear drops every pattern and root. Ignores are kept.
func (r *registry) Clear() {
	r.patterns = nil
	r.seen = make(map[string]struct{})
	r.roots = nil
	r.matches.Purge()
}

// contains reports whether path equals dir or lies beneath it, by path
// components rather than string prefix.
func contains(dir, path string) bool {
	if dir == path {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
