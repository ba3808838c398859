// Package gitignore matches paths against .gitignore rules so a watch can
// skip what git skips.
//
// Rules are translated to doublestar patterns. Supported syntax: comments,
// negation (!), escaped leading # and !, escaped trailing space, rooted
// (/build) and directory-only (build/) rules, and *, ?, ** wildcards.
// As in git, a path inside an ignored directory stays ignored even if a
// later negation matches it.
//
//	m := gitignore.New()
//	m.AddPattern("*.log")
//	m.AddPattern("!important.log")
//	if m.Match("logs/error.log", false) {
//	    // ignored
//	}
//
// Nested files apply below their directory:
//
//	_ = m.AddFromFile("/repo/.gitignore", "")
//	_ = m.AddFromFile("/repo/src/.gitignore", "src")
package gitignore
