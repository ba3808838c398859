package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file read by Load.
const FileName = ".gitignore"

// Matcher holds translated rules. Safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	glob     string // doublestar pattern, relative to base
	negation bool
	dirOnly  bool
	base     string // slash-separated directory the rule applies under
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Load reads root/.gitignore. A missing file yields an empty Matcher.
func Load(root string) (*Matcher, error) {
	m := New()
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return m, nil
	}
	if err := m.AddFromFile(path, ""); err != nil {
		return nil, err
	}
	return m, nil
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// AddPattern adds one gitignore line applying from the top.
func (m *Matcher) AddPattern(line string) {
	m.AddPatternWithBase(line, "")
}

// AddPatternWithBase adds one gitignore line that applies only below base.
// Blank lines, comments and lines that do not translate are skipped.
func (m *Matcher) AddPatternWithBase(line, base string) {
	r, ok := parse(line)
	if !ok {
		return
	}
	r.base = strings.Trim(filepath.ToSlash(base), "/")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFromFile adds every line of a gitignore file, applying below base.
func (m *Matcher) AddFromFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open gitignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPatternWithBase(scanner.Text(), base)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read gitignore file: %w", err)
	}
	return nil
}

// Match reports whether path, relative to the repository root, is
// ignored.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = strings.Trim(filepath.ToSlash(path), "/")
	if path == "" || path == "." {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// An ignored ancestor cannot be re-included from below.
	for i := 0; i < len(path); i++ {
		if path[i] == '/' && m.decide(path[:i], true) {
			return true
		}
	}
	return m.decide(path, isDir)
}

// Func returns a predicate over absolute paths under root, for use as a
// watcher ignore hook. Paths outside root are never ignored.
func (m *Matcher) Func(root string) func(path string, isDir bool) bool {
	return func(path string, isDir bool) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return false
		}
		return m.Match(rel, isDir)
	}
}

// decide applies the rules to one path; the last matching rule wins.
func (m *Matcher) decide(path string, isDir bool) bool {
	ignored := false
	for _, r := range m.rules {
		if r.matches(path, isDir) {
			ignored = !r.negation
		}
	}
	return ignored
}

func (r rule) matches(path string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	if r.base != "" {
		if !strings.HasPrefix(path, r.base+"/") {
			return false
		}
		path = path[len(r.base)+1:]
	}
	ok, err := doublestar.Match(r.glob, path)
	return err == nil && ok
}

// parse translates one gitignore line.
func parse(line string) (rule, bool) {
	var r rule

	line = strings.TrimRight(line, "\r")
	escapedSpace := strings.HasSuffix(line, `\ `)
	line = strings.TrimRight(line, " \t")
	if escapedSpace {
		line = strings.TrimSuffix(line, `\`) + " "
	}
	if line == "" || strings.HasPrefix(line, "#") {
		return r, false
	}

	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		r.negation = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}

	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return r, false
	}

	// Braces are literal in gitignore but alternation in doublestar.
	line = strings.NewReplacer("{", `\{`, "}", `\}`).Replace(line)
	if !anchored && !strings.HasPrefix(line, "**/") {
		line = "**/" + line
	}
	if !doublestar.ValidatePattern(line) {
		return r, false
	}
	r.glob = line
	return r, true
}
