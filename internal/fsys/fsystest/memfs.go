// Package fsystest provides an in-memory fsys.FS for tests.
//
// Every mutation delivers notifications the way the kernel backend does: to
// subscribers of the mutated path and to subscribers of its parent
// directory. Callbacks run synchronously on the mutating goroutine, after
// the filesystem lock is released.
package fsystest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Aman-CERP/fireworm/internal/fsys"
)

// Epoch is the modification time of the first mutation.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const dev = 1

type node struct {
	ino     uint64
	kind    fsys.Kind
	modTime time.Time
	size    int64
}

type handle struct {
	fs   *FS
	path string
	fn   func(fsys.RawEvent)
	once sync.Once
}

func (h *handle) Close() error {
	h.once.Do(func() {
		h.fs.mu.Lock()
		defer h.fs.mu.Unlock()
		delete(h.fs.subs[h.path], h)
		if len(h.fs.subs[h.path]) == 0 {
			delete(h.fs.subs, h.path)
		}
	})
	return nil
}

// FS is an in-memory filesystem rooted at "/".
type FS struct {
	mu       sync.Mutex
	nodes    map[string]*node
	subs     map[string]map[*handle]struct{}
	nextIno  uint64
	now      time.Time
	readDirs map[string]int
	stats    map[string]int

	subscribeErr func(path string) error
	readDirErr   func(path string) error
	statErr      func(path string) error
	statHook     func(path string)
}

var _ fsys.FS = (*FS)(nil)

// New returns an empty filesystem containing only the root directory.
func New() *FS {
	m := &FS{
		nodes:    make(map[string]*node),
		subs:     make(map[string]map[*handle]struct{}),
		nextIno:  1,
		now:      Epoch,
		readDirs: make(map[string]int),
		stats:    make(map[string]int),
	}
	m.nodes["/"] = m.newNode(fsys.KindDir)
	return m
}

// Name returns "memory".
func (m *FS) Name() string { return "memory" }

// Close drops every subscription.
func (m *FS) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = make(map[string]map[*handle]struct{})
	return nil
}

// Stat implements fsys.FS.
func (m *FS) Stat(path string) (fsys.Info, error) {
	path = filepath.Clean(path)

	m.mu.Lock()
	hook, fail := m.statHook, m.statErr
	m.mu.Unlock()
	if hook != nil {
		hook(path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[path]++

	if fail != nil {
		if err := fail(path); err != nil {
			return fsys.Info{}, err
		}
	}

	n, ok := m.nodes[path]
	if !ok {
		return fsys.Info{}, notExist("stat", path)
	}
	return fsys.Info{
		Path:     path,
		Identity: fsys.Identity{Dev: dev, Ino: n.ino},
		Kind:     n.kind,
		ModTime:  n.modTime,
		Size:     n.size,
	}, nil
}

// ReadDir implements fsys.FS.
func (m *FS) ReadDir(path string) ([]string, error) {
	path = filepath.Clean(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDirs[path]++

	if m.readDirErr != nil {
		if err := m.readDirErr(path); err != nil {
			return nil, err
		}
	}

	n, ok := m.nodes[path]
	if !ok {
		return nil, notExist("readdir", path)
	}
	if n.kind != fsys.KindDir {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: syscall.ENOTDIR}
	}

	var names []string
	for p := range m.nodes {
		if p != path && filepath.Dir(p) == path {
			names = append(names, filepath.Base(p))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Subscribe implements fsys.FS.
func (m *FS) Subscribe(path string, fn func(fsys.RawEvent)) (fsys.Handle, error) {
	path = filepath.Clean(path)

	m.mu.Lock()
	hook := m.subscribeErr
	m.mu.Unlock()
	if hook != nil {
		if err := hook(path); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[path]; !ok {
		return nil, notExist("watch", path)
	}
	h := &handle{fs: m, path: path, fn: fn}
	if m.subs[path] == nil {
		m.subs[path] = make(map[*handle]struct{})
	}
	m.subs[path][h] = struct{}{}
	return h, nil
}

// SetSubscribeError installs a hook consulted before every subscription.
// A non-nil return fails the subscription with that error.
func (m *FS) SetSubscribeError(fn func(path string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeErr = fn
}

// SetReadDirError installs a hook consulted on every listing. A non-nil
// return fails the listing with that error.
func (m *FS) SetReadDirError(fn func(path string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDirErr = fn
}

// SetStatError installs a hook consulted on every Stat, after the stat
// hook. A non-nil return fails the Stat with that error.
func (m *FS) SetStatError(fn func(path string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statErr = fn
}

// SetStatHook installs a hook run at the start of every Stat, outside the
// lock, so tests can mutate the tree between a listing and a stat.
func (m *FS) SetStatHook(fn func(path string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statHook = fn
}

// MkdirAll creates path and any missing parents.
func (m *FS) MkdirAll(path string) {
	path = filepath.Clean(path)

	m.mu.Lock()
	var created []string
	for _, p := range ancestry(path) {
		if _, ok := m.nodes[p]; ok {
			continue
		}
		m.nodes[p] = m.newNode(fsys.KindDir)
		created = append(created, p)
	}
	m.mu.Unlock()

	for _, p := range created {
		m.notify(p, fsys.OpRename)
	}
}

// WriteFile creates or overwrites a file, creating parents as needed, and
// advances its modification time.
func (m *FS) WriteFile(path, content string) {
	path = filepath.Clean(path)
	m.MkdirAll(filepath.Dir(path))

	m.mu.Lock()
	n, existed := m.nodes[path]
	if !existed {
		n = m.newNode(fsys.KindFile)
		m.nodes[path] = n
	}
	n.modTime = m.tick()
	n.size = int64(len(content))
	m.mu.Unlock()

	if existed {
		m.notify(path, fsys.OpChange)
	} else {
		m.notify(path, fsys.OpRename)
	}
}

// SetModTime sets a file's modification time and delivers a change
// notification even when the time did not move.
func (m *FS) SetModTime(path string, t time.Time) error {
	path = filepath.Clean(path)

	m.mu.Lock()
	n, ok := m.nodes[path]
	if !ok {
		m.mu.Unlock()
		return notExist("chtimes", path)
	}
	n.modTime = t
	m.mu.Unlock()

	m.notify(path, fsys.OpChange)
	return nil
}

// ModTime returns the current modification time of path.
func (m *FS) ModTime(path string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[filepath.Clean(path)]; ok {
		return n.modTime
	}
	return time.Time{}
}

// Remove deletes path and everything beneath it.
func (m *FS) Remove(path string) error {
	path = filepath.Clean(path)

	m.mu.Lock()
	if _, ok := m.nodes[path]; !ok {
		m.mu.Unlock()
		return notExist("remove", path)
	}
	removed := m.subtree(path)
	for _, p := range removed {
		delete(m.nodes, p)
	}
	m.mu.Unlock()

	// Deepest first, as the kernel reports them.
	for i := len(removed) - 1; i >= 0; i-- {
		m.notify(removed[i], fsys.OpRename)
	}
	return nil
}

// Rename moves oldPath (and everything beneath it) to newPath, replacing
// whatever was at newPath.
func (m *FS) Rename(oldPath, newPath string) error {
	oldPath = filepath.Clean(oldPath)
	newPath = filepath.Clean(newPath)

	m.mu.Lock()
	if _, ok := m.nodes[oldPath]; !ok {
		m.mu.Unlock()
		return notExist("rename", oldPath)
	}
	if _, ok := m.nodes[filepath.Dir(newPath)]; !ok {
		m.mu.Unlock()
		return notExist("rename", newPath)
	}
	for _, p := range m.subtree(newPath) {
		delete(m.nodes, p)
	}
	moved := m.subtree(oldPath)
	for _, p := range moved {
		n := m.nodes[p]
		delete(m.nodes, p)
		m.nodes[newPath+strings.TrimPrefix(p, oldPath)] = n
	}
	m.mu.Unlock()

	m.notify(oldPath, fsys.OpRename)
	m.notify(newPath, fsys.OpRename)
	return nil
}

// Link creates a hardlink: newPath shares oldPath's identity.
func (m *FS) Link(oldPath, newPath string) error {
	oldPath = filepath.Clean(oldPath)
	newPath = filepath.Clean(newPath)

	m.mu.Lock()
	n, ok := m.nodes[oldPath]
	if !ok || n.kind == fsys.KindDir {
		m.mu.Unlock()
		return notExist("link", oldPath)
	}
	m.nodes[newPath] = n
	m.mu.Unlock()

	m.notify(newPath, fsys.OpRename)
	return nil
}

// Touch delivers a notification for path without changing anything. It
// simulates spurious kernel events.
func (m *FS) Touch(path string, op fsys.Op) {
	m.notify(filepath.Clean(path), op)
}

// ReadDirCount returns how many times path has been listed.
func (m *FS) ReadDirCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readDirs[filepath.Clean(path)]
}

// StatCount returns how many times path has been stated.
func (m *FS) StatCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats[filepath.Clean(path)]
}

// Subscriptions returns the number of live subscriptions on path.
func (m *FS) Subscriptions(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[filepath.Clean(path)])
}

// TotalSubscriptions returns the number of live subscriptions.
func (m *FS) TotalSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, set := range m.subs {
		total += len(set)
	}
	return total
}

// SubscriptionsByIdentity counts live subscriptions per identity of the
// subscribed path. Paths that no longer exist are not counted.
func (m *FS) SubscriptionsByIdentity() map[fsys.Identity]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[fsys.Identity]int)
	for path, set := range m.subs {
		n, ok := m.nodes[path]
		if !ok {
			continue
		}
		out[fsys.Identity{Dev: dev, Ino: n.ino}] += len(set)
	}
	return out
}

// IdentityOf returns the identity stored at path.
func (m *FS) IdentityOf(path string) (fsys.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[filepath.Clean(path)]
	if !ok {
		return fsys.Identity{}, false
	}
	return fsys.Identity{Dev: dev, Ino: n.ino}, true
}

func (m *FS) notify(path string, op fsys.Op) {
	m.mu.Lock()
	var targets []func(fsys.RawEvent)
	for h := range m.subs[path] {
		targets = append(targets, h.fn)
	}
	if parent := filepath.Dir(path); parent != path {
		for h := range m.subs[parent] {
			targets = append(targets, h.fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range targets {
		fn(fsys.RawEvent{Path: path, Op: op})
	}
}

// subtree returns path and its descendants, parents before children.
// Caller holds the lock.
func (m *FS) subtree(path string) []string {
	var out []string
	prefix := path + string(filepath.Separator)
	if path == "/" {
		prefix = path
	}
	for p := range m.nodes {
		if p == path || strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// newNode allocates a node. Caller holds the lock.
func (m *FS) newNode(kind fsys.Kind) *node {
	n := &node{ino: m.nextIno, kind: kind, modTime: m.tick()}
	m.nextIno++
	return n
}

// tick advances the filesystem clock by one second. Caller holds the lock.
func (m *FS) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func ancestry(path string) []string {
	var chain []string
	for p := path; ; p = filepath.Dir(p) {
		chain = append(chain, p)
		if filepath.Dir(p) == p {
			break
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

// String dumps the tree, for test failure messages.
func (m *FS) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.nodes))
	for p := range m.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var sb strings.Builder
	for _, p := range paths {
		n := m.nodes[p]
		sb.WriteString(fmt.Sprintf("%s %s ino=%d\n", n.kind, p, n.ino))
	}
	return sb.String()
}
