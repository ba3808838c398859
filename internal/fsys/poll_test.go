package fsys

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []RawEvent
}

func (c *collector) fn(e RawEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) snapshot() []RawEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]RawEvent(nil), c.events...)
}

func newTestPoll(t *testing.T) (*Poll, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	p := NewPoll(time.Second, mock, nil)
	t.Cleanup(func() { _ = p.Close() })
	return p, mock
}

func TestPoll_DetectsDirectoryListingChange(t *testing.T) {
	// Given: a polled directory
	dir := t.TempDir()
	p, mock := newTestPoll(t)
	c := &collector{}
	_, err := p.Subscribe(dir, c.fn)
	require.NoError(t, err)

	// When: a file appears and the ticker fires
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.go"), []byte("x"), 0o644))
	mock.Add(time.Second)

	// Then: the directory subscriber hears a rename
	require.Eventually(t, func() bool { return len(c.snapshot()) > 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, RawEvent{Path: dir, Op: OpRename}, c.snapshot()[0])
}

func TestPoll_DetectsFileModification(t *testing.T) {
	// Given: a polled file
	dir := t.TempDir()
	file := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))
	p, mock := newTestPoll(t)
	c := &collector{}
	_, err := p.Subscribe(file, c.fn)
	require.NoError(t, err)

	// When: its size changes
	require.NoError(t, os.WriteFile(file, []byte("abc"), 0o644))
	mock.Add(time.Second)

	// Then: a change is reported
	require.Eventually(t, func() bool { return len(c.snapshot()) > 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, OpChange, c.snapshot()[0].Op)
}

func TestPoll_DetectsDeletion(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))
	p, mock := newTestPoll(t)
	c := &collector{}
	_, err := p.Subscribe(file, c.fn)
	require.NoError(t, err)

	require.NoError(t, os.Remove(file))
	mock.Add(time.Second)

	require.Eventually(t, func() bool { return len(c.snapshot()) > 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, OpRename, c.snapshot()[0].Op)
}

func TestPoll_ClosedHandleStopsDelivery(t *testing.T) {
	dir := t.TempDir()
	p, mock := newTestPoll(t)
	c := &collector{}
	h, err := p.Subscribe(dir, c.fn)
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x"), []byte("x"), 0o644))
	mock.Add(time.Second)
	mock.Add(time.Second)

	assert.Empty(t, c.snapshot())
}

func TestPoll_SubscribeMissingPath(t *testing.T) {
	p, _ := newTestPoll(t)
	_, err := p.Subscribe(filepath.Join(t.TempDir(), "missing"), func(RawEvent) {})
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "polling", p.Name())
}

func TestDiffSnapshot(t *testing.T) {
	now := time.Now()
	file := snapshot{exists: true, modTime: now, size: 1}
	dir := snapshot{exists: true, isDir: true, names: []string{"a"}}

	tests := []struct {
		name    string
		prev    snapshot
		cur     snapshot
		op      Op
		changed bool
	}{
		{"unchanged file", file, file, OpChange, false},
		{"vanished", file, snapshot{}, OpRename, true},
		{"appeared", snapshot{}, file, OpRename, true},
		{"still missing", snapshot{}, snapshot{}, OpChange, false},
		{"resized", file, snapshot{exists: true, modTime: now, size: 2}, OpChange, true},
		{"touched", file, snapshot{exists: true, modTime: now.Add(time.Second), size: 1}, OpChange, true},
		{"listing grew", dir, snapshot{exists: true, isDir: true, names: []string{"a", "b"}}, OpRename, true},
		{"file became dir", file, dir, OpRename, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, changed := diffSnapshot(tt.prev, tt.cur)
			assert.Equal(t, tt.changed, changed)
			if changed {
				assert.Equal(t, tt.op, op)
			}
		})
	}
}
