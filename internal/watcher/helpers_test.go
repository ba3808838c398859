package watcher

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fireworm/internal/fsys/fsystest"
)

const testWindow = 200 * time.Millisecond

// recorder captures every event a watcher emits, in order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) since(n int) []Event {
	all := r.all()
	if n > len(all) {
		return nil
	}
	return all[n:]
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, e := range r.all() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) paths(kind EventKind) []string {
	var out []string
	for _, e := range r.all() {
		if e.Kind == kind {
			out = append(out, e.Path)
		}
	}
	return out
}

// index returns the position of the first event of kind for path, or -1.
func (r *recorder) index(kind EventKind, path string) int {
	for i, e := range r.all() {
		if e.Kind == kind && e.Path == path {
			return i
		}
	}
	return -1
}

type harness struct {
	t     *testing.T
	fs    *fsystest.FS
	clock *clock.Mock
	w     *Watcher
	rec   *recorder
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHarness builds a watcher over an in-memory filesystem rooted at
// /proj with a mock clock. mutate may adjust the options.
func newHarness(t *testing.T, m *fsystest.FS, mutate func(*Options)) *harness {
	t.Helper()

	mock := clock.NewMock()
	opts := DefaultOptions()
	opts.BaseDir = "/proj"
	opts.FS = m
	opts.Clock = mock
	opts.DebounceWindow = testWindow
	opts.Logger = discardLogger()
	if mutate != nil {
		mutate(&opts)
	}

	w, err := New(opts)
	require.NoError(t, err)

	rec := &recorder{}
	for _, kind := range []EventKind{EventAdd, EventChange, EventRemove, EventReady, EventError, EventResourceExhausted} {
		w.On(kind, rec.record)
	}

	h := &harness{t: t, fs: m, clock: mock, w: w, rec: rec}
	t.Cleanup(func() { _ = w.Close() })
	return h
}

// settle waits until no filesystem operation is in flight and every
// emitted event has reached the recorder.
func (h *harness) settle() {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		s := h.w.Stats()
		return s.InFlight == 0 && s.Pending == 0
	}, 2*time.Second, time.Millisecond)
	h.w.bus.flush()
}

// add registers patterns and waits for discovery to drain.
func (h *harness) add(patterns ...string) {
	h.t.Helper()
	before := h.rec.count(EventReady)
	require.NoError(h.t, h.w.Add(patterns...))
	h.waitReady(before + 1)
}

func (h *harness) waitReady(n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.rec.count(EventReady) >= n
	}, 2*time.Second, time.Millisecond, "ready #%d never fired", n)
	h.settle()
}

// elapse advances the mock clock past the debounce window once all
// pending notifications have been handled, then waits for the rescans.
func (h *harness) elapse() {
	h.t.Helper()
	h.settle()
	h.clock.Add(testWindow)
	require.Eventually(h.t, func() bool {
		return h.w.Stats().Debouncing == 0
	}, 2*time.Second, time.Millisecond)
	h.settle()
}
