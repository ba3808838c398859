package watcher

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type debounceFixture struct {
	clock *clock.Mock
	posts chan func()
	fired []string
	d     *debouncer
}

func newDebounceFixture() *debounceFixture {
	f := &debounceFixture{
		clock: clock.NewMock(),
		posts: make(chan func(), 16),
	}
	post := func(fn func()) bool {
		f.posts <- fn
		return true
	}
	f.d = newDebouncer(f.clock, testWindow, post, func(dir string) {
		f.fired = append(f.fired, dir)
	})
	return f
}

// next waits for a timer to post its expiry.
func (f *debounceFixture) next(t *testing.T) func() {
	t.Helper()
	select {
	case fn := <-f.posts:
		return fn
	case <-time.After(time.Second):
		require.FailNow(t, "timer did not fire")
		return nil
	}
}

func (f *debounceFixture) quiet(t *testing.T) {
	t.Helper()
	select {
	case <-f.posts:
		assert.Fail(t, "unexpected timer expiry")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebounceState_String(t *testing.T) {
	assert.Equal(t, "idle", stateIdle.String())
	assert.Equal(t, "pending", statePending.String())
	assert.Equal(t, "unknown", debounceState(9).String())
}

func TestDebouncer_FiresAfterQuietWindow(t *testing.T) {
	// Given: one event
	f := newDebounceFixture()
	f.d.Touch("/d")

	state, deadline := f.d.State("/d")
	assert.Equal(t, statePending, state)
	assert.Equal(t, f.clock.Now().Add(testWindow), deadline)

	// When: the window has not passed yet
	f.clock.Add(testWindow - time.Millisecond)

	// Then: nothing fires
	f.quiet(t)
	assert.Empty(t, f.fired)

	// When: it passes
	f.clock.Add(time.Millisecond)
	f.next(t)()

	// Then: the directory is rescanned once and returns to idle
	assert.Equal(t, []string{"/d"}, f.fired)
	state, _ = f.d.State("/d")
	assert.Equal(t, stateIdle, state)
	assert.Zero(t, f.d.Pending())
}

func TestDebouncer_TouchPushesDeadline(t *testing.T) {
	// Given: an event followed by another halfway through the window
	f := newDebounceFixture()
	f.d.Touch("/d")
	f.clock.Add(testWindow / 2)
	f.d.Touch("/d")

	// When: the first deadline passes
	f.clock.Add(testWindow / 2)

	// Then: nothing fires until a full window after the last event
	f.quiet(t)
	assert.Empty(t, f.fired)

	f.clock.Add(testWindow / 2)
	f.next(t)()
	assert.Equal(t, []string{"/d"}, f.fired)
}

func TestDebouncer_StaleExpiryIgnored(t *testing.T) {
	// Given: a timer that fired but whose expiry is still queued
	f := newDebounceFixture()
	f.d.Touch("/d")
	f.clock.Add(testWindow)
	stale := f.next(t)

	// When: another event arrives before the loop runs the expiry
	f.d.Touch("/d")
	stale()

	// Then: the stale expiry does nothing and the new window stands
	assert.Empty(t, f.fired)
	state, _ := f.d.State("/d")
	assert.Equal(t, statePending, state)

	f.clock.Add(testWindow)
	f.next(t)()
	assert.Equal(t, []string{"/d"}, f.fired)
}

func TestDebouncer_DirectoriesAreIndependent(t *testing.T) {
	f := newDebounceFixture()
	f.d.Touch("/a")
	f.clock.Add(testWindow / 2)
	f.d.Touch("/b")
	assert.Equal(t, 2, f.d.Pending())

	f.clock.Add(testWindow / 2)
	f.next(t)()
	assert.Equal(t, []string{"/a"}, f.fired)

	f.clock.Add(testWindow / 2)
	f.next(t)()
	assert.Equal(t, []string{"/a", "/b"}, f.fired)
}

func TestDebouncer_Cancel(t *testing.T) {
	f := newDebounceFixture()
	f.d.Touch("/d")
	f.d.Cancel("/d")
	f.d.Cancel("/unknown")

	f.clock.Add(testWindow)
	f.quiet(t)
	assert.Empty(t, f.fired)
	assert.Zero(t, f.d.Pending())
}

func TestDebouncer_Stop(t *testing.T) {
	f := newDebounceFixture()
	f.d.Touch("/a")
	f.d.Touch("/b")

	f.d.Stop()

	f.clock.Add(testWindow)
	f.quiet(t)
	assert.Zero(t, f.d.Pending())
}
