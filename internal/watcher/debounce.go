package watcher

import (
	"time"

	"github.com/benbjohnson/clock"
)

// debounceState is the state of one directory's rescan timer.
type debounceState int

const (
	// stateIdle means no rescan is scheduled.
	stateIdle debounceState = iota
	// statePending means a rescan runs at the deadline unless another
	// event pushes it back.
	statePending
)

// String returns a human-readable representation of the state.
func (s debounceState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePending:
		return "pending"
	default:
		return "unknown"
	}
}

type debounceEntry struct {
	deadline time.Time
	timer    *clock.Timer
	seq      uint64
}

// debouncer collapses bursts of directory events into one rescan per
// directory. Each directory is idle or pending(deadline); every Touch moves
// it to pending(now+window). When a deadline passes quietly the timer posts
// the expiry to the loop, which calls fire.
//
// Timer callbacks only post; all state changes happen on the loop.
type debouncer struct {
	clock   clock.Clock
	window  time.Duration
	post    func(func()) bool
	fire    func(dir string)
	entries map[string]*debounceEntry
	seq     uint64
}

func newDebouncer(clk clock.Clock, window time.Duration, post func(func()) bool, fire func(dir string)) *debouncer {
	return &debouncer{
		clock:   clk,
		window:  window,
		post:    post,
		fire:    fire,
		entries: make(map[string]*debounceEntry),
	}
}

// Touch records an event for dir, (re)starting its quiet window.
func (d *debouncer) Touch(dir string) {
	e, ok := d.entries[dir]
	if !ok {
		e = &debounceEntry{}
		d.entries[dir] = e
	} else if e.timer != nil {
		e.timer.Stop()
	}

	d.seq++
	seq := d.seq
	e.seq = seq
	e.deadline = d.clock.Now().Add(d.window)
	e.timer = d.clock.AfterFunc(d.window, func() {
		d.post(func() { d.expire(dir, seq) })
	})
}

// expire runs on the loop when a timer fires. A timer that was superseded
// after it fired carries a stale sequence number and is ignored.
func (d *debouncer) expire(dir string, seq uint64) {
	e, ok := d.entries[dir]
	if !ok || e.seq != seq {
		return
	}
	delete(d.entries, dir)
	d.fire(dir)
}

// Cancel returns dir to idle without rescanning.
func (d *debouncer) Cancel(dir string) {
	e, ok := d.entries[dir]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(d.entries, dir)
}

// Stop cancels every pending rescan.
func (d *debouncer) Stop() {
	for dir := range d.entries {
		d.Cancel(dir)
	}
}

// State returns dir's state and, when pending, its deadline.
func (d *debouncer) State(dir string) (debounceState, time.Time) {
	e, ok := d.entries[dir]
	if !ok {
		return stateIdle, time.Time{}
	}
	return statePending, e.deadline
}

// Pending returns the number of directories with a scheduled rescan.
func (d *debouncer) Pending() int {
	return len(d.entries)
}
