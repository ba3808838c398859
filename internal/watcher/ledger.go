package watcher

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ledger scopes the asynchronous filesystem operations of one discovery
// session. Operations run on worker goroutines bounded by a semaphore and
// hand a continuation back to the loop. Tracked operations are counted:
// when the count drains to zero, onReady runs once for that drain episode.
//
// Cancelling the ledger turns every queued continuation into a no-op.
// Exhaustion and Clear replace the ledger instead of resetting it.
//
// All methods except the worker bodies run on the loop goroutine.
type ledger struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	post   func(func()) bool
	wg     *sync.WaitGroup

	pending  int
	inflight int
	episode  int
	fired    int
	onReady  func()
}

func newLedger(limit int, post func(func()) bool, wg *sync.WaitGroup, onReady func()) *ledger {
	ctx, cancel := context.WithCancel(context.Background())
	return &ledger{
		ctx:     ctx,
		cancel:  cancel,
		sem:     semaphore.NewWeighted(int64(limit)),
		post:    post,
		wg:      wg,
		onReady: onReady,
	}
}

// Go runs op on a worker and counts it until its continuation has run on
// the loop.
func (l *ledger) Go(op func(ctx context.Context) func()) {
	l.begin()
	l.spawn(op, l.end)
}

// Run is Go without counting. Used for work that is not discovery, such as
// re-stating a file after a change notification.
func (l *ledger) Run(op func(ctx context.Context) func()) {
	l.spawn(op, nil)
}

// Pending returns the number of tracked operations in flight.
func (l *ledger) Pending() int {
	return l.pending
}

// InFlight returns the number of operations, tracked or not, whose
// continuation has not run yet.
func (l *ledger) InFlight() int {
	return l.inflight
}

// Cancelled reports whether the ledger has been cancelled.
func (l *ledger) Cancelled() bool {
	return l.ctx.Err() != nil
}

func (l *ledger) spawn(op func(ctx context.Context) func(), done func()) {
	l.inflight++
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		var cont func()
		if err := l.sem.Acquire(l.ctx, 1); err == nil {
			cont = op(l.ctx)
			l.sem.Release(1)
		}

		l.post(func() {
			l.inflight--
			if cont != nil && !l.Cancelled() {
				cont()
			}
			if done != nil {
				done()
			}
		})
	}()
}

func (l *ledger) begin() {
	if l.pending == 0 {
		l.episode++
	}
	l.pending++
}

func (l *ledger) end() {
	l.pending--
	if l.pending > 0 {
		return
	}

	// Defer the check by one loop turn; a begin queued behind this
	// continuation starts a new episode and supersedes this one.
	episode := l.episode
	l.post(func() {
		if l.pending != 0 || l.episode != episode || l.fired == episode || l.Cancelled() {
			return
		}
		l.fired = episode
		if l.onReady != nil {
			l.onReady()
		}
	})
}
