package fsys

import (
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultPollInterval is the scan interval used when none is configured.
const DefaultPollInterval = 2 * time.Second

var errPollClosed = errors.New("polling backend closed")

// Poll detects changes by periodically re-stating every subscribed path.
// Used as a fallback when fsnotify is not available or fails.
type Poll struct {
	local

	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	subs    map[string]*pollEntry
	closed  bool
	stopCh  chan struct{}
	started bool
	wg      sync.WaitGroup
}

var _ FS = (*Poll)(nil)

// pollEntry is the last observed state of one subscribed path plus the
// callbacks interested in it.
type pollEntry struct {
	snap     snapshot
	handlers map[*pollHandle]struct{}
}

type snapshot struct {
	exists  bool
	modTime time.Time
	size    int64
	isDir   bool
	names   []string
}

type pollHandle struct {
	fs   *Poll
	path string
	fn   func(RawEvent)
	once sync.Once
}

// Close ends the subscription.
func (h *pollHandle) Close() error {
	h.once.Do(func() {
		h.fs.unsubscribe(h)
	})
	return nil
}

// NewPoll creates a polling filesystem. The scan loop starts with the first
// subscription. A nil clock means the wall clock.
func NewPoll(interval time.Duration, clk clock.Clock, logger *slog.Logger) *Poll {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poll{
		interval: interval,
		clock:    clk,
		logger:   logger,
		subs:     make(map[string]*pollEntry),
		stopCh:   make(chan struct{}),
	}
}

// Name returns "polling".
func (p *Poll) Name() string { return "polling" }

// Subscribe records a baseline snapshot of path and reports differences
// from it on every scan.
func (p *Poll) Subscribe(path string, fn func(RawEvent)) (Handle, error) {
	path = filepath.Clean(path)

	// Baseline before taking the lock; a missing entry is reported the same
	// way the kernel backend reports it.
	snap, err := p.snapshot(path)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errPollClosed
	}

	entry, ok := p.subs[path]
	if !ok {
		entry = &pollEntry{snap: snap, handlers: make(map[*pollHandle]struct{})}
		p.subs[path] = entry
	}
	h := &pollHandle{fs: p, path: path, fn: fn}
	entry.handlers[h] = struct{}{}

	if !p.started {
		p.started = true
		ticker := p.clock.Ticker(p.interval)
		p.wg.Add(1)
		go p.run(ticker)
	}
	return h, nil
}

func (p *Poll) unsubscribe(h *pollHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.subs[h.path]
	if !ok {
		return
	}
	delete(entry.handlers, h)
	if len(entry.handlers) == 0 {
		delete(p.subs, h.path)
	}
}

// Close stops the scan loop.
func (p *Poll) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.subs = make(map[string]*pollEntry)
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Poll) run(ticker *clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.scan()
		}
	}
}

type pollDelivery struct {
	fn    func(RawEvent)
	event RawEvent
}

// scan compares every subscribed path against its snapshot. Callbacks run
// after the lock is released.
func (p *Poll) scan() {
	p.mu.Lock()
	paths := make([]string, 0, len(p.subs))
	for path := range p.subs {
		paths = append(paths, path)
	}
	p.mu.Unlock()

	var out []pollDelivery
	for _, path := range paths {
		current, err := p.snapshot(path)
		if err != nil {
			current = snapshot{}
		}

		p.mu.Lock()
		entry, ok := p.subs[path]
		if !ok {
			p.mu.Unlock()
			continue
		}
		op, changed := diffSnapshot(entry.snap, current)
		entry.snap = current
		if changed {
			for h := range entry.handlers {
				out = append(out, pollDelivery{fn: h.fn, event: RawEvent{Path: path, Op: op}})
			}
		}
		p.mu.Unlock()
	}

	for _, d := range out {
		d.fn(d.event)
	}
}

func (p *Poll) snapshot(path string) (snapshot, error) {
	info, err := p.Stat(path)
	if err != nil {
		return snapshot{}, err
	}
	snap := snapshot{
		exists:  true,
		modTime: info.ModTime,
		size:    info.Size,
		isDir:   info.IsDir(),
	}
	if snap.isDir {
		names, err := p.ReadDir(path)
		if err != nil {
			p.logger.Debug("poll list failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		snap.names = names
	}
	return snap, nil
}

// diffSnapshot decides what, if anything, a subscriber should hear.
func diffSnapshot(prev, cur snapshot) (Op, bool) {
	switch {
	case prev.exists != cur.exists, prev.isDir != cur.isDir:
		return OpRename, true
	case !cur.exists:
		return OpChange, false
	case cur.isDir && !slices.Equal(prev.names, cur.names):
		return OpRename, true
	case !prev.modTime.Equal(cur.modTime), prev.size != cur.size:
		return OpChange, true
	default:
		return OpChange, false
	}
}
