package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/fsys"
	"github.com/Aman-CERP/fireworm/internal/glob"
)

// Stats is a point-in-time view of the watcher's bookkeeping.
type Stats struct {
	Dirs        int
	Files       int
	DirHandles  int
	FileHandles int
	Pending     int
	InFlight    int
	Debouncing  int
	Roots       []string
	Exhausted   bool
	Backend     string
}

// Watcher discovers the files matching a set of glob patterns and reports
// how they change.
//
// One goroutine owns all state. Public methods run as requests on that
// goroutine; stat and list calls run on bounded workers and hand their
// results back to it.
type Watcher struct {
	opts   Options
	fs     fsys.FS
	ownsFS bool
	clock  clock.Clock
	logger *slog.Logger

	mbox     *mailbox
	bus      *bus
	loopDone chan struct{}
	workers  sync.WaitGroup
	aux      sync.WaitGroup
	stopAux  chan struct{}
	closeMu  sync.Mutex
	closeErr error
	isClosed bool

	ready     chan struct{}
	readyOnce sync.Once

	// Loop-owned.
	patterns  *registry
	dirs      *keeper
	files     *keeper
	ledger    *ledger
	debounce  *debouncer
	exhausted bool
	closed    bool
}

// New creates a watcher and starts its loop. Nothing is watched until Add.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	base := opts.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidPath, "resolve working directory", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidPath, "resolve base directory", err).WithPath(opts.BaseDir)
	}

	backend, owns := opts.FS, false
	if backend == nil {
		backend, err = fsys.New(context.Background(), fsys.Config{
			ForcePoll:    opts.ForcePoll,
			PollInterval: opts.PollInterval,
			Logger:       opts.Logger,
		})
		if err != nil {
			return nil, errors.New(errors.ErrCodeBackendFailed, "start filesystem backend", err)
		}
		owns = true
	}

	patterns, err := newRegistry(base, opts.Ignore)
	if err != nil {
		if owns {
			_ = backend.Close()
		}
		return nil, errors.InternalError("create pattern registry", err)
	}
	patterns.skip = opts.IgnoreFunc

	w := &Watcher{
		opts:     opts,
		fs:       backend,
		ownsFS:   owns,
		clock:    opts.Clock,
		logger:   opts.Logger.With(slog.String("component", "watcher")),
		mbox:     newMailbox(),
		loopDone: make(chan struct{}),
		stopAux:  make(chan struct{}),
		ready:    make(chan struct{}),
		patterns: patterns,
		dirs:     newKeeper(backend),
		files:    newKeeper(backend),
	}
	w.bus = newBus(opts.EventBufferSize, w.logger)
	w.ledger = w.newLedger()
	w.debounce = newDebouncer(w.clock, opts.DebounceWindow, w.mbox.post, w.rescan)

	go w.run()

	if src, ok := backend.(fsys.ErrorSource); ok {
		w.aux.Add(1)
		go w.forwardBackendErrors(src.Errors())
	}

	w.logger.Debug("watcher started",
		slog.String("base", base),
		slog.String("backend", backend.Name()),
		slog.Duration("debounce", opts.DebounceWindow))
	return w, nil
}

// Add registers glob patterns and starts discovery of their roots.
// Relative patterns resolve against Options.BaseDir.
func (w *Watcher) Add(patterns ...string) error {
	for _, p := range patterns {
		if err := glob.Validate(p); err != nil {
			return errors.New(errors.ErrCodeInvalidPattern, "invalid pattern", err).WithDetail("pattern", p)
		}
	}

	return w.do(func() {
		if w.closed {
			return
		}
		var crawlRoots []string
		for _, p := range patterns {
			root, _ := w.patterns.Add(p)
			if root != "" && !slices.Contains(crawlRoots, root) {
				crawlRoots = append(crawlRoots, root)
			}
		}
		for _, root := range crawlRoots {
			w.logger.Debug("crawling root", slog.String("root", root))
			w.crawl(root, 0, w.initialCrawl())
		}
	})
}

// On registers handler for events of kind and returns a function that
// unregisters it. Handlers run in emission order on a dedicated goroutine.
// A handler may call any Watcher method except Close.
func (w *Watcher) On(kind EventKind, handler func(Event)) (unsubscribe func()) {
	return w.bus.on(kind, handler)
}

// Events returns a channel of every emitted event. Events are dropped,
// and counted, when the buffer is full. The channel is closed by Close.
func (w *Watcher) Events() <-chan Event {
	return w.bus.events
}

// Ready is closed the first time discovery drains.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// DroppedEvents returns the number of events dropped from the Events
// channel due to buffer overflow.
func (w *Watcher) DroppedEvents() uint64 {
	return w.bus.dropped.Load()
}

// Backend returns the name of the filesystem backend in use.
func (w *Watcher) Backend() string {
	return w.fs.Name()
}

// Clear closes every watch and forgets every pattern, root and entry. No
// remove events are emitted. The watcher stays usable.
func (w *Watcher) Clear() {
	_ = w.do(func() {
		w.ledger.cancel()
		w.ledger = w.newLedger()
		w.debounce.Stop()
		w.dirs.Clear()
		w.files.Clear()
		w.patterns.Clear()
		w.exhausted = false
	})
}

// Recover restarts discovery of every tracked root after handle
// exhaustion. It is a no-op when the watcher is not exhausted.
func (w *Watcher) Recover() {
	_ = w.do(func() {
		if !w.exhausted || w.closed {
			return
		}
		w.exhausted = false
		w.ledger = w.newLedger()
		w.logger.Info("recovering from handle exhaustion",
			slog.Int("roots", len(w.patterns.Roots())))
		for _, root := range w.patterns.Roots() {
			w.crawl(root, 0, w.initialCrawl())
		}
	})
}

// KnownDirs returns every watched directory, sorted.
func (w *Watcher) KnownDirs() []string {
	var out []string
	_ = w.do(func() { out = w.dirs.KnownPaths() })
	return out
}

// KnownFiles returns every watched file, sorted.
func (w *Watcher) KnownFiles() []string {
	var out []string
	_ = w.do(func() { out = w.files.KnownPaths() })
	return out
}

// Stats returns a snapshot of the watcher's bookkeeping.
func (w *Watcher) Stats() Stats {
	var s Stats
	_ = w.do(func() {
		s = Stats{
			Dirs:        w.dirs.Len(),
			Files:       w.files.Len(),
			DirHandles:  w.dirs.HandleCount(),
			FileHandles: w.files.HandleCount(),
			Pending:     w.ledger.Pending(),
			InFlight:    w.ledger.InFlight(),
			Debouncing:  w.debounce.Pending(),
			Roots:       w.patterns.Roots(),
			Exhausted:   w.exhausted,
			Backend:     w.fs.Name(),
		}
	})
	return s
}

// Close stops the watcher, releases every watch and closes the Events
// channel after delivering what was already emitted. Safe to call multiple
// times; must not be called from an event handler.
func (w *Watcher) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if w.isClosed {
		return w.closeErr
	}
	w.isClosed = true

	_ = w.do(func() {
		w.closed = true
		w.ledger.cancel()
		w.debounce.Stop()
		w.dirs.Clear()
		w.files.Clear()
	})
	w.mbox.close()
	<-w.loopDone
	w.workers.Wait()

	close(w.stopAux)
	if w.ownsFS {
		w.closeErr = w.fs.Close()
	}
	w.aux.Wait()
	w.bus.close()

	w.logger.Debug("watcher stopped")
	return w.closeErr
}

// run is the loop. It exits once the mailbox is closed and drained.
func (w *Watcher) run() {
	defer close(w.loopDone)
	for {
		batch, open := w.mbox.wait()
		if !open {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// do runs fn on the loop and waits for it.
func (w *Watcher) do(fn func()) error {
	done := make(chan struct{})
	if !w.mbox.post(func() {
		defer close(done)
		fn()
	}) {
		return errors.New(errors.ErrCodeWatcherClosed, "watcher closed", nil)
	}
	select {
	case <-done:
		return nil
	case <-w.loopDone:
		select {
		case <-done:
			return nil
		default:
		}
		return errors.New(errors.ErrCodeWatcherClosed, "watcher closed", nil)
	}
}

func (w *Watcher) newLedger() *ledger {
	return newLedger(w.opts.MaxConcurrentOps, w.mbox.post, &w.workers, w.onReady)
}

func (w *Watcher) onReady() {
	w.logger.Debug("discovery drained",
		slog.Int("dirs", w.dirs.Len()),
		slog.Int("files", w.files.Len()))
	w.emit(Event{Kind: EventReady})
	w.readyOnce.Do(func() { close(w.ready) })
}

// stale reports whether a continuation issued under l must be dropped.
func (w *Watcher) stale(l *ledger) bool {
	return w.closed || w.exhausted || l != w.ledger
}

func (w *Watcher) emit(e Event) {
	e.Timestamp = w.clock.Now()
	w.bus.emit(e)
}

// surface reports a non-fatal failure as an error event.
func (w *Watcher) surface(err *errors.WatchError) {
	w.logger.Warn("watch operation failed", errors.LogAttrs(err)...)
	w.emit(Event{Kind: EventError, Path: err.Path, Err: err})
}

func (w *Watcher) forwardBackendErrors(errs <-chan error) {
	defer w.aux.Done()
	for {
		select {
		case <-w.stopAux:
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.mbox.post(func() { w.onBackendError(err) })
		}
	}
}
