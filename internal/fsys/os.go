package fsys

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
)

// OS delivers kernel notifications through a single fsnotify watcher.
// Subscriptions are reference counted per path: the kernel watch is added
// on the first subscription and removed when the last one closes.
type OS struct {
	local

	fsw    *fsnotify.Watcher
	logger *slog.Logger
	errors chan error

	mu      sync.Mutex
	subs    map[string]map[*osHandle]struct{}
	closed  bool
	stopped chan struct{}
	wg      sync.WaitGroup
}

var (
	_ FS          = (*OS)(nil)
	_ ErrorSource = (*OS)(nil)
)

type osHandle struct {
	fs   *OS
	path string
	fn   func(RawEvent)
	once sync.Once
}

// Close ends the subscription.
func (h *osHandle) Close() error {
	var err error
	h.once.Do(func() {
		err = h.fs.unsubscribe(h)
	})
	return err
}

// NewOS starts an fsnotify-backed filesystem.
func NewOS(logger *slog.Logger) (*OS, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := &OS{
		fsw:     fsw,
		logger:  logger,
		errors:  make(chan error, 10),
		subs:    make(map[string]map[*osHandle]struct{}),
		stopped: make(chan struct{}),
	}
	o.wg.Add(1)
	go o.dispatch()
	return o, nil
}

// Name returns "fsnotify".
func (o *OS) Name() string { return "fsnotify" }

// Errors returns asynchronous backend errors. Permission errors are
// filtered out since they only mean an entry cannot be monitored.
func (o *OS) Errors() <-chan error { return o.errors }

// Subscribe registers fn for notifications about path.
func (o *OS) Subscribe(path string, fn func(RawEvent)) (Handle, error) {
	path = filepath.Clean(path)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, fsnotify.ErrClosed
	}

	set, ok := o.subs[path]
	if !ok {
		if err := o.fsw.Add(path); err != nil {
			return nil, err
		}
		set = make(map[*osHandle]struct{})
		o.subs[path] = set
	}

	h := &osHandle{fs: o, path: path, fn: fn}
	set[h] = struct{}{}
	return h, nil
}

func (o *OS) unsubscribe(h *osHandle) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	set, ok := o.subs[h.path]
	if !ok {
		return nil
	}
	delete(set, h)
	if len(set) > 0 {
		return nil
	}
	delete(o.subs, h.path)
	if o.closed {
		return nil
	}

	// The kernel drops the watch by itself when the entry is deleted.
	if err := o.fsw.Remove(h.path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
		o.logger.Debug("remove kernel watch",
			slog.String("path", h.path),
			slog.String("error", err.Error()))
	}
	return nil
}

// Close stops dispatching and releases the kernel watcher.
func (o *OS) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.subs = make(map[string]map[*osHandle]struct{})
	o.mu.Unlock()

	close(o.stopped)
	err := o.fsw.Close()
	o.wg.Wait()
	close(o.errors)
	return err
}

// dispatch fans fsnotify events out to the subscribers of the event path
// and of its parent directory.
func (o *OS) dispatch() {
	defer o.wg.Done()

	for {
		select {
		case <-o.stopped:
			return
		case event, ok := <-o.fsw.Events:
			if !ok {
				return
			}
			o.deliver(event)
		case err, ok := <-o.fsw.Errors:
			if !ok {
				return
			}
			o.emitError(err)
		}
	}
}

func (o *OS) deliver(event fsnotify.Event) {
	raw := RawEvent{Path: filepath.Clean(event.Name), Op: opOf(event.Op)}

	o.mu.Lock()
	targets := make([]func(RawEvent), 0, 2)
	for h := range o.subs[raw.Path] {
		targets = append(targets, h.fn)
	}
	if parent := filepath.Dir(raw.Path); parent != raw.Path {
		for h := range o.subs[parent] {
			targets = append(targets, h.fn)
		}
	}
	o.mu.Unlock()

	for _, fn := range targets {
		fn(raw)
	}
}

func (o *OS) emitError(err error) {
	if errors.Is(err, syscall.EPERM) {
		return
	}
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		err = fmt.Errorf("%w: %w", ErrOverflow, err)
	}
	select {
	case o.errors <- err:
	default:
		o.logger.Warn("backend error buffer full, dropping error",
			slog.String("error", err.Error()))
	}
}

// opOf maps fsnotify operations. Anything that changes which names exist
// is a rename; writes and attribute changes are changes.
func opOf(op fsnotify.Op) Op {
	if op.Has(fsnotify.Create) || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		return OpRename
	}
	return OpChange
}
