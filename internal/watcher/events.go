package watcher

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// EventKind identifies what happened.
type EventKind int

const (
	// EventAdd means a file (or, with IsDir, a directory) became known.
	EventAdd EventKind = iota
	// EventChange means a known file's modification time moved forward.
	EventChange
	// EventRemove means a known entry is gone.
	EventRemove
	// EventReady means discovery drained: every crawl started so far has
	// finished.
	EventReady
	// EventError carries a non-fatal failure.
	EventError
	// EventResourceExhausted means the OS refused a watch handle; all
	// watches were dropped and the watcher is idle until Recover.
	EventResourceExhausted
)

// String returns a human-readable representation of the kind.
func (k EventKind) String() string {
	switch k {
	case EventAdd:
		return "add"
	case EventChange:
		return "change"
	case EventRemove:
		return "remove"
	case EventReady:
		return "ready"
	case EventError:
		return "error"
	case EventResourceExhausted:
		return "resource-exhausted"
	default:
		return "unknown"
	}
}

// Event is a single emission of the watcher.
type Event struct {
	// Kind is what happened.
	Kind EventKind

	// Path is the absolute path the event is about. Empty for ready.
	Path string

	// IsDir indicates a directory add or remove.
	IsDir bool

	// Err is set for error and resource-exhausted events.
	Err error

	// Timestamp is when the watcher emitted the event.
	Timestamp time.Time
}

// String formats the event for logs and plain output.
func (e Event) String() string {
	switch {
	case e.Err != nil && e.Path != "":
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s %s", e.Kind, e.Path)
	default:
		return e.Kind.String()
	}
}

// busItem is a queued event, or a barrier when flushed is set.
type busItem struct {
	event   Event
	flushed chan struct{}
}

type subscription struct {
	id int
	fn func(Event)
}

// bus delivers events in emission order on its own goroutine, first to the
// handlers registered for the kind, then to the Events channel. Handlers
// may call back into the Watcher (except Close).
type bus struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[EventKind][]subscription
	nextID   int
	queue    []busItem
	closed   bool
	signal   chan struct{}

	events  chan Event
	dropped atomic.Uint64
	done    chan struct{}
}

func newBus(bufferSize int, logger *slog.Logger) *bus {
	b := &bus{
		logger:   logger,
		handlers: make(map[EventKind][]subscription),
		signal:   make(chan struct{}, 1),
		events:   make(chan Event, bufferSize),
		done:     make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// on registers fn for kind and returns a function that removes it.
func (b *bus) on(kind EventKind, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[kind] = append(b.handlers[kind], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.handlers[kind]
			for i, s := range subs {
				if s.id == id {
					b.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// emit queues e. Never blocks.
func (b *bus) emit(e Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, busItem{event: e})
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *bus) dispatch() {
	defer close(b.done)
	defer close(b.events)

	for {
		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		closed := b.closed
		b.mu.Unlock()

		for _, item := range batch {
			if item.flushed != nil {
				close(item.flushed)
				continue
			}
			b.deliver(item.event)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-b.signal
	}
}

func (b *bus) deliver(e Event) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.handlers[e.Kind]...)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}

	select {
	case b.events <- e:
	default:
		// Consumers that only use handlers never drain the channel; warn
		// once and count the rest.
		if b.dropped.Add(1) == 1 {
			b.logger.Warn("event buffer full, dropping events",
				slog.String("kind", e.Kind.String()),
				slog.String("path", e.Path),
			)
		}
	}
}

// flush waits until every event emitted before the call has been
// delivered.
func (b *bus) flush() {
	done := make(chan struct{})
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.queue = append(b.queue, busItem{flushed: done})
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
	<-done
}

// close delivers what is queued, then closes the Events channel.
func (b *bus) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
	<-b.done
}
