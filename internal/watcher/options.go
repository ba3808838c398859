package watcher

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/fsys"
	"github.com/Aman-CERP/fireworm/internal/glob"
)

// DefaultIgnore is applied when Options.Ignore is nil.
var DefaultIgnore = []string{"**/.git", "**/.git/**"}

// Options configures the watcher behavior.
type Options struct {
	// MaxDepth limits recursion below each tracked root. Zero means
	// unlimited.
	MaxDepth int

	// NotifyNewFiles emits add for files a rescan discovers. DefaultOptions
	// sets it; WithDefaults cannot tell an unset false from an explicit
	// one, so a zero Options leaves it off.
	NotifyNewFiles bool

	// IgnoreInitial suppresses add events for entries found by the first
	// crawl of a root.
	IgnoreInitial bool

	// DebounceWindow is the quiet period after the last directory event
	// before the directory is rescanned.
	// Default: 200ms
	DebounceWindow time.Duration

	// Ignore lists glob patterns that are never crawled or reported.
	// Relative patterns resolve against BaseDir. nil means DefaultIgnore;
	// pass an empty slice to ignore nothing.
	Ignore []string

	// IgnoreFunc vetoes paths in addition to Ignore. It receives absolute
	// paths, runs on the watcher's loop goroutine and must not block.
	IgnoreFunc func(path string, isDir bool) bool

	// BaseDir resolves relative patterns.
	// Default: the working directory
	BaseDir string

	// MaxConcurrentOps bounds stat and list calls in flight.
	// Default: 64
	MaxConcurrentOps int

	// EventBufferSize is the size of the Events channel buffer.
	// Default: 1000
	EventBufferSize int

	// ForcePoll selects the polling backend when FS is nil.
	ForcePoll bool

	// PollInterval is the interval for polling mode.
	// Default: 2s
	PollInterval time.Duration

	// Clock drives debounce timers. Default: wall clock.
	Clock clock.Clock

	// FS is the filesystem backend. Default: fsnotify with polling
	// fallback, closed by Close.
	FS fsys.FS

	// Logger receives diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		NotifyNewFiles:   true,
		DebounceWindow:   200 * time.Millisecond,
		Ignore:           DefaultIgnore,
		MaxConcurrentOps: 64,
		EventBufferSize:  1000,
		PollInterval:     fsys.DefaultPollInterval,
	}
}

// Validate validates the options and returns an error if invalid.
func (o Options) Validate() error {
	if o.MaxDepth < 0 {
		return errors.ValidationError("max depth must not be negative", nil).
			WithDetail("max_depth", strconv.Itoa(o.MaxDepth))
	}
	if o.DebounceWindow < 0 {
		return errors.ValidationError("debounce window must not be negative", nil).
			WithDetail("debounce", o.DebounceWindow.String())
	}
	if o.MaxConcurrentOps < 0 {
		return errors.ValidationError("max concurrent ops must not be negative", nil)
	}
	if o.EventBufferSize < 0 {
		return errors.ValidationError("event buffer size must not be negative", nil)
	}
	for _, p := range o.Ignore {
		if err := glob.Validate(p); err != nil {
			return errors.New(errors.ErrCodeInvalidPattern, "invalid ignore pattern", err).
				WithDetail("pattern", p)
		}
	}
	return nil
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.Ignore == nil {
		o.Ignore = defaults.Ignore
	}
	if o.MaxConcurrentOps == 0 {
		o.MaxConcurrentOps = defaults.MaxConcurrentOps
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
