package fsys

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	watcherrors "github.com/Aman-CERP/fireworm/internal/errors"
)

// Config selects and configures a backend.
type Config struct {
	// ForcePoll skips fsnotify entirely.
	ForcePoll bool

	// PollInterval is the scan interval of the polling backend.
	// Default: 2s
	PollInterval time.Duration

	// Clock drives the polling ticker. Default: wall clock.
	Clock clock.Clock

	// Logger receives backend diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// New returns the fsnotify backend, retrying briefly if the kernel refuses
// to create it, and falls back to polling when it cannot be started.
func New(ctx context.Context, cfg Config) (FS, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.ForcePoll {
		return NewPoll(cfg.PollInterval, cfg.Clock, logger), nil
	}

	osfs, err := watcherrors.Retry(ctx, watcherrors.DefaultRetryConfig(), func() (*OS, error) {
		return NewOS(logger)
	})
	if err == nil {
		return osfs, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	logger.Warn("fsnotify unavailable, falling back to polling",
		slog.String("error", err.Error()),
		slog.Duration("interval", cfg.PollInterval))
	return NewPoll(cfg.PollInterval, cfg.Clock, logger), nil
}
