package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config describes where logs go. An empty FilePath logs to stderr only.
type Config struct {
	Level         string // debug, info, warn or error
	FilePath      string
	MaxSizeMB     int // rotate past this size
	MaxFiles      int // rotated files kept
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults for file logging.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig returns configuration for debug mode.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup builds a JSON logger writing to a rotating file and, optionally,
// stderr. The returned cleanup function closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		return Stderr(cfg.Level), func() {}, nil
	}
	if err := EnsureLogDir(cfg.FilePath); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: LevelFromString(cfg.Level),
	})

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return slog.New(handler), cleanup, nil
}

// Stderr returns a text logger on stderr at level.
func Stderr(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: LevelFromString(level),
	}))
}

// SetupCLI installs the default logger for a command. With debug set,
// logs go to the rotating file at debug level and warnings still reach
// stderr; otherwise only stderr at cfg.Level is used.
func SetupCLI(cfg Config, debug bool) (func(), error) {
	if !debug {
		slog.SetDefault(Stderr(cfg.Level))
		return func() {}, nil
	}

	cfg.Level = "debug"
	cfg.WriteToStderr = false
	fileLogger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(fanout{
		fileLogger.Handler(),
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}))
	slog.Debug("debug logging enabled", slog.String("log_file", cfg.FilePath))
	return cleanup, nil
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// LevelFromString maps a level name, in any case, to its slog.Level.
// Unknown names mean info.
func LevelFromString(level string) slog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return slog.LevelInfo
}
