package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/fireworm/internal/config"
	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/gitignore"
	"github.com/Aman-CERP/fireworm/internal/glob"
	"github.com/Aman-CERP/fireworm/internal/output"
	"github.com/Aman-CERP/fireworm/internal/preflight"
	"github.com/Aman-CERP/fireworm/internal/watcher"
)

type watchFlags struct {
	debounce      time.Duration
	maxDepth      int
	ignoreInitial bool
	notifyNew     bool
	ignore        []string
	jsonOutput    bool
	poll          bool
	gitignore     bool
	skipCheck     bool
}

func newWatchCmd() *cobra.Command {
	var f watchFlags

	cmd := &cobra.Command{
		Use:   "watch [patterns...]",
		Short: "Watch files matching glob patterns",
		Long: `Watch every file matching the given glob patterns and print one line
per event until interrupted.

Patterns use doublestar syntax ("**" crosses directories) and are resolved
against the working directory. Without arguments, the patterns from the
configuration file are used.

Events:
  +  add       a file or directory appeared
  ~  change    a file's modification time moved forward
  -  remove    a file or directory disappeared
  ●  ready     the initial crawl (or a rescan burst) finished
  !  error     a path could not be read or watched
  ✖  resource-exhausted  the OS ran out of watch handles

The command exits with an error when watch handles are exhausted; raise
the limits reported by 'fireworm doctor' and run it again.`,
		Example: `  # Watch Go sources
  fireworm watch "**/*.go"

  # Several patterns, JSON lines for scripting
  fireworm watch "src/**/*.ts" "package.json" --json

  # Skip existing files, only report what changes
  fireworm watch "**/*" --ignore-initial --ignore "**/node_modules/**"

  # Honor the project's .gitignore
  fireworm watch "**/*" --gitignore`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, f)
		},
	}

	bindWatchFlags(cmd, &f)

	return cmd
}

// bindWatchFlags registers the watch flags on cmd, storing into f.
func bindWatchFlags(cmd *cobra.Command, f *watchFlags) {
	cmd.Flags().DurationVar(&f.debounce, "debounce", 200*time.Millisecond, "Quiet period before a changed directory is rescanned")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "Limit recursion below each root (0 = unlimited)")
	cmd.Flags().BoolVar(&f.ignoreInitial, "ignore-initial", false, "Do not report files found by the initial crawl")
	cmd.Flags().BoolVar(&f.notifyNew, "notify-new", true, "Report files discovered by rescans")
	cmd.Flags().StringSliceVar(&f.ignore, "ignore", nil, "Glob patterns to skip (repeatable)")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print events as JSON lines")
	cmd.Flags().BoolVar(&f.poll, "poll", false, "Use the polling backend instead of OS notifications")
	cmd.Flags().BoolVar(&f.gitignore, "gitignore", false, "Also skip paths ignored by the project's .gitignore")
	cmd.Flags().BoolVar(&f.skipCheck, "skip-check", false, "Skip pre-flight system checks")
}

func runWatch(cmd *cobra.Command, args []string, f watchFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyWatchFlags(cmd, cfg, f)

	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Watch.Patterns
	}
	if len(patterns) == 0 {
		return errors.ValidationError("no patterns to watch", nil).
			WithSuggestion("pass patterns as arguments or set watch.patterns in " + config.ProjectFileName)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	if !f.skipCheck {
		checker := preflight.New(preflight.WithOutput(cmd.ErrOrStderr()))
		report := checker.Run(ctx, watchRoots(cwd, patterns))
		if report.Critical() {
			checker.Print(report)
			return report.Err()
		}
		for _, w := range report.Warnings {
			slog.Warn("preflight warning", slog.String("check", w))
		}
	}

	opts := cfg.ToOptions(cwd)
	opts.Logger = slog.Default()
	if cfg.Watch.Gitignore {
		skip, err := gitignoreFunc(cwd)
		if err != nil {
			return err
		}
		opts.IgnoreFunc = skip
	}
	w, err := watcher.New(opts)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	emit := func(e watcher.Event) error {
		if e.Kind == watcher.EventReady {
			s := w.Stats()
			slog.Info("watch ready",
				slog.Int("dirs", s.Dirs),
				slog.Int("files", s.Files),
				slog.Int("handles", s.DirHandles+s.FileHandles),
				slog.String("backend", s.Backend))
		}
		if f.jsonOutput {
			return out.EventJSON(e)
		}
		out.Event(e)
		return nil
	}

	slog.Debug("watch started",
		slog.Any("patterns", patterns),
		slog.String("backend", w.Backend()))

	err = streamEvents(ctx, w, patterns, emit)
	if dropped := w.DroppedEvents(); dropped > 0 {
		slog.Warn("events dropped by a slow consumer", slog.Uint64("count", dropped))
	}
	return err
}

// applyWatchFlags overrides configuration with the flags that were set
// explicitly.
func applyWatchFlags(cmd *cobra.Command, cfg *config.Config, f watchFlags) {
	flags := cmd.Flags()
	if flags.Changed("debounce") {
		cfg.Watch.Debounce = f.debounce.String()
	}
	if flags.Changed("max-depth") {
		cfg.Watch.MaxDepth = f.maxDepth
	}
	if flags.Changed("ignore-initial") {
		cfg.Watch.IgnoreInitial = f.ignoreInitial
	}
	if flags.Changed("notify-new") {
		notify := f.notifyNew
		cfg.Watch.NotifyNewFiles = &notify
	}
	if flags.Changed("ignore") {
		cfg.Watch.Ignore = append(cfg.Watch.Ignore, f.ignore...)
	}
	if flags.Changed("poll") {
		cfg.Watch.Poll = f.poll
	}
	if flags.Changed("gitignore") {
		cfg.Watch.Gitignore = f.gitignore
	}
}

// gitignoreFunc loads the .gitignore of the project containing dir.
func gitignoreFunc(dir string) (func(path string, isDir bool) bool, error) {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return nil, err
	}
	m, err := gitignore.Load(root)
	if err != nil {
		return nil, errors.ConfigError("invalid "+gitignore.FileName, err)
	}
	slog.Debug("gitignore loaded", slog.String("root", root), slog.Int("rules", m.Len()))
	return m.Func(root), nil
}

// watchRoots returns the distinct static roots of patterns, resolved
// against base.
func watchRoots(base string, patterns []string) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, p := range patterns {
		root := glob.Root(p)
		if !filepath.IsAbs(root) {
			root = filepath.Join(base, root)
		}
		root = filepath.Clean(root)
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	return roots
}

// streamEvents adds patterns to w and passes every event to emit until
// ctx is done or handles are exhausted. w is closed on return.
func streamEvents(ctx context.Context, w *watcher.Watcher, patterns []string, emit func(watcher.Event) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for e := range w.Events() {
			if err := emit(e); err != nil {
				return err
			}
			if e.Kind == watcher.EventResourceExhausted {
				return e.Err
			}
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return w.Close()
	})

	if err := w.Add(patterns...); err != nil {
		cancel()
		groupErr := g.Wait()
		// The group closed the watcher first; its reason wins.
		if errors.GetCode(err) == errors.ErrCodeWatcherClosed {
			return groupErr
		}
		return err
	}
	return g.Wait()
}
