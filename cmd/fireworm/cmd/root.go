// Package cmd provides the CLI commands for fireworm.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fireworm/internal/config"
	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/logging"
	"github.com/Aman-CERP/fireworm/internal/profiling"
	"github.com/Aman-CERP/fireworm/pkg/version"
)

// Global flags
var (
	debugMode      bool
	configPath     string
	loggingCleanup func()
)

// Profiling flags
var (
	profileCfg profiling.Config
	profiler   *profiling.Session
)

// NewRootCmd creates the root command for the fireworm CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fireworm",
		Short: "Watch files matching glob patterns and report changes",
		Long: `fireworm watches every file matching a set of glob patterns, across
whole directory trees, and reports files and directories as they are
added, changed and removed.

Run 'fireworm watch "src/**/*.go"' to start.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("fireworm version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.fireworm/logs/")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Use this config file instead of the project and user files")

	cmd.PersistentFlags().StringVar(&profileCfg.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileCfg.Heap, "profile-mem", "", "Write memory profile to file on exit")
	cmd.PersistentFlags().StringVar(&profileCfg.Trace, "profile-trace", "", "Write execution trace to file")
	cmd.PersistentFlags().StringVar(&profileCfg.Goroutine, "profile-goroutine", "", "Write goroutine dump to file on exit")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	_ = stopProfilingAndLogging(nil, nil)
	if err != nil {
		fmt.Fprint(os.Stderr, formatError(err))
	}
	return err
}

// formatError renders coded errors with their hint and code, anything
// else as a single line.
func formatError(err error) string {
	var werr *errors.WatchError
	if errors.As(err, &werr) {
		return errors.FormatForCLI(werr)
	}
	return fmt.Sprintf("Error: %v\n", err)
}

// startProfilingAndLogging starts the requested profiles and installs
// the default logger.
func startProfilingAndLogging(cmd *cobra.Command, args []string) error {
	if profileCfg.Enabled() {
		session, err := profiling.Start(profileCfg)
		if err != nil {
			return err
		}
		profiler = session
	}
	return startLogging(cmd, args)
}

// stopProfilingAndLogging writes pending profiles and closes the log file.
func stopProfilingAndLogging(cmd *cobra.Command, args []string) error {
	var err error
	if profiler != nil {
		err = profiler.Stop()
		profiler = nil
	}
	_ = stopLogging(cmd, args)
	return err
}

// startLogging installs the default logger. Logging settings come from
// the configuration when it loads; a broken config is reported by the
// command that needs it.
func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = "warn"
	if cfg, err := loadConfig(); err == nil {
		logCfg.Level = cfg.Logging.Level
		if cfg.Logging.File != "" {
			logCfg.FilePath = cfg.Logging.File
		}
		if cfg.Logging.MaxSizeMB > 0 {
			logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		}
		if cfg.Logging.MaxFiles > 0 {
			logCfg.MaxFiles = cfg.Logging.MaxFiles
		}
	}

	cleanup, err := logging.SetupCLI(logCfg, debugMode)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	return nil
}

// stopLogging flushes and closes the log file if one was opened.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Debug("logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig loads the --config file, or the merged user and project
// configuration for the project containing the working directory.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	root, err := config.FindProjectRoot(".")
	if err != nil {
		return nil, err
	}
	return config.Load(root)
}
