package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fireworm/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor [patterns...]",
		Short: "Check that this machine can sustain a watch",
		Long: `Run system diagnostics before watching large trees.

Checks:
  - File descriptor limit (1024 minimum)
  - inotify watch limit on Linux (8192 minimum)
  - Every pattern root exists and can be listed

Without patterns, the configured patterns are checked, or the current
directory when none are configured.

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.`,
		Example: `  # Run diagnostics
  fireworm doctor

  # Check the roots of specific patterns
  fireworm doctor "src/**/*.go" "docs/*.md"

  # JSON output for scripting
  fireworm doctor --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, args, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, args []string, verbose, jsonOutput bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	roots, err := doctorRoots(args)
	if err != nil {
		return err
	}

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	report := checker.Run(ctx, roots)

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		checker.Print(report)
	}
	return report.Err()
}

// doctorRoots picks what to check: the roots of the given patterns, else
// of the configured ones, else the working directory.
func doctorRoots(args []string) ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	patterns := args
	if len(patterns) == 0 {
		if cfg, err := loadConfig(); err == nil {
			patterns = cfg.Watch.Patterns
		}
	}
	if len(patterns) == 0 {
		return []string{cwd}, nil
	}
	return watchRoots(cwd, patterns), nil
}
