package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fireworm/configs"
	"github.com/Aman-CERP/fireworm/internal/config"
	"github.com/Aman-CERP/fireworm/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage the project and user configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/fireworm/config.yaml)
  3. Project config (.fireworm.yaml)
  4. Environment variables (FIREWORM_*)
  5. Command-line flags`,
		Example: `  # Create a project config from the template
  fireworm config init

  # Show effective configuration (merged from all sources)
  fireworm config show

  # Roll back the project config to its latest backup
  fireworm config restore`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force, user bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from a template",
		Long: `Create .fireworm.yaml in the project root, or the user configuration
file with --user.

With --force an existing file is backed up next to itself before it is
replaced. The last three backups are kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, user)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&user, "user", false, "Create the user config instead of the project config")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the configuration after merging defaults, files and environment.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := projectConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user:    %s\nproject: %s\n", config.GetUserConfigPath(), project)
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var list, user bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore a configuration backup",
		Long: `Replace the project (or --user) configuration with a backup. Without an
argument the newest backup is used. The current file is backed up first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigRestore(cmd, args, list, user)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List backups instead of restoring")
	cmd.Flags().BoolVar(&user, "user", false, "Restore the user config instead of the project config")

	return cmd
}

// projectConfigPath returns where the project config lives for the
// working directory.
func projectConfigPath() (string, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		return "", err
	}
	return filepath.Join(root, config.ProjectFileName), nil
}

func targetConfigPath(user bool) (string, error) {
	if user {
		return config.GetUserConfigPath(), nil
	}
	return projectConfigPath()
}

func runConfigInit(cmd *cobra.Command, force, user bool) error {
	out := output.New(cmd.OutOrStdout())

	path, err := targetConfigPath(user)
	if err != nil {
		return err
	}
	template := configs.ProjectConfigTemplate
	if user {
		template = configs.UserConfigTemplate
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Newline()
			out.Status("💡", "Use --force to replace it (a backup is kept)")
			return nil
		}
		backupPath, err := config.Backup(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backup: %s", backupPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Edit the patterns and ignores")
	out.Status("", "  2. Run 'fireworm config show' to verify")
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	data, err := cfg.Render()
	if err != nil {
		return err
	}
	source := "merged (defaults + user + project + env)"
	if configPath != "" {
		source = configPath + " + env"
	}
	out := output.New(cmd.OutOrStdout())
	out.Statusf("📋", "Configuration source: %s", source)
	out.Newline()
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigRestore(cmd *cobra.Command, args []string, list, user bool) error {
	out := output.New(cmd.OutOrStdout())

	path, err := targetConfigPath(user)
	if err != nil {
		return err
	}
	backups, err := config.ListBackups(path)
	if err != nil {
		return err
	}

	if list {
		if len(backups) == 0 {
			out.Status("📭", "No backups")
			return nil
		}
		for _, b := range backups {
			out.Status("", b)
		}
		return nil
	}

	var backup string
	switch {
	case len(args) == 1:
		backup = args[0]
	case len(backups) > 0:
		backup = backups[0]
	default:
		return fmt.Errorf("no backups of %s", path)
	}

	if err := config.Restore(path, backup); err != nil {
		return err
	}
	out.Successf("Restored %s", path)
	out.Statusf("💾", "From: %s", backup)
	return nil
}
