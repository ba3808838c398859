package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/fsys"
	"github.com/Aman-CERP/fireworm/internal/glob"
	"github.com/Aman-CERP/fireworm/internal/watcher"
)

// ProjectFileName is the project configuration file looked up in the
// project root.
const ProjectFileName = ".fireworm.yaml"

// Config represents the complete fireworm configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// WatchConfig configures what is watched and how.
type WatchConfig struct {
	// Patterns are added when `fireworm watch` is given none.
	Patterns []string `yaml:"patterns" json:"patterns"`

	// Ignore is appended to the default ignores.
	Ignore []string `yaml:"ignore" json:"ignore"`

	// Debounce is the quiet window before a directory is rescanned
	// (e.g. "200ms").
	Debounce string `yaml:"debounce" json:"debounce"`

	// MaxDepth limits recursion below each root. 0 = unlimited.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`

	// NotifyNewFiles emits add for files found by rescans.
	// Pointer so a file can turn it off; nil keeps the default (true).
	NotifyNewFiles *bool `yaml:"notify_new_files,omitempty" json:"notify_new_files,omitempty"`

	// IgnoreInitial suppresses add events from the first crawl.
	IgnoreInitial bool `yaml:"ignore_initial" json:"ignore_initial"`

	// Gitignore also skips paths ignored by the project's .gitignore.
	Gitignore bool `yaml:"gitignore" json:"gitignore"`

	MaxConcurrentOps int `yaml:"max_concurrent_ops" json:"max_concurrent_ops"`
	EventBufferSize  int `yaml:"event_buffer_size" json:"event_buffer_size"`

	// Poll forces the polling backend.
	Poll         bool   `yaml:"poll" json:"poll"`
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	defaults := watcher.DefaultOptions()
	notify := defaults.NotifyNewFiles
	return &Config{
		Version: 1,
		Watch: WatchConfig{
			Debounce:         defaults.DebounceWindow.String(),
			NotifyNewFiles:   &notify,
			MaxConcurrentOps: defaults.MaxConcurrentOps,
			EventBufferSize:  defaults.EventBufferSize,
			PollInterval:     defaults.PollInterval.String(),
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/fireworm/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/fireworm/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fireworm", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "fireworm", "config.yaml")
	}
	return filepath.Join(home, ".config", "fireworm", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := &Config{}
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/fireworm/config.yaml)
//  3. Project config (.fireworm.yaml in dir)
//  4. Environment variables (FIREWORM_*)
//
// Command-line flags are applied by the caller on top.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults merged with a single explicit file, then env
// overrides. Used for --config.
func LoadFile(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, errors.New(errors.ErrCodeConfigNotFound, "config file not found", nil).WithPath(path)
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile merges .fireworm.yaml, or .fireworm.yml as a fallback.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ProjectFileName)
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".fireworm.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return errors.New(errors.ErrCodeConfigPermission, "cannot read config file", err).WithPath(path)
		}
		return errors.New(errors.ErrCodeConfigInvalid, "failed to read config file", err).WithPath(path)
	}

	// Parse into an empty struct so only keys present in the file merge.
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return errors.New(errors.ErrCodeConfigInvalid, "failed to parse config file", err).WithPath(path)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	w, o := &c.Watch, other.Watch
	if len(o.Patterns) > 0 {
		w.Patterns = o.Patterns
	}
	if len(o.Ignore) > 0 {
		// Ignores accumulate across files.
		w.Ignore = append(w.Ignore, o.Ignore...)
	}
	if o.Debounce != "" {
		w.Debounce = o.Debounce
	}
	if o.MaxDepth != 0 {
		w.MaxDepth = o.MaxDepth
	}
	if o.NotifyNewFiles != nil {
		notify := *o.NotifyNewFiles
		w.NotifyNewFiles = &notify
	}
	if o.IgnoreInitial {
		w.IgnoreInitial = true
	}
	if o.Gitignore {
		w.Gitignore = true
	}
	if o.MaxConcurrentOps != 0 {
		w.MaxConcurrentOps = o.MaxConcurrentOps
	}
	if o.EventBufferSize != 0 {
		w.EventBufferSize = o.EventBufferSize
	}
	if o.Poll {
		w.Poll = true
	}
	if o.PollInterval != "" {
		w.PollInterval = o.PollInterval
	}

	l, ol := &c.Logging, other.Logging
	if ol.Level != "" {
		l.Level = ol.Level
	}
	if ol.File != "" {
		l.File = ol.File
	}
	if ol.MaxSizeMB != 0 {
		l.MaxSizeMB = ol.MaxSizeMB
	}
	if ol.MaxFiles != 0 {
		l.MaxFiles = ol.MaxFiles
	}
}

// applyEnvOverrides applies FIREWORM_* environment variable overrides.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FIREWORM_DEBOUNCE"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			c.Watch.Debounce = v
		}
	}
	if v := os.Getenv("FIREWORM_MAX_DEPTH"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d >= 0 {
			c.Watch.MaxDepth = d
		}
	}
	if v := os.Getenv("FIREWORM_POLL_INTERVAL"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			c.Watch.PollInterval = v
		}
	}
	if v := os.Getenv("FIREWORM_POLL"); v != "" {
		c.Watch.Poll = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("FIREWORM_GITIGNORE"); v != "" {
		c.Watch.Gitignore = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("FIREWORM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if _, err := c.DebounceWindow(); err != nil {
		return invalid("watch.debounce", c.Watch.Debounce, err)
	}
	if _, err := c.PollInterval(); err != nil {
		return invalid("watch.poll_interval", c.Watch.PollInterval, err)
	}
	if c.Watch.MaxDepth < 0 {
		return invalid("watch.max_depth", strconv.Itoa(c.Watch.MaxDepth), fmt.Errorf("must be non-negative"))
	}
	if c.Watch.MaxConcurrentOps < 0 {
		return invalid("watch.max_concurrent_ops", strconv.Itoa(c.Watch.MaxConcurrentOps), fmt.Errorf("must be non-negative"))
	}
	if c.Watch.EventBufferSize < 0 {
		return invalid("watch.event_buffer_size", strconv.Itoa(c.Watch.EventBufferSize), fmt.Errorf("must be non-negative"))
	}
	for _, p := range append(append([]string(nil), c.Watch.Patterns...), c.Watch.Ignore...) {
		if err := glob.Validate(p); err != nil {
			return errors.New(errors.ErrCodeInvalidPattern, "invalid pattern in config", err).WithDetail("pattern", p)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level", c.Logging.Level, fmt.Errorf("must be 'debug', 'info', 'warn', or 'error'"))
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return invalid("logging", "", fmt.Errorf("max_size_mb and max_files must be non-negative"))
	}
	return nil
}

func invalid(key, value string, cause error) *errors.WatchError {
	return errors.New(errors.ErrCodeConfigInvalid, key+" is invalid", cause).
		WithDetail("key", key).
		WithDetail("value", value)
}

// DebounceWindow parses Watch.Debounce. Empty means the default.
func (c *Config) DebounceWindow() (time.Duration, error) {
	return parseDuration(c.Watch.Debounce, watcher.DefaultOptions().DebounceWindow)
}

// PollInterval parses Watch.PollInterval. Empty means the default.
func (c *Config) PollInterval() (time.Duration, error) {
	return parseDuration(c.Watch.PollInterval, fsys.DefaultPollInterval)
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be non-negative, got %s", s)
	}
	return d, nil
}

// ToOptions converts the configuration into watcher options rooted at
// baseDir. Call Validate first; unparseable durations fall back to
// defaults.
func (c *Config) ToOptions(baseDir string) watcher.Options {
	opts := watcher.DefaultOptions()
	opts.BaseDir = baseDir
	opts.MaxDepth = c.Watch.MaxDepth
	opts.IgnoreInitial = c.Watch.IgnoreInitial
	if c.Watch.NotifyNewFiles != nil {
		opts.NotifyNewFiles = *c.Watch.NotifyNewFiles
	}
	if d, err := c.DebounceWindow(); err == nil {
		opts.DebounceWindow = d
	}
	if d, err := c.PollInterval(); err == nil {
		opts.PollInterval = d
	}
	if c.Watch.MaxConcurrentOps > 0 {
		opts.MaxConcurrentOps = c.Watch.MaxConcurrentOps
	}
	if c.Watch.EventBufferSize > 0 {
		opts.EventBufferSize = c.Watch.EventBufferSize
	}
	opts.ForcePoll = c.Watch.Poll
	opts.Ignore = append(append([]string(nil), watcher.DefaultIgnore...), c.Watch.Ignore...)
	return opts
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Render renders the configuration as YAML.
func (c *Config) Render() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or a .fireworm.yaml/.yml file by walking
// up the directory tree, and returns startDir when neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ProjectFileName)) ||
			fileExists(filepath.Join(currentDir, ".fireworm.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
