package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/watcher"
)

// isolate points the user config at an empty temp dir and clears the
// FIREWORM_* variables for the duration of the test.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, key := range []string{"FIREWORM_DEBOUNCE", "FIREWORM_MAX_DEPTH", "FIREWORM_LOG_LEVEL", "FIREWORM_POLL_INTERVAL", "FIREWORM_POLL", "FIREWORM_GITIGNORE"} {
		t.Setenv(key, "")
	}
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "200ms", cfg.Watch.Debounce)
	assert.Equal(t, "2s", cfg.Watch.PollInterval)
	assert.Zero(t, cfg.Watch.MaxDepth)
	require.NotNil(t, cfg.Watch.NotifyNewFiles)
	assert.True(t, *cfg.Watch.NotifyNewFiles)
	assert.False(t, cfg.Watch.IgnoreInitial)
	assert.Equal(t, 64, cfg.Watch.MaxConcurrentOps)
	assert.Equal(t, 1000, cfg.Watch.EventBufferSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestGetUserConfigPath_XDG(t *testing.T) {
	xdg := isolate(t)
	assert.Equal(t, filepath.Join(xdg, "fireworm", "config.yaml"), GetUserConfigPath())
	assert.False(t, UserConfigExists())
}

// =============================================================================
// Loading and precedence
// =============================================================================

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectFile(t *testing.T) {
	// Given: a project file
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), `
watch:
  patterns: ["src/**/*.go"]
  ignore: ["**/testdata/**"]
  debounce: 50ms
  max_depth: 4
  notify_new_files: false
logging:
  level: debug
`)

	// When: loading
	cfg, err := Load(dir)

	// Then: the file's values win over defaults, the rest stay default
	require.NoError(t, err)
	assert.Equal(t, []string{"src/**/*.go"}, cfg.Watch.Patterns)
	assert.Equal(t, []string{"**/testdata/**"}, cfg.Watch.Ignore)
	assert.Equal(t, "50ms", cfg.Watch.Debounce)
	assert.Equal(t, 4, cfg.Watch.MaxDepth)
	assert.False(t, *cfg.Watch.NotifyNewFiles)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 64, cfg.Watch.MaxConcurrentOps)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".fireworm.yml"), "watch:\n  max_depth: 2\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Watch.MaxDepth)
}

func TestLoad_Precedence(t *testing.T) {
	// Given: user, project and environment all set values
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "fireworm", "config.yaml"), `
watch:
  debounce: 1s
  max_depth: 9
  ignore: ["**/from-user/**"]
logging:
  level: warn
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), `
watch:
  debounce: 300ms
  ignore: ["**/from-project/**"]
`)
	t.Setenv("FIREWORM_LOG_LEVEL", "error")

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: project beats user, env beats both, ignores accumulate
	assert.Equal(t, "300ms", cfg.Watch.Debounce)
	assert.Equal(t, 9, cfg.Watch.MaxDepth)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, []string{"**/from-user/**", "**/from-project/**"}, cfg.Watch.Ignore)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("FIREWORM_DEBOUNCE", "75ms")
	t.Setenv("FIREWORM_MAX_DEPTH", "3")
	t.Setenv("FIREWORM_POLL_INTERVAL", "500ms")
	t.Setenv("FIREWORM_POLL", "true")
	t.Setenv("FIREWORM_GITIGNORE", "1")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "75ms", cfg.Watch.Debounce)
	assert.Equal(t, 3, cfg.Watch.MaxDepth)
	assert.Equal(t, "500ms", cfg.Watch.PollInterval)
	assert.True(t, cfg.Watch.Poll)
	assert.True(t, cfg.Watch.Gitignore)
}

func TestLoad_InvalidEnvValuesIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("FIREWORM_DEBOUNCE", "soon")
	t.Setenv("FIREWORM_MAX_DEPTH", "-4")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "200ms", cfg.Watch.Debounce)
	assert.Zero(t, cfg.Watch.MaxDepth)
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), "watch: [unclosed\n")

	_, err := Load(dir)
	require.Error(t, err)
	var werr *errors.WatchError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, errors.ErrCodeConfigInvalid, werr.Code)
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFileName), "watch:\n  debounce: forever\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch.debounce")
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	var werr *errors.WatchError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, errors.ErrCodeConfigNotFound, werr.Code)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "watch:\n  ignore_initial: true\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Watch.IgnoreInitial)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "x" }, errors.ErrCodeConfigInvalid},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = "-1s" }, errors.ErrCodeConfigInvalid},
		{"bad poll interval", func(c *Config) { c.Watch.PollInterval = "1 minute" }, errors.ErrCodeConfigInvalid},
		{"negative depth", func(c *Config) { c.Watch.MaxDepth = -1 }, errors.ErrCodeConfigInvalid},
		{"negative buffer", func(c *Config) { c.Watch.EventBufferSize = -1 }, errors.ErrCodeConfigInvalid},
		{"bad pattern", func(c *Config) { c.Watch.Patterns = []string{"a/[b"} }, errors.ErrCodeInvalidPattern},
		{"bad ignore", func(c *Config) { c.Watch.Ignore = []string{"{a"} }, errors.ErrCodeInvalidPattern},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, errors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var werr *errors.WatchError
			require.True(t, errors.As(err, &werr))
			assert.Equal(t, tt.code, werr.Code)
		})
	}
}

func TestValidate_EmptyDurationsUseDefaults(t *testing.T) {
	cfg := NewConfig()
	cfg.Watch.Debounce = ""
	cfg.Watch.PollInterval = ""

	require.NoError(t, cfg.Validate())
	d, _ := cfg.DebounceWindow()
	assert.Equal(t, 200*time.Millisecond, d)
}

// =============================================================================
// Conversion and output
// =============================================================================

func TestToOptions(t *testing.T) {
	// Given: a configuration with every watch knob set
	cfg := NewConfig()
	off := false
	cfg.Watch.Debounce = "40ms"
	cfg.Watch.MaxDepth = 2
	cfg.Watch.NotifyNewFiles = &off
	cfg.Watch.IgnoreInitial = true
	cfg.Watch.Ignore = []string{"**/tmp/**"}
	cfg.Watch.MaxConcurrentOps = 8
	cfg.Watch.Poll = true
	cfg.Watch.PollInterval = "1s"

	// When: converted
	opts := cfg.ToOptions("/base")

	// Then: the watcher options carry them
	assert.Equal(t, "/base", opts.BaseDir)
	assert.Equal(t, 40*time.Millisecond, opts.DebounceWindow)
	assert.Equal(t, 2, opts.MaxDepth)
	assert.False(t, opts.NotifyNewFiles)
	assert.True(t, opts.IgnoreInitial)
	assert.Equal(t, 8, opts.MaxConcurrentOps)
	assert.True(t, opts.ForcePoll)
	assert.Equal(t, time.Second, opts.PollInterval)
	assert.Equal(t, append(append([]string(nil), watcher.DefaultIgnore...), "**/tmp/**"), opts.Ignore)
	require.NoError(t, opts.Validate())
}

func TestToOptions_DoesNotAliasDefaultIgnore(t *testing.T) {
	cfg := NewConfig()
	cfg.Watch.Ignore = []string{"a"}
	_ = cfg.ToOptions("/x")

	assert.Equal(t, []string{"**/.git", "**/.git/**"}, watcher.DefaultIgnore)
}

func TestWriteYAML_LoadsBack(t *testing.T) {
	// Given: a modified configuration written to disk
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Watch.Patterns = []string{"**/*.md"}
	cfg.Watch.MaxDepth = 5
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectFileName)))

	// When: loaded again
	loaded, err := Load(dir)

	// Then: the values survive
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	got, err := FindProjectRoot(deep)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	marked := filepath.Join(root, "a")
	writeFile(t, filepath.Join(marked, ProjectFileName), "version: 1\n")
	got, err = FindProjectRoot(deep)
	require.NoError(t, err)
	assert.Equal(t, marked, got)
}
