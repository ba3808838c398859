package cmd

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fireworm/internal/errors"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// Then: every subcommand is registered
	for _, name := range []string{"watch", "doctor", "config", "logs", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	root := NewRootCmd()

	debug := root.PersistentFlags().Lookup("debug")
	require.NotNil(t, debug)
	assert.Equal(t, "false", debug.DefValue)

	cfg := root.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "", cfg.DefValue)
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	inProject(t)

	stdout, _, err := execute(t, "--help")

	require.NoError(t, err)
	assert.Contains(t, stdout, "fireworm")
	assert.Contains(t, stdout, "watch")
	assert.Contains(t, stdout, "doctor")
}

func TestRootCmd_BrokenConfigDoesNotBlockVersion(t *testing.T) {
	// Given: a project config that fails validation
	dir := inProject(t)
	writeFile(t, dir+"/.fireworm.yaml", "watch:\n  debounce: soon\n")

	// When: running a command that does not need the config
	_, _, err := execute(t, "version", "--short")

	// Then: it still works
	assert.NoError(t, err)
}

func TestFormatError(t *testing.T) {
	// Given: a coded error wrapped with context
	coded := errors.ValidationError("no patterns to watch", nil).WithSuggestion("pass patterns")
	wrapped := fmt.Errorf("watch: %w", coded)

	// Then: the code and hint are shown
	got := formatError(wrapped)
	assert.Contains(t, got, "Error: no patterns to watch")
	assert.Contains(t, got, "Hint: pass patterns")
	assert.Contains(t, got, "Code: "+errors.ErrCodeInvalidInput)

	// And: plain errors are one line
	assert.Equal(t, "Error: boom\n", formatError(fmt.Errorf("boom")))
}

func TestRootCmd_ProfilesCommand(t *testing.T) {
	// Given: heap and goroutine profiles requested
	inProject(t)
	dir := t.TempDir()
	heap := dir + "/heap.prof"
	goroutines := dir + "/goroutines.txt"

	// When: running a command
	_, _, err := execute(t, "--profile-mem", heap, "--profile-goroutine", goroutines, "version")

	// Then: both snapshots are written on exit
	require.NoError(t, err)
	assert.FileExists(t, heap)
	assert.FileExists(t, goroutines)
}
