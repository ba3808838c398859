package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// inProject switches to a fresh project directory with isolated user
// config, home and environment, and returns the directory.
func inProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	t.Chdir(dir)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"FIREWORM_DEBOUNCE", "FIREWORM_MAX_DEPTH", "FIREWORM_POLL", "FIREWORM_POLL_INTERVAL", "FIREWORM_LOG_LEVEL", "FIREWORM_GITIGNORE"} {
		t.Setenv(key, "")
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

// execute runs the root command with args and returns what it wrote.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err = root.Execute()
	_ = stopProfilingAndLogging(nil, nil)
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
