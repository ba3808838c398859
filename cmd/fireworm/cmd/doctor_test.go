package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/preflight"
)

func TestDoctorCmd_BasicExecution(t *testing.T) {
	// Given: a readable project
	inProject(t)

	// When: running doctor
	stdout, _, err := execute(t, "doctor")

	// Then: the checks are printed
	require.NoError(t, err)
	assert.Contains(t, stdout, "file_descriptors")
	assert.Contains(t, stdout, "inotify_watches")
	assert.Contains(t, stdout, "Status:")
}

func TestDoctorCmd_JSONOutput(t *testing.T) {
	// Given: a project and a pattern whose root does not exist yet
	dir := inProject(t)

	// When: running doctor --json for that pattern
	stdout, _, err := execute(t, "doctor", "--json", "src/**/*.go")
	require.NoError(t, err)

	// Then: the output is JSON with one readability check for the root
	var out preflight.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, preflight.SummaryWarnings, out.Status)
	assert.Equal(t, []string{filepath.Join(dir, "src")}, out.Roots)
	require.Len(t, out.Checks, 3)

	last := out.Checks[2]
	assert.Equal(t, "readable "+filepath.Join(dir, "src"), last.Name)
	assert.Equal(t, preflight.StatusWarn, last.Status)
	assert.Contains(t, stdout, `"status": "warn"`)
	assert.True(t, last.Required)

	found := false
	for _, w := range out.Warnings {
		if strings.HasPrefix(w, "readable ") {
			found = true
		}
	}
	assert.True(t, found, "missing root should be a warning")
}

func TestDoctorCmd_UsesConfiguredPatterns(t *testing.T) {
	// Given: configured patterns under two roots
	dir := inProject(t)
	writeFile(t, filepath.Join(dir, ".fireworm.yaml"), "watch:\n  patterns: [\"a/*.txt\", \"b/**/*.md\"]\n")

	// When: running doctor without arguments
	stdout, _, err := execute(t, "doctor", "--json")
	require.NoError(t, err)

	// Then: each root is checked
	var out preflight.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Checks, 4)
	assert.Equal(t, "readable "+filepath.Join(dir, "a"), out.Checks[2].Name)
	assert.Equal(t, "readable "+filepath.Join(dir, "b"), out.Checks[3].Name)
}

func TestDoctorCmd_FailingRootIsCodedError(t *testing.T) {
	// Given: a root that exists but cannot be listed (skip on root)
	if os.Getuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := inProject(t)
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o311))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	// When: running doctor on it
	stdout, _, err := execute(t, "doctor", "locked/**")

	// Then: the report is printed and the command fails with a coded error
	assert.Contains(t, stdout, "Status: FAILED")
	var werr *errors.WatchError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, errors.ErrCodeSystemCheck, werr.Code)
}
