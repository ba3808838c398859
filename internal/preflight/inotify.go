package preflight

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// MinInotifyWatches is the per-user inotify watch limit below which
// medium-sized trees run out of watches.
const MinInotifyWatches = 8192

// inotifyWatchesPath is the sysctl file holding the per-user limit.
var inotifyWatchesPath = "/proc/sys/fs/inotify/max_user_watches"

// CheckInotifyWatches checks the per-user inotify watch limit on Linux.
func (c *Checker) CheckInotifyWatches() CheckResult {
	result := CheckResult{
		Name: "inotify_watches",
	}

	if runtime.GOOS != "linux" {
		result.Status = StatusPass
		result.Message = "not applicable on " + runtime.GOOS
		return result
	}

	data, err := os.ReadFile(inotifyWatchesPath)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("unable to read limit: %v", err)
		return result
	}

	limit, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("unparseable limit %q", strings.TrimSpace(string(data)))
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", limit, MinInotifyWatches)
	if limit < MinInotifyWatches {
		result.Status = StatusWarn
		result.Details = "Run 'sudo sysctl fs.inotify.max_user_watches=524288' to increase the limit"
		return result
	}

	result.Status = StatusPass
	return result
}
