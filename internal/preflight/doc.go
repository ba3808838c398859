// Package preflight checks that the host can sustain a watch before one
// starts.
//
// A recursive watch holds one notification handle per directory, so the
// checks focus on the handle budget:
//   - File descriptor limit (RLIMIT_NOFILE, minimum 1024)
//   - inotify watch limit on Linux (minimum 8192)
//   - Readability of every root to be watched
//
// Run every check and act on the summary:
//
//	report := preflight.New().Run(ctx, roots)
//	if err := report.Err(); err != nil {
//	    return err
//	}
package preflight
