//go:build unix

package errors

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isExhaustionErrno matches the errnos the kernel returns when the process
// or the inotify subsystem has no handles left. ENOSPC comes from
// inotify_add_watch once max_user_watches is reached.
func isExhaustionErrno(err error) bool {
	return errors.Is(err, unix.EMFILE) ||
		errors.Is(err, unix.ENFILE) ||
		errors.Is(err, unix.ENOSPC)
}

// isNotDir matches a path component that turned into a file mid-crawl.
func isNotDir(err error) bool {
	return errors.Is(err, unix.ENOTDIR)
}
