//go:build unix

package preflight

import "golang.org/x/sys/unix"

func nofileLimit() (uint64, bool, error) {
	var rLimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, true, err
	}
	return uint64(rLimit.Cur), true, nil
}
