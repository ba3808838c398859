//go:build !unix

package errors

import (
	"errors"
	"syscall"
)

func isExhaustionErrno(err error) bool {
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE)
}

func isNotDir(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}
