package errors

import (
	"errors"
	"io/fs"
)

// Disposition is what the watcher does with a failed filesystem operation.
type Disposition int

const (
	// Absorb drops the failure silently. Vanished entries and entries the
	// process may not monitor land here.
	Absorb Disposition = iota
	// Surface reports the failure as a non-fatal error event.
	Surface
	// Exhaust escalates to handle-exhaustion recovery.
	Exhaust
)

// String returns a human-readable representation of the disposition.
func (d Disposition) String() string {
	switch d {
	case Absorb:
		return "absorb"
	case Surface:
		return "surface"
	case Exhaust:
		return "exhaust"
	default:
		return "unknown"
	}
}

// Classify maps an OS error to a Disposition.
func Classify(err error) Disposition {
	switch {
	case err == nil:
		return Absorb
	case IsExhaustion(err):
		return Exhaust
	case IsVanished(err), errors.Is(err, fs.ErrPermission):
		return Absorb
	default:
		return Surface
	}
}

// IsVanished reports whether err means the entry no longer exists.
func IsVanished(err error) bool {
	if err == nil {
		return false
	}
	var we *WatchError
	if errors.As(err, &we) && we.Code == ErrCodeEntryVanished {
		return true
	}
	return errors.Is(err, fs.ErrNotExist) || isNotDir(err)
}

// IsExhaustion reports whether err means the OS refused a new watch handle
// because a descriptor or watch budget is spent.
func IsExhaustion(err error) bool {
	if err == nil {
		return false
	}
	var we *WatchError
	if errors.As(err, &we) && we.Code == ErrCodeHandleExhausted {
		return true
	}
	return isExhaustionErrno(err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
