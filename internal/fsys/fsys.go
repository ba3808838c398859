// Package fsys is the boundary between the watcher and the operating system.
//
// It exposes the three primitives the watcher needs (stat, list, subscribe)
// behind the FS interface. Two backends are provided: OS, which multiplexes
// every subscription onto one fsnotify watcher, and Poll, which snapshots
// subscribed paths on a ticker for filesystems where kernel notifications
// are unavailable (network mounts, some container volumes).
package fsys

import (
	"errors"
	"fmt"
	"time"
)

// ErrOverflow reports that the backend lost notifications and callers
// should re-list everything they care about.
var ErrOverflow = errors.New("notification queue overflow")

// Kind is the type of a filesystem entry.
type Kind int

const (
	// KindFile is a regular file or anything that is not a directory.
	KindFile Kind = iota
	// KindDir is a directory.
	KindDir
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Identity is the filesystem's own key for a physical entry. It survives
// renames and is shared by hardlinks.
type Identity struct {
	Dev uint64
	Ino uint64
}

// String formats the identity as dev:ino.
func (id Identity) String() string {
	return fmt.Sprintf("%d:%d", id.Dev, id.Ino)
}

// Info is the result of a stat.
type Info struct {
	Path     string
	Identity Identity
	Kind     Kind
	ModTime  time.Time
	Size     int64
}

// IsDir reports whether the entry is a directory.
func (i Info) IsDir() bool {
	return i.Kind == KindDir
}

// Op is the coarse classification of a raw notification.
type Op int

const (
	// OpChange means contents or metadata of the path changed.
	OpChange Op = iota
	// OpRename means an entry appeared, disappeared, or moved. For a
	// directory subscription this means its listing may differ.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpChange:
		return "change"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// RawEvent is a notification delivered to a subscription callback. Path is
// the entry the notification is about: the subscribed path itself, or one
// of its children when the subscribed path is a directory.
type RawEvent struct {
	Path string
	Op   Op
}

// Handle is a live subscription. Close releases the underlying OS resource
// and is safe to call more than once.
type Handle interface {
	Close() error
}

// FS is the set of filesystem primitives the watcher consumes.
type FS interface {
	// Stat follows symlinks and returns the entry's identity, kind and
	// modification time.
	Stat(path string) (Info, error)

	// ReadDir returns the names of the entries in a directory.
	ReadDir(path string) ([]string, error)

	// Subscribe starts delivering notifications about path to fn. The
	// callback runs on a backend goroutine and must not block.
	Subscribe(path string, fn func(RawEvent)) (Handle, error)

	// Name identifies the backend ("fsnotify", "polling", ...).
	Name() string

	// Close stops the backend and releases every subscription.
	Close() error
}

// ErrorSource is implemented by backends that report asynchronous errors
// not tied to a single operation.
type ErrorSource interface {
	Errors() <-chan error
}
