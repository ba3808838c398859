//go:build unix

package fsys

import (
	"os"
	"syscall"
)

func identityOf(path string, fi os.FileInfo) Identity {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return pathIdentity(path)
	}
	return Identity{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}
}
