package fsys

import (
	"hash/fnv"
	"path/filepath"
)

// pathIdentity derives a stable identity from the cleaned path. Dev is left
// at zero so these never collide with real device numbers in practice.
func pathIdentity(path string) Identity {
	h := fnv.New64a()
	_, _ = h.Write([]byte(filepath.Clean(path)))
	return Identity{Ino: h.Sum64()}
}
