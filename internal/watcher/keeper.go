package watcher

import (
	"path/filepath"
	"sort"

	"github.com/Aman-CERP/fireworm/internal/fsys"
)

type watchHandle struct {
	handle fsys.Handle
	path   string
}

// keeper indexes known entries of one kind by path and by identity.
// Several paths may share an identity (hardlinks, bind mounts); the
// identity owns at most one live handle, subscribed through one of them.
//
// keeper is owned by the loop and is not safe for concurrent use.
type keeper struct {
	fs fsys.FS

	paths    map[string]fsys.Identity
	stats    map[fsys.Identity]fsys.Info
	refs     map[fsys.Identity]map[string]struct{}
	handles  map[fsys.Identity]watchHandle
	children map[string]map[string]struct{}
}

func newKeeper(fs fsys.FS) *keeper {
	k := &keeper{fs: fs}
	k.reset()
	return k
}

func (k *keeper) reset() {
	k.paths = make(map[string]fsys.Identity)
	k.stats = make(map[fsys.Identity]fsys.Info)
	k.refs = make(map[fsys.Identity]map[string]struct{})
	k.handles = make(map[fsys.Identity]watchHandle)
	k.children = make(map[string]map[string]struct{})
}

// Record stores info for path. If path was bound to another identity that
// binding is forgotten first; the return value is as for Forget.
func (k *keeper) Record(path string, info fsys.Info) (rewatch string) {
	if old, ok := k.paths[path]; ok && old != info.Identity {
		rewatch = k.Forget(path)
	}

	id := info.Identity
	k.paths[path] = id
	k.stats[id] = info
	if k.refs[id] == nil {
		k.refs[id] = make(map[string]struct{})
	}
	k.refs[id][path] = struct{}{}

	// The filesystem root is its own parent and never its own child.
	if parent := filepath.Dir(path); parent != path {
		if k.children[parent] == nil {
			k.children[parent] = make(map[string]struct{})
		}
		k.children[parent][path] = struct{}{}
	}
	return rewatch
}

// Forget drops path. The identity's handle is released when its last path
// goes. If the handle was subscribed through path while other paths remain,
// it is closed anyway and one of the remaining paths is returned so the
// caller can subscribe again through it.
func (k *keeper) Forget(path string) (rewatch string) {
	id, ok := k.paths[path]
	if !ok {
		return ""
	}
	delete(k.paths, path)

	parent := filepath.Dir(path)
	if set := k.children[parent]; set != nil && parent != path {
		delete(set, path)
		if len(set) == 0 {
			delete(k.children, parent)
		}
	}

	refs := k.refs[id]
	delete(refs, path)
	if len(refs) == 0 {
		delete(k.refs, id)
		delete(k.stats, id)
		k.Release(id)
		return ""
	}

	if h, ok := k.handles[id]; ok && h.path == path {
		k.Release(id)
		return k.PathsOf(id)[0]
	}
	return ""
}

// Watch subscribes to path's identity unless it already has a handle.
// onEvent receives the identity the subscription was created for.
func (k *keeper) Watch(path string, onEvent func(fsys.Identity, fsys.RawEvent)) error {
	id, ok := k.paths[path]
	if !ok {
		return nil
	}
	if _, live := k.handles[id]; live {
		return nil
	}

	h, err := k.fs.Subscribe(path, func(ev fsys.RawEvent) {
		onEvent(id, ev)
	})
	if err != nil {
		return err
	}
	k.handles[id] = watchHandle{handle: h, path: path}
	return nil
}

// Release closes the identity's handle, if any.
func (k *keeper) Release(id fsys.Identity) {
	h, ok := k.handles[id]
	if !ok {
		return
	}
	delete(k.handles, id)
	_ = h.handle.Close()
}

// Clear closes every handle and forgets everything.
func (k *keeper) Clear() {
	for id := range k.handles {
		k.Release(id)
	}
	k.reset()
}

// Lookup returns the identity recorded for path.
func (k *keeper) Lookup(path string) (fsys.Identity, bool) {
	id, ok := k.paths[path]
	return id, ok
}

// Info returns the last recorded stat for path.
func (k *keeper) Info(path string) (fsys.Info, bool) {
	id, ok := k.paths[path]
	if !ok {
		return fsys.Info{}, false
	}
	info, ok := k.stats[id]
	return info, ok
}

// Watched reports whether path's identity has a live handle.
func (k *keeper) Watched(path string) bool {
	id, ok := k.paths[path]
	if !ok {
		return false
	}
	_, live := k.handles[id]
	return live
}

// PathsOf returns the known paths of id, sorted.
func (k *keeper) PathsOf(id fsys.Identity) []string {
	return sortedKeys(k.refs[id])
}

// Children returns the known entries directly inside dir, sorted.
func (k *keeper) Children(dir string) []string {
	return sortedKeys(k.children[dir])
}

// KnownPaths returns every known path, sorted.
func (k *keeper) KnownPaths() []string {
	out := make([]string, 0, len(k.paths))
	for p := range k.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of known paths.
func (k *keeper) Len() int {
	return len(k.paths)
}

// HandleCount returns the number of live handles.
func (k *keeper) HandleCount() int {
	return len(k.handles)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
