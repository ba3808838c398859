package watcher

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/fsys"
)

// onDirRaw and onFileRaw run on backend goroutines and only post.

func (w *Watcher) onDirRaw(id fsys.Identity, ev fsys.RawEvent) {
	w.mbox.post(func() { w.onDirEvent(id, ev) })
}

func (w *Watcher) onFileRaw(id fsys.Identity, ev fsys.RawEvent) {
	w.mbox.post(func() { w.onFileEvent(id) })
}

// onDirEvent schedules a debounced rescan of every path of the directory.
// Content changes of children are handled by the children's own watches.
func (w *Watcher) onDirEvent(id fsys.Identity, ev fsys.RawEvent) {
	if w.exhausted || w.closed || ev.Op != fsys.OpRename {
		return
	}
	for _, dir := range w.dirs.PathsOf(id) {
		w.debounce.Touch(dir)
	}
}

// onFileEvent re-stats every path of the file's identity.
func (w *Watcher) onFileEvent(id fsys.Identity) {
	if w.exhausted || w.closed {
		return
	}
	for _, path := range w.files.PathsOf(id) {
		w.refresh(path)
	}
}

// refresh re-stats a known file after a notification. It is not counted
// as discovery.
func (w *Watcher) refresh(path string) {
	l := w.ledger
	l.Run(func(context.Context) func() {
		info, err := w.fs.Stat(path)
		return func() {
			if w.stale(l) {
				return
			}
			if _, known := w.files.Lookup(path); !known {
				return
			}
			switch {
			case err != nil && !errors.IsVanished(err):
				w.statFailed(path, err)
			case err != nil, info.IsDir():
				// Deleted or renamed away, or replaced by a directory. The
				// parent's listing decides what is there now.
				w.forgetFile(path)
				w.touchParent(path)
			default:
				w.observeFile(path, info, true)
			}
		}
	})
}

// rescan runs when a directory's debounce window closes.
func (w *Watcher) rescan(dir string) {
	if w.exhausted || w.closed {
		return
	}
	if _, ok := w.dirs.Lookup(dir); !ok {
		return
	}
	w.logger.Debug("rescanning directory", slog.String("path", dir))
	w.list(dir, w.patterns.DepthOf(dir), w.rescanCrawl())
}

func (w *Watcher) touchParent(path string) {
	parent := filepath.Dir(path)
	if _, ok := w.dirs.Lookup(parent); ok {
		w.debounce.Touch(parent)
	}
}

// destroy forgets path and, for a directory, its entire known subtree.
// Every descendant's remove is emitted before its directory's. The walk is
// iterative and tracks visited paths.
func (w *Watcher) destroy(root string) {
	type frame struct {
		path     string
		expanded bool
	}

	stack := []frame{{path: root}}
	visited := make(map[string]struct{})

	for len(stack) > 0 {
		top := len(stack) - 1
		f := stack[top]

		if f.expanded {
			stack = stack[:top]
			w.forgetDir(f.path)
			continue
		}
		if _, seen := visited[f.path]; seen {
			stack = stack[:top]
			continue
		}
		visited[f.path] = struct{}{}

		if _, isDir := w.dirs.Lookup(f.path); !isDir {
			stack = stack[:top]
			if _, isFile := w.files.Lookup(f.path); isFile {
				w.forgetFile(f.path)
			}
			continue
		}

		stack[top].expanded = true
		for _, file := range w.files.Children(f.path) {
			w.forgetFile(file)
		}
		for _, dir := range w.dirs.Children(f.path) {
			stack = append(stack, frame{path: dir})
		}
	}
}

func (w *Watcher) forgetFile(path string) {
	if _, ok := w.files.Lookup(path); !ok {
		return
	}
	w.rewatch(w.files, w.files.Forget(path))
	w.emit(Event{Kind: EventRemove, Path: path})
}

func (w *Watcher) forgetDir(path string) {
	if _, ok := w.dirs.Lookup(path); !ok {
		return
	}
	w.rewatch(w.dirs, w.dirs.Forget(path))
	w.debounce.Cancel(path)
	if w.patterns.Reportable(path) {
		w.emit(Event{Kind: EventRemove, Path: path, IsDir: true})
	}
}

// exhaust handles the OS refusing a watch handle: stop all work, emit
// resource-exhausted once and close every handle.
func (w *Watcher) exhaust(path string, cause error) {
	if w.exhausted {
		return
	}
	w.exhausted = true
	w.ledger.cancel()
	w.debounce.Stop()

	err := errors.Exhausted(path, cause)
	w.logger.Error("watch handles exhausted, dropping all watches",
		append(errors.LogAttrs(err),
			slog.Int("dirs", w.dirs.Len()),
			slog.Int("files", w.files.Len()))...)
	w.emit(Event{Kind: EventResourceExhausted, Path: path, Err: err})

	w.dirs.Clear()
	w.files.Clear()
}

// onBackendError handles asynchronous backend errors. A queue overflow
// means notifications were lost, so every known directory is rescanned.
func (w *Watcher) onBackendError(err error) {
	if w.closed {
		return
	}
	if errors.Is(err, fsys.ErrOverflow) && !w.exhausted {
		for _, dir := range w.dirs.KnownPaths() {
			w.debounce.Touch(dir)
		}
	}
	w.surface(errors.New(errors.ErrCodeBackendFailed, "filesystem backend error", err))
}
