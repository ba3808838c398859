package watcher

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/fsys"
)

// crawlOpts controls one discovery pass.
type crawlOpts struct {
	// notify emits add for entries not previously known.
	notify bool
	// deep re-crawls known directories instead of only re-stating them.
	deep bool
}

// initialCrawl is used for new roots, pattern additions and recovery.
func (w *Watcher) initialCrawl() crawlOpts {
	return crawlOpts{notify: !w.opts.IgnoreInitial, deep: true}
}

// rescanCrawl is used when a directory event settles.
func (w *Watcher) rescanCrawl() crawlOpts {
	return crawlOpts{notify: w.opts.NotifyNewFiles}
}

// crawl discovers path and, if it is a directory, everything in scope
// beneath it.
func (w *Watcher) crawl(path string, depth int, o crawlOpts) {
	if w.exhausted || w.closed {
		return
	}
	if w.opts.MaxDepth > 0 && depth > w.opts.MaxDepth {
		return
	}
	if !w.patterns.InScope(path) {
		return
	}

	l := w.ledger
	l.Go(func(context.Context) func() {
		info, err := w.fs.Stat(path)
		return func() {
			if w.stale(l) {
				return
			}
			if err != nil {
				w.statFailed(path, err)
				return
			}
			w.observe(path, depth, o, info)
		}
	})
}

// observe records a freshly stated entry.
func (w *Watcher) observe(path string, depth int, o crawlOpts, info fsys.Info) {
	if info.IsDir() {
		w.observeDir(path, depth, o, info)
		return
	}
	if !w.patterns.FileInScope(path) {
		return
	}
	if _, wasDir := w.dirs.Lookup(path); wasDir {
		w.destroy(path)
	}
	w.observeFile(path, info, o.notify)
}

func (w *Watcher) observeDir(path string, depth int, o crawlOpts, info fsys.Info) {
	if !w.patterns.DirInScope(path) {
		return
	}
	if w.isCycle(path, info.Identity) {
		w.logger.Debug("skipping directory cycle", slog.String("path", path))
		return
	}

	if _, wasFile := w.files.Lookup(path); wasFile {
		w.destroy(path)
	}
	prev, known := w.dirs.Lookup(path)
	if known && prev != info.Identity {
		// Replaced by a different directory: the old subtree is gone.
		w.destroy(path)
		known = false
	}

	w.rewatch(w.dirs, w.dirs.Record(path, info))
	if !w.watch(w.dirs, path) {
		return
	}
	if !known && o.notify && w.patterns.Reportable(path) {
		w.emit(Event{Kind: EventAdd, Path: path, IsDir: true})
	}
	w.list(path, depth, o)
}

// observeFile applies a stat result to a file entry. Unknown files are
// recorded and announced when notify is set. Known files emit change when
// their identity changed or their modification time moved strictly
// forward.
func (w *Watcher) observeFile(path string, info fsys.Info, notify bool) {
	prev, known := w.files.Info(path)
	if !known {
		w.rewatch(w.files, w.files.Record(path, info))
		if !w.watch(w.files, path) {
			return
		}
		if notify {
			w.emit(Event{Kind: EventAdd, Path: path})
		}
		return
	}

	if prev.Identity != info.Identity {
		w.rewatch(w.files, w.files.Record(path, info))
		if !w.watch(w.files, path) {
			return
		}
		w.emit(Event{Kind: EventChange, Path: path})
		return
	}

	if !w.watch(w.files, path) {
		return
	}
	if !info.ModTime.After(prev.ModTime) {
		return
	}
	w.files.Record(path, info)
	for _, p := range w.files.PathsOf(info.Identity) {
		w.emit(Event{Kind: EventChange, Path: p})
	}
}

// list reads dir and reconciles the listing with what is known.
func (w *Watcher) list(dir string, depth int, o crawlOpts) {
	l := w.ledger
	l.Go(func(context.Context) func() {
		names, err := w.fs.ReadDir(dir)
		return func() {
			if w.stale(l) {
				return
			}
			if err != nil {
				w.listFailed(dir, err)
				return
			}
			w.reconcile(dir, depth, names, o)
		}
	})
}

// reconcile diffs a fresh listing of dir against its known children.
// Vanished children are destroyed, new ones crawled, and known ones
// re-stated (or re-crawled for deep passes).
func (w *Watcher) reconcile(dir string, depth int, names []string, o crawlOpts) {
	if _, ok := w.dirs.Lookup(dir); !ok {
		return
	}

	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		present[filepath.Join(dir, name)] = struct{}{}
	}

	for _, child := range w.childrenOf(dir) {
		if _, ok := present[child]; !ok {
			w.destroy(child)
		}
	}

	for _, name := range names {
		child := filepath.Join(dir, name)
		_, isDir := w.dirs.Lookup(child)
		_, isFile := w.files.Lookup(child)
		switch {
		case isDir && o.deep:
			w.crawl(child, depth+1, o)
		case isDir || isFile:
			w.verify(child, depth+1, o)
		default:
			w.crawl(child, depth+1, o)
		}
	}
}

// verify re-stats a known child. A changed identity means the entry was
// replaced and is rediscovered from scratch.
func (w *Watcher) verify(path string, depth int, o crawlOpts) {
	if w.exhausted || w.closed {
		return
	}

	l := w.ledger
	l.Go(func(context.Context) func() {
		info, err := w.fs.Stat(path)
		return func() {
			if w.stale(l) {
				return
			}
			if err != nil {
				w.statFailed(path, err)
				return
			}
			if id, ok := w.dirs.Lookup(path); ok {
				if id != info.Identity || !info.IsDir() {
					w.destroy(path)
					w.observe(path, depth, o, info)
				}
				return
			}
			if _, ok := w.files.Lookup(path); ok && info.IsDir() {
				w.destroy(path)
			}
			w.observe(path, depth, o, info)
		}
	})
}

// childrenOf returns the known files and directories directly in dir.
func (w *Watcher) childrenOf(dir string) []string {
	return append(w.files.Children(dir), w.dirs.Children(dir)...)
}

// isCycle reports whether id is already recorded for an ancestor of path,
// which happens when a symlink points back up the tree.
func (w *Watcher) isCycle(path string, id fsys.Identity) bool {
	if filepath.Dir(path) == path {
		return false
	}
	for p := filepath.Dir(path); ; p = filepath.Dir(p) {
		if known, ok := w.dirs.Lookup(p); ok && known == id {
			return true
		}
		if filepath.Dir(p) == p {
			return false
		}
	}
}

// watch subscribes to path through k. It returns false when the failure
// exhausted the watcher and the caller must stop.
func (w *Watcher) watch(k *keeper, path string) bool {
	handler := w.onFileRaw
	if k == w.dirs {
		handler = w.onDirRaw
	}

	err := k.Watch(path, handler)
	if err == nil {
		return true
	}
	switch errors.Classify(err) {
	case errors.Exhaust:
		w.exhaust(path, err)
		return false
	case errors.Absorb:
		w.logger.Debug("watch skipped",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return true
	default:
		w.surface(errors.SubscribeFailed(path, err))
		return true
	}
}

// rewatch moves an identity's subscription to a remaining path after the
// path it was subscribed through was forgotten.
func (w *Watcher) rewatch(k *keeper, path string) {
	if path == "" || w.exhausted {
		return
	}
	w.watch(k, path)
}

func (w *Watcher) statFailed(path string, err error) {
	switch {
	case errors.IsVanished(err):
	case errors.IsExhaustion(err):
		w.exhaust(path, err)
	default:
		w.surface(errors.StatFailed(path, err))
	}
}

func (w *Watcher) listFailed(dir string, err error) {
	switch {
	case errors.IsVanished(err):
		// Nobody else will notice a vanished directory whose parent is
		// not watched, such as a tracked root.
		if _, ok := w.dirs.Lookup(filepath.Dir(dir)); !ok {
			w.destroy(dir)
		}
	case errors.IsExhaustion(err):
		w.exhaust(dir, err)
	default:
		w.surface(errors.ListFailed(dir, err))
	}
}
