// Package watcher provides recursive, pattern-driven file watching.
//
// Given glob patterns, the watcher crawls from each pattern's root,
// subscribes to OS notifications for every matching file and every
// directory that can lead to one, and reports add, change and remove
// events as the tree evolves. It tolerates entries vanishing between a
// listing and a stat, and drops all watches with a resource-exhausted
// event when the OS runs out of watch handles.
//
// Directory notifications are debounced per directory: a burst of events
// collapses into one rescan, which diffs the fresh listing against what is
// known. File notifications re-stat the file and report change only when
// its modification time moved forward.
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	w.On(watcher.EventChange, func(e watcher.Event) {
//	    fmt.Println("changed:", e.Path)
//	})
//	if err := w.Add("src/**/*.go"); err != nil {
//	    return err
//	}
//	<-w.Ready()
package watcher
