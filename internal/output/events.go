package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/fireworm/internal/errors"
	"github.com/Aman-CERP/fireworm/internal/watcher"
)

// eventIcons are the plain-text markers for each event kind.
var eventIcons = map[watcher.EventKind]string{
	watcher.EventAdd:               "+",
	watcher.EventChange:            "~",
	watcher.EventRemove:            "-",
	watcher.EventReady:             "●",
	watcher.EventError:             "!",
	watcher.EventResourceExhausted: "✖",
}

// eventJSON is the wire form of an event in --json mode.
type eventJSON struct {
	Kind  string `json:"kind"`
	Path  string `json:"path,omitempty"`
	IsDir bool   `json:"is_dir,omitempty"`
	Time  string `json:"time"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
	Cause string `json:"cause,omitempty"`
}

// Event prints one watcher event as a single line.
func (w *Writer) Event(e watcher.Event) {
	icon := eventIcons[e.Kind]
	if icon == "" {
		icon = "?"
	}

	var line string
	switch e.Kind {
	case watcher.EventReady:
		line = w.render(w.styles.success, "ready")
	case watcher.EventError, watcher.EventResourceExhausted:
		line = w.render(w.styles.failure, e.String())
	default:
		path := e.Path
		if e.IsDir {
			path += "/"
		}
		line = fmt.Sprintf("%-6s %s", e.Kind, w.render(w.styles.path, path))
	}

	if w.useColor {
		icon = w.render(w.kindStyle(e.Kind), icon)
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, line)
}

func (w *Writer) kindStyle(kind watcher.EventKind) lipgloss.Style {
	switch kind {
	case watcher.EventAdd, watcher.EventReady:
		return w.styles.success
	case watcher.EventChange:
		return w.styles.warning
	case watcher.EventRemove:
		return w.styles.muted
	default:
		return w.styles.failure
	}
}

// EventJSON prints one watcher event as a JSON line.
func (w *Writer) EventJSON(e watcher.Event) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	out := eventJSON{
		Kind:  e.Kind.String(),
		Path:  e.Path,
		IsDir: e.IsDir,
		Time:  ts.UTC().Format(time.RFC3339Nano),
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
		var werr *errors.WatchError
		if errors.As(e.Err, &werr) {
			out.Code = werr.Code
			if werr.Cause != nil {
				out.Cause = werr.Cause.Error()
			}
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(w.out, "%s\n", data)
	return err
}
