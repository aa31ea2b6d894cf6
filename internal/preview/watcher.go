package preview

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/logfields"
)

// renameWindow is how long a rename waits for the matching create before
// it is treated as a removal.
const renameWindow = 100 * time.Millisecond

// Watcher turns filesystem notifications under a site directory into Events.
type Watcher struct {
	fs   *fsnotify.Watcher
	skip []string
}

// NewWatcher watches every directory under root except the skipped ones.
func NewWatcher(root string, skip ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.RuntimeError("failed to create file watcher").WithCause(err).Build()
	}
	w := &Watcher{fs: fw, skip: skip}
	if err := w.addDirsRecursive(root); err != nil {
		_ = fw.Close()
		return nil, ferrors.FileSystemError("failed to watch site").WithCause(err).WithContext("path", root).Build()
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run forwards events to out until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, out chan<- Event) error {
	var (
		t       translator
		timeout <-chan time.Time
	)
	emit := func(events []Event) bool {
		for _, ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			timeout = nil
			if !emit(t.flush()) {
				return nil
			}
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && !w.skipped(ev.Name) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.addDirsRecursive(ev.Name)
					if !emit(w.filesIn(ev.Name)) {
						return nil
					}
					continue
				}
			}
			if w.skipped(ev.Name) {
				continue
			}
			if !emit(t.translate(ev)) {
				return nil
			}
			timeout = nil
			if t.pending != "" {
				timeout = time.After(renameWindow)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) skipped(path string) bool {
	for _, dir := range w.skip {
		if within(dir, path) {
			return true
		}
	}
	return false
}

// addDirsRecursive watches root and every directory below it.
func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipped(path) || (path != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// filesIn reports every file of a directory that appeared in one step,
// such as one moved into the site.
func (w *Watcher) filesIn(dir string) []Event {
	var events []Event
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || shouldIgnoreEvent(path) {
			return nil
		}
		events = append(events, newEvent(OpWrite, path, ""))
		return nil
	})
	return events
}

// translator pairs a rename with the create that follows it.
type translator struct {
	pending string
}

func (t *translator) translate(ev fsnotify.Event) []Event {
	if shouldIgnoreEvent(ev.Name) {
		return nil
	}
	switch {
	case ev.Has(fsnotify.Rename):
		out := t.flush()
		t.pending = ev.Name
		return out
	case ev.Has(fsnotify.Create):
		if t.pending == "" {
			return []Event{newEvent(OpWrite, ev.Name, "")}
		}
		old := t.pending
		t.pending = ""
		if old == ev.Name {
			// Editors that save by renaming the original away.
			return []Event{newEvent(OpWrite, ev.Name, "")}
		}
		return []Event{newEvent(OpRename, ev.Name, old)}
	case ev.Has(fsnotify.Write):
		return append(t.flush(), newEvent(OpWrite, ev.Name, ""))
	case ev.Has(fsnotify.Remove):
		return append(t.flush(), newEvent(OpRemove, ev.Name, ""))
	}
	return nil
}

// flush turns an unpaired rename into a removal.
func (t *translator) flush() []Event {
	if t.pending == "" {
		return nil
	}
	ev := newEvent(OpRemove, t.pending, "")
	t.pending = ""
	return []Event{ev}
}

func newEvent(op Op, path, oldPath string) Event {
	return Event{ID: uuid.NewString(), Op: op, Path: path, OldPath: oldPath}
}

// shouldIgnoreEvent returns true for files that never affect the site.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Hidden files
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) {
		return true
	}

	return base == "Thumbs.db"
}
