// Package watch reports store files that change on disk, e.g. when another
// process writes a store this process also has a backend for.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"vdstore/internal/files"
	"vdstore/internal/logging"
	"vdstore/internal/storage"
)

var logger = logging.For("watch")

// Event names a store file relative to the documents root, as returned by
// storage.StorePath.
type Event struct {
	Path    string
	Removed bool
}

// Watcher watches the store namespace directory of one documents root.
type Watcher struct {
	fw  *fsnotify.Watcher
	dir string
}

// New starts watching <documentsRoot>/vd_mmkv, creating it if needed.
// Changes made after New returns are reported by Run.
func New(documentsRoot string) (*Watcher, error) {
	dir := filepath.Join(documentsRoot, storage.Namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &Watcher{fw: fw, dir: dir}, nil
}

// Run calls fn for every store file event until ctx is done, then closes
// the watcher. In-flight temp files of atomic writes are not reported.
func (w *Watcher) Run(ctx context.Context, fn func(Event)) error {
	defer w.fw.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if e, ok := w.translate(ev); ok {
				fn(e)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "dir", w.dir, "err", err)
		}
	}
}

// Close stops a watcher whose Run was never called.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

func (w *Watcher) translate(ev fsnotify.Event) (Event, bool) {
	name := filepath.Base(ev.Name)
	if files.IsTemp(name) {
		return Event{}, false
	}
	rel := storage.Namespace + "/" + name
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		logger.Debug("store file removed", "path", rel)
		return Event{Path: rel, Removed: true}, true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		logger.Debug("store file changed", "path", rel)
		return Event{Path: rel}, true
	default:
		return Event{}, false
	}
}
