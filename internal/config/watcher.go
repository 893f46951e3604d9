package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hse-go/kvengine/internal/logging"
	"github.com/hse-go/kvengine/internal/merr"
	"github.com/hse-go/kvengine/internal/param"
)

// Watcher watches a config file for changes and reapplies its overrides
// onto a set of param.Set records on every write, so writable parameters
// can be tuned live without a KVDB restart.
type Watcher struct {
	fsw    *fsnotify.Watcher
	path   string
	loader *Loader
	sets   []*param.Set
	mu     sync.Mutex
	done   chan struct{}
	log    logging.Logger
}

// NewWatcher builds a Watcher over path, reapplying overrides onto each
// of sets whenever the file changes.
func NewWatcher(path string, sets []*param.Set, log logging.Logger) (*Watcher, error) {
	const op = "config.NewWatcher"
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}
	// Watch the directory, not the file itself, to survive editors that
	// replace the file via rename rather than an in-place write.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, merr.Wrap(merr.KindIO, op, err)
	}
	return &Watcher{
		fsw:    fsw,
		path:   path,
		loader: NewLoader(path),
		sets:   sets,
		done:   make(chan struct{}),
		log:    logging.OrDefault(log),
	}, nil
}

// Start runs the watch loop until Stop is called. Call it in its own
// goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf(logging.NSParam+"config watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.loader.Load(); err != nil {
		w.log.Errorf(logging.NSParam+"config reload failed: %v", err)
		return
	}
	for _, set := range w.sets {
		if err := w.loader.ApplyOverrides(set); err != nil {
			w.log.Errorf(logging.NSParam+"config reload: applying overrides to %s failed: %v", set.Name(), err)
		}
	}
}

// Stop terminates the watch loop and releases the underlying fsnotify
// handle.
func (w *Watcher) Stop() error {
	close(w.done)
	if err := w.fsw.Close(); err != nil {
		return merr.Wrap(merr.KindIO, "config.Stop", err)
	}
	return nil
}
