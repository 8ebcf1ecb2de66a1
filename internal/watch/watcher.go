// Package watch finds annotation files in folders, once or continuously.
package watch

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/strrl/hkanno-tui/internal/registry"
)

// Watcher reports .hkx files created in a set of folders.
type Watcher struct {
	fw     *fsnotify.Watcher
	post   func(fn func())
	found  func(path string)
	logger *slog.Logger

	closed chan struct{}
	done   chan struct{}
}

// New starts watching dirs. found runs through post for every new
// annotation file, so it executes on the caller's control thread.
func New(dirs []string, post func(fn func()), found func(path string), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w := &Watcher{
		fw:     fw,
		post:   post,
		found:  found,
		logger: logger,
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.loop()
	logger.Info("watching folders", "dirs", dirs)
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	select {
	case <-w.closed:
		return nil
	default:
	}
	close(w.closed)
	err := w.fw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.closed:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 || !registry.Accepts(event.Name) {
				continue
			}
			path := event.Name
			w.logger.Debug("annotation file appeared", "path", path)
			w.post(func() { w.found(path) })
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}
