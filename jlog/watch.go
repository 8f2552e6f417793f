package jlog

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// dirWatcher watches a machine directory for files created or renamed by
// another process (e.g. a crashed writer's leftover active file renamed by
// an external recovery tool) and logs each such event at debug level. It
// does not start a retention sweep; the next sweep still waits for Open or
// this process's own rotation.
type dirWatcher struct {
	w      *fsnotify.Watcher
	done   chan struct{}
	logger *slog.Logger
}

func newDirWatcher(dir string, logger *slog.Logger) (*dirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	dw := &dirWatcher{w: w, done: make(chan struct{}), logger: logger}
	go dw.run()
	return dw, nil
}

func (dw *dirWatcher) run() {
	for {
		select {
		case ev, ok := <-dw.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
				dw.logger.Debug("jlog: directory watch saw external change", "path", ev.Name, "op", ev.Op.String())
			}
		case err, ok := <-dw.w.Errors:
			if !ok {
				return
			}
			dw.logger.Warn("jlog: directory watch error", "err", err)
		case <-dw.done:
			return
		}
	}
}

func (dw *dirWatcher) Close() error {
	close(dw.done)
	return dw.w.Close()
}
