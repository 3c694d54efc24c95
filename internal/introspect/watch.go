package introspect

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SnapshotWatcher invokes a callback when a snapshot file changes on disk.
//
// The parent directory is watched rather than the file itself, so writes
// that replace the file (the usual editor and exporter behavior) keep
// being observed. Bursts of events collapse into one callback.
type SnapshotWatcher struct {
	watcher  *fsnotify.Watcher
	name     string
	debounce time.Duration
	onChange func()
	logger   *zap.Logger

	mu    sync.Mutex
	timer *time.Timer

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// WatchFile watches path and invokes onChange, debounced, every time the
// file is written or replaced.
func WatchFile(path string, debounce time.Duration, logger *zap.Logger, onChange func()) (*SnapshotWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &SnapshotWatcher{
		watcher:  watcher,
		name:     filepath.Base(path),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()

	return w, nil
}

func (w *SnapshotWatcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			// Only writes and creates matter; atomic saves surface as creates.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("snapshot file changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("snapshot watch error", zap.Error(err))

		case <-w.stopChan:
			return
		}
	}
}

// schedule arms the debounce timer, restarting it while events keep coming
func (w *SnapshotWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

// Close stops watching. Safe to call more than once.
func (w *SnapshotWatcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
		<-w.done

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
	return err
}
