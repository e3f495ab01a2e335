package sessions

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ActiveWatcher signals when the scratch file disappears, i.e. the session
// was stopped from another process.
type ActiveWatcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	path     string
	debounce time.Duration
	ended    chan struct{}
	endOnce  sync.Once
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	timer    *time.Timer
}

// NewActiveWatcher watches the directory containing path
func NewActiveWatcher(path string, logger zerolog.Logger) (*ActiveWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// the file itself is renamed away by stop, so watch its directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	aw := &ActiveWatcher{
		watcher:  watcher,
		logger:   logger,
		path:     filepath.Clean(path),
		debounce: 200 * time.Millisecond,
		ended:    make(chan struct{}),
		stopCh:   make(chan struct{}),
	}

	go aw.run()

	return aw, nil
}

// Ended is closed once the scratch file is gone
func (aw *ActiveWatcher) Ended() <-chan struct{} {
	return aw.ended
}

// Stop stops the watcher
func (aw *ActiveWatcher) Stop() error {
	var err error
	aw.stopOnce.Do(func() {
		close(aw.stopCh)
		aw.mu.Lock()
		if aw.timer != nil {
			aw.timer.Stop()
		}
		aw.mu.Unlock()
		err = aw.watcher.Close()
	})
	return err
}

// run processes file system events
func (aw *ActiveWatcher) run() {
	for {
		select {
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != aw.path {
				continue
			}

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				aw.logger.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("scratch file change detected")
				aw.scheduleCheck()
			}

		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			aw.logger.Error().Err(err).Msg("file watcher error")

		case <-aw.stopCh:
			return
		}
	}
}

// scheduleCheck debounces the existence check; a failed stop renames the
// scratch file straight back.
func (aw *ActiveWatcher) scheduleCheck() {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if aw.timer != nil {
		aw.timer.Stop()
	}
	aw.timer = time.AfterFunc(aw.debounce, aw.check)
}

func (aw *ActiveWatcher) check() {
	if _, err := os.Stat(aw.path); errors.Is(err, fs.ErrNotExist) {
		aw.endOnce.Do(func() {
			aw.logger.Debug().Str("path", aw.path).Msg("active session ended")
			close(aw.ended)
		})
	}
}
