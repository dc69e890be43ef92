// Package scenewatch reports when a scene file changes on disk.
//
// The directory holding the file is watched rather than the file itself
// so that editors which save by renaming a temporary file are noticed.
// Bursts of events are coalesced into one reload after a short quiet
// period.
package scenewatch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/skelbatch/internal/logger"
)

// DefaultDebounce is the quiet period before a reload is reported.
const DefaultDebounce = 100 * time.Millisecond

// Watcher delivers reload notifications for one file.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
	log      *zap.Logger

	reloads chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// New starts watching path. The file itself need not exist yet, but its
// directory must.
func New(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("scenewatch: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("scenewatch: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("scenewatch: watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		fs:       fsw,
		path:     abs,
		debounce: debounce,
		log:      logger.Named("scenewatch"),
		reloads:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()

	w.log.Debug("watching scene", zap.String("path", abs))
	return w, nil
}

// Reloads receives one value per settled burst of changes. Pending
// notifications are coalesced, so a slow reader sees at most one.
func (w *Watcher) Reloads() <-chan struct{} {
	return w.reloads
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher and waits for its goroutine. Safe to call more
// than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("scene changed", zap.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			select {
			case w.reloads <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
