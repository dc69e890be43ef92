package viewer

import (
	"errors"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/skelbatch/internal/scenewatch"
)

// openDialog shows a native file picker without blocking the frame loop.
// The pick is delivered on v.opened and applied on the main thread, where
// GL calls must happen.
func (v *Viewer) openDialog() {
	go func() {
		path, err := dialog.File().
			Filter("Scene files", "yaml", "yml").
			Filter("All Files", "*").
			Title("Open Scene").
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				v.log.Warn("file dialog", zap.Error(err))
			}
			return
		}
		select {
		case v.opened <- path:
		default:
		}
	}()
}

// open switches to another scene file. The current scene stays when the
// new one fails to load.
func (v *Viewer) open(path string) {
	prev := v.cfg.Viewer.Scene
	v.cfg.Viewer.Scene = path

	before := v.stage
	v.reload()
	if v.stage == before {
		v.cfg.Viewer.Scene = prev
		return
	}
	v.startWatch()
}

// startWatch watches the current scene file, replacing any previous
// watcher.
func (v *Viewer) startWatch() {
	if v.watch != nil {
		v.watch.Close()
		v.watch = nil
	}
	if !v.cfg.Viewer.Watch {
		return
	}
	w, err := scenewatch.New(v.cfg.Viewer.Scene, scenewatch.DefaultDebounce)
	if err != nil {
		v.log.Warn("scene watching disabled", zap.Error(err))
		return
	}
	v.watch = w
}

// reloads is nil, and so never ready, when watching is off.
func (v *Viewer) reloads() <-chan struct{} {
	if v.watch == nil {
		return nil
	}
	return v.watch.Reloads()
}
