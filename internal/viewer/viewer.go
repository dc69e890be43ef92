// Package viewer runs the interactive skelview loop.
package viewer

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/skelbatch/internal/config"
	"github.com/Faultbox/skelbatch/internal/engine/input"
	"github.com/Faultbox/skelbatch/internal/engine/renderer"
	"github.com/Faultbox/skelbatch/internal/engine/texture"
	"github.com/Faultbox/skelbatch/internal/engine/window"
	"github.com/Faultbox/skelbatch/internal/logger"
	"github.com/Faultbox/skelbatch/internal/scenewatch"
	"github.com/Faultbox/skelbatch/internal/skeleton"
	"github.com/Faultbox/skelbatch/internal/stage"
	"github.com/Faultbox/skelbatch/pkg/formats"
)

// Viewer shows one scene file and reloads it when it changes.
type Viewer struct {
	cfg *config.Config
	log *zap.Logger

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	watch    *scenewatch.Watcher

	stage    *stage.Stage
	textures map[string]*renderer.Texture

	// opened receives paths picked in the file dialog.
	opened chan string

	running bool
	paused  bool
	speed   float32
}

// New opens the window and loads the configured scene.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:    cfg,
		log:    logger.Named("viewer"),
		speed:  cfg.Viewer.Speed,
		opened: make(chan string, 1),
	}

	var err error
	v.window, err = window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	clearColor, err := formats.ParseColor(cfg.Viewer.ClearColor)
	if err != nil {
		v.Close()
		return nil, err
	}

	// Renderer after window, since the GL context must exist.
	width, height := v.window.DrawableSize()
	v.renderer, err = renderer.New(renderer.Config{
		Width:      width,
		Height:     height,
		ClearColor: clearColor,
	})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.input = input.New()

	if err := v.load(); err != nil {
		v.Close()
		return nil, err
	}
	if err := v.stage.SetEffect(cfg.Viewer.Effect); err != nil {
		v.Close()
		return nil, err
	}

	v.startWatch()

	v.log.Info("viewer initialized", zap.String("scene", cfg.Viewer.Scene))
	return v, nil
}

// Run loops until the window is closed or quit is pressed.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := lastTime

	for v.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if v.input.Update() {
			v.running = false
			break
		}
		if w, h, ok := v.input.Resized(); ok {
			v.renderer.Resize(v.window.DrawableSize())
			v.log.Debug("window resized", zap.Int("width", w), zap.Int("height", h))
		}
		for _, a := range v.input.Actions() {
			v.handle(a)
		}

		select {
		case <-v.reloads():
			v.reload()
		case path := <-v.opened:
			v.open(path)
		default:
		}

		if v.paused {
			dt = 0
		}
		if err := v.stage.Step(dt * v.speed); err != nil {
			return fmt.Errorf("update error: %w", err)
		}

		v.renderer.Begin()
		if err := v.renderer.Batches().Render(v.stage.Mesh.Batches(), v.renderer.Projection()); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			stats := v.stage.Mesh.Stats()
			v.window.SetTitle(fmt.Sprintf("%s - %s - %d fps, %d batches, %d groups",
				v.cfg.Window.Title, v.stage.Scene.Name, frameCount, stats.Batches, stats.Groups))
			v.log.Debug("frame",
				zap.Int("fps", frameCount),
				zap.Int("parts", stats.Parts),
				zap.Int("vertices", stats.Vertices),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

// Close releases GPU resources and the window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.watch != nil {
		v.watch.Close()
	}
	v.unload()
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}

func (v *Viewer) handle(a input.Action) {
	switch a {
	case input.ActionReload:
		v.reload()
	case input.ActionOpen:
		v.openDialog()
	case input.ActionPause:
		v.paused = !v.paused
	case input.ActionNextEffect:
		if err := v.stage.NextEffect(); err != nil {
			v.log.Error("switching effect", zap.Error(err))
			return
		}
		v.log.Info("effect", zap.String("name", v.stage.Effect()))
	case input.ActionFaster:
		v.speed *= 2
	case input.ActionSlower:
		v.speed /= 2
	}
}

// reload replaces the stage with a fresh load of the scene file. On error
// the current stage stays.
func (v *Viewer) reload() {
	old, oldTextures := v.stage, v.textures
	effect := old.Effect()

	if err := v.load(); err != nil {
		v.log.Error("scene reload failed", zap.Error(err))
		v.stage, v.textures = old, oldTextures
		return
	}
	if err := v.stage.SetEffect(effect); err != nil {
		v.log.Warn("restoring effect", zap.Error(err))
	}

	old.Dispose()
	deleteTextures(oldTextures)
	v.log.Info("scene reloaded", zap.String("scene", v.cfg.Viewer.Scene))
}

func (v *Viewer) load() error {
	scene, err := formats.LoadSkeleton(v.cfg.Viewer.Scene)
	if err != nil {
		return err
	}

	textures := make(map[string]*renderer.Texture, len(scene.Textures))
	for _, def := range scene.Textures {
		img, err := texture.Load(def, filepath.Dir(v.cfg.Viewer.Scene))
		if err != nil {
			deleteTextures(textures)
			return err
		}
		tex, err := renderer.NewTexture(img, renderer.DefaultTextureOptions())
		if err != nil {
			deleteTextures(textures)
			return fmt.Errorf("texture %q: %w", def.Name, err)
		}
		textures[def.Name] = tex
	}

	st, err := stage.New(scene, func(name string) skeleton.Texture {
		if tex, ok := textures[name]; ok {
			return tex
		}
		return nil
	}, v.cfg.Batch)
	if err != nil {
		deleteTextures(textures)
		return err
	}

	v.stage, v.textures = st, textures
	return nil
}

func (v *Viewer) unload() {
	if v.stage != nil {
		v.stage.Dispose()
		v.stage = nil
	}
	deleteTextures(v.textures)
	v.textures = nil
}

func deleteTextures(textures map[string]*renderer.Texture) {
	for _, tex := range textures {
		tex.Delete()
	}
}
