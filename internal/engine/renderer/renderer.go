// Package renderer draws skeleton batches with OpenGL 4.1 core.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/skelbatch/internal/logger"
	"github.com/Faultbox/skelbatch/internal/skeleton"
	"github.com/Faultbox/skelbatch/pkg/math"
)

// depthRange bounds the z values the projection keeps. Parts are offset
// by a small step each, so this covers many thousands of parts.
const depthRange = 10000

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	ClearColor skeleton.Color
}

// Renderer owns the GL state of a frame.
type Renderer struct {
	config  Config
	batches *BatchRenderer
}

// New initializes OpenGL and compiles the batch program.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	log := logger.Named("renderer")
	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Disable(gl.DEPTH_TEST)
	c := cfg.ClearColor
	gl.ClearColor(c.R, c.G, c.B, c.A)

	batches, err := NewBatchRenderer(log)
	if err != nil {
		return nil, err
	}

	r := &Renderer{config: cfg, batches: batches}
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	r.batches.Close()
}

// Batches returns the batch renderer.
func (r *Renderer) Batches() *BatchRenderer {
	return r.batches
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Projection maps world units to pixels with the origin at the center of
// the viewport and y up.
func (r *Renderer) Projection() math.Mat4 {
	return Projection(r.config.Width, r.config.Height)
}

// Projection returns the centered pixel projection for a viewport.
func Projection(width, height int) math.Mat4 {
	hw, hh := float32(width)/2, float32(height)/2
	return math.Ortho(-hw, hw, -hh, hh, -depthRange, depthRange)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT)
}
