// Package config handles viewer and tool configuration.
//
// Values are layered: Default() < YAML file < command line flags.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/skelbatch/internal/batch"
	"github.com/Faultbox/skelbatch/internal/logger"
	"github.com/Faultbox/skelbatch/pkg/formats"
)

var ErrInvalidConfig = errors.New("invalid config")

// Vertex effects selectable in the viewer.
const (
	EffectNone   = "none"
	EffectJitter = "jitter"
	EffectSwirl  = "swirl"
	EffectTint   = "tint"
)

// Effects lists the selectable effects in cycling order.
var Effects = []string{EffectNone, EffectJitter, EffectSwirl, EffectTint}

// Config holds all settings.
type Config struct {
	Batch   BatchConfig   `yaml:"batch"`
	Window  WindowConfig  `yaml:"window"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Logging LoggingConfig `yaml:"logging"`
}

// BatchConfig holds frame assembly settings.
type BatchConfig struct {
	MaxVertices         int     `yaml:"max_vertices"`
	ZOffset             float32 `yaml:"z_offset"`
	AdvanceZOnEmptyClip bool    `yaml:"advance_z_on_empty_clip"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// ViewerConfig holds skelview settings.
type ViewerConfig struct {
	Scene      string  `yaml:"scene"`
	Watch      bool    `yaml:"watch"`
	Effect     string  `yaml:"effect"`
	ClearColor string  `yaml:"clear_color"`
	Speed      float32 `yaml:"speed"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Batch: BatchConfig{
			MaxVertices: batch.MaxVertices,
			ZOffset:     0.1,
		},
		Window: WindowConfig{
			Title:  "skelview",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Viewer: ViewerConfig{
			Scene:      "scenes/demo.yaml",
			Watch:      true,
			Effect:     EffectNone,
			ClearColor: "202428ff",
			Speed:      1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Batch.MaxVertices < 0 || c.Batch.MaxVertices > batch.MaxVertices {
		return fmt.Errorf("%w: batch.max_vertices %d outside 0..%d", ErrInvalidConfig, c.Batch.MaxVertices, batch.MaxVertices)
	}
	if c.Batch.ZOffset < 0 {
		return fmt.Errorf("%w: batch.z_offset %v is negative", ErrInvalidConfig, c.Batch.ZOffset)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	switch c.Viewer.Effect {
	case "", EffectNone, EffectJitter, EffectSwirl, EffectTint:
	default:
		return fmt.Errorf("%w: viewer.effect %q", ErrInvalidConfig, c.Viewer.Effect)
	}
	if _, err := formats.ParseColor(c.Viewer.ClearColor); err != nil {
		return fmt.Errorf("%w: viewer.clear_color: %w", ErrInvalidConfig, err)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	return nil
}
