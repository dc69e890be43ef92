package config

import "flag"

// Flags are the command line overrides shared by the binaries.
type Flags struct {
	fs *flag.FlagSet

	config      *string
	debug       *bool
	scene       *string
	watch       *bool
	effect      *string
	windowed    *bool
	fullscreen  *bool
	width       *int
	height      *int
	maxVertices *int
	logFile     *string
}

// RegisterFlags defines the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:          fs,
		config:      fs.String("config", "", "Path to config file"),
		debug:       fs.Bool("debug", false, "Enable debug logging"),
		scene:       fs.String("scene", "", "Scene file to load"),
		watch:       fs.Bool("watch", false, "Reload the scene when the file changes"),
		effect:      fs.String("effect", "", "Vertex effect: none, jitter, swirl or tint"),
		windowed:    fs.Bool("windowed", false, "Run in windowed mode"),
		fullscreen:  fs.Bool("fullscreen", false, "Run in fullscreen mode"),
		width:       fs.Int("width", 0, "Window width"),
		height:      fs.Int("height", 0, "Window height"),
		maxVertices: fs.Int("max-vertices", 0, "Vertex capacity per batch"),
		logFile:     fs.String("log-file", "", "Write logs to this file"),
	}
}

// ConfigPath returns the explicit config path given with -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply copies every flag set on the command line into cfg.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	set := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if set["scene"] {
		cfg.Viewer.Scene = *f.scene
	}
	if set["watch"] {
		cfg.Viewer.Watch = *f.watch
	}
	if set["effect"] {
		cfg.Viewer.Effect = *f.effect
	}
	if *f.windowed {
		cfg.Window.Fullscreen = false
	}
	if *f.fullscreen {
		cfg.Window.Fullscreen = true
	}
	if *f.width > 0 {
		cfg.Window.Width = *f.width
	}
	if *f.height > 0 {
		cfg.Window.Height = *f.height
	}
	if set["max-vertices"] {
		cfg.Batch.MaxVertices = *f.maxVertices
	}
	if set["log-file"] {
		cfg.Logging.LogFile = *f.logFile
	}
}
