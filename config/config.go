// Package config loads the renderer's TOML configuration.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as a string ("16ms", "2s") in TOML.
// Zero means no timeout.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "parse duration %q", text)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Window   Window   `toml:"window"`
	Render   Render   `toml:"render"`
	Pacing   Pacing   `toml:"pacing"`
	Headless Headless `toml:"headless"`
	Log      Log      `toml:"log"`
}

type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type Render struct {
	ClearColor mgl32.Vec4 `toml:"clear_color"`
	// VertexShader and FragmentShader name SPIR-V files that replace the
	// shaders built into the binary. Empty keeps the built-in ones.
	VertexShader   string     `toml:"vertex_shader"`
	FragmentShader string     `toml:"fragment_shader"`
	Validation     bool       `toml:"validation"`
}

type Pacing struct {
	// FramesInFlight is the size of the recording ring.
	FramesInFlight int `toml:"frames_in_flight"`
	// WaitTimeout bounds each timeline wait. Zero waits forever.
	WaitTimeout Duration `toml:"wait_timeout"`
}

// Headless configures the software GPU used when no window is opened.
type Headless struct {
	Frames  int      `toml:"frames"`
	Images  int      `toml:"images"`
	Latency Duration `toml:"latency"`
}

type Log struct {
	Level slog.Level `toml:"level"`
}

func Default() Config {
	return Config{
		Window: Window{
			Title:  "A fantastic window!",
			Width:  1440,
			Height: 900,
		},
		Render: Render{
			ClearColor: mgl32.Vec4{0, 0, 0, 0},
			Validation: true,
		},
		Pacing: Pacing{
			FramesInFlight: 2,
		},
		Headless: Headless{
			Frames:  120,
			Images:  3,
			Latency: Duration{4 * time.Millisecond},
		},
		Log: Log{
			Level: slog.LevelInfo,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}

	cfg, err = Parse(data)
	if err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, errors.Wrap(err, "decode toml")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Pacing.FramesInFlight < 1 {
		return errors.Newf("pacing.frames_in_flight must be at least 1, got %d", c.Pacing.FramesInFlight)
	}
	if c.Pacing.WaitTimeout.Duration < 0 {
		return errors.Newf("pacing.wait_timeout must not be negative, got %s", c.Pacing.WaitTimeout)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Headless.Frames < 0 {
		return errors.Newf("headless.frames must not be negative, got %d", c.Headless.Frames)
	}
	if c.Headless.Images < 1 {
		return errors.Newf("headless.images must be at least 1, got %d", c.Headless.Images)
	}
	return nil
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
