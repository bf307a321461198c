// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/framesource/pkg/adapters/smartdecoder"
	"github.com/user/framesource/pkg/framesource"
	"github.com/user/framesource/pkg/lifecycle"
	"github.com/user/framesource/pkg/player"
	"github.com/user/framesource/pkg/ports"
)

// Config represents the full configuration for a playback run.
type Config struct {
	// Input
	Source string `yaml:"source"`

	// Canvas
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Background string  `yaml:"background"`
	TextColor  string  `yaml:"text_color"`
	FontPath   string  `yaml:"font_path"`
	FontSize   float64 `yaml:"font_size"`

	// Playback
	FPS       float64 `yaml:"fps"`
	MaxFrames int     `yaml:"max_frames"`
	TimeoutMs int     `yaml:"timeout_ms"`

	// Decoding
	Decode DecodeConfig `yaml:"decode"`

	// Debug
	Snapshot SnapshotConfig `yaml:"snapshot"`
	LogLevel string         `yaml:"log_level"`
}

// DecodeConfig selects the decoder and the corrupt-frame policy.
type DecodeConfig struct {
	Policy     string `yaml:"policy"`  // skip | fail
	Backend    string `yaml:"backend"` // auto | native | ffmpeg
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// SnapshotConfig controls saving composed canvases.
type SnapshotConfig struct {
	Dir   string `yaml:"dir"`
	Every int    `yaml:"every"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Width:      640,
		Height:     480,
		Background: "#000000",
		TextColor:  "#00ff00",
		FontSize:   14,

		FPS: 60,

		Decode: DecodeConfig{
			Policy:  "skip",
			Backend: string(smartdecoder.BackendAuto),
		},

		Snapshot: SnapshotConfig{
			Every: 30,
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("no source video given")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", c.Width, c.Height)
	}
	if c.FPS < 0 {
		return fmt.Errorf("invalid fps %v", c.FPS)
	}
	if c.MaxFrames < 0 {
		return fmt.Errorf("invalid max_frames %d", c.MaxFrames)
	}
	if _, err := framesource.ParseDecodePolicy(c.Decode.Policy); err != nil {
		return err
	}
	if _, err := smartdecoder.ParseBackend(c.Decode.Backend); err != nil {
		return err
	}
	return nil
}

// Timeout returns the session timeout, zero for none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ToSourceOptions converts the decoding settings to framesource.Options.
func (c Config) ToSourceOptions(fs ports.FileSystem, logger ports.Logger) (framesource.Options, error) {
	policy, err := framesource.ParseDecodePolicy(c.Decode.Policy)
	if err != nil {
		return framesource.Options{}, err
	}
	backend, err := smartdecoder.ParseBackend(c.Decode.Backend)
	if err != nil {
		return framesource.Options{}, err
	}
	return framesource.Options{
		Policy:     policy,
		Backend:    backend,
		FFmpegPath: c.Decode.FFmpegPath,
		FileSystem: fs,
		Logger:     logger,
	}, nil
}

// ToPlayerOptions converts the canvas settings to player.Options.
func (c Config) ToPlayerOptions() player.Options {
	opts := player.Options{
		Path:       c.Source,
		Width:      c.Width,
		Height:     c.Height,
		Background: ParseColor(c.Background),
		TextColor:  ParseColor(c.TextColor),
		FontPath:   c.FontPath,
		FontSize:   c.FontSize,
	}
	if c.Snapshot.Dir != "" {
		opts.SnapshotEvery = c.Snapshot.Every
	}
	return opts
}

// ToDriverOptions converts the pacing settings to lifecycle.Options.
func (c Config) ToDriverOptions(logger ports.Logger) lifecycle.Options {
	return lifecycle.Options{
		FPS:      c.FPS,
		MaxTicks: c.MaxFrames,
		Logger:   logger,
	}
}

// ParseColor parses "#rrggbb" or "rrggbb". Anything else yields black.
func ParseColor(hex string) color.Color {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.Black
	}

	var rgb [3]uint8
	for i := range rgb {
		hi, ok1 := hexValue(hex[2*i])
		lo, ok2 := hexValue(hex[2*i+1])
		if !ok1 || !ok2 {
			return color.Black
		}
		rgb[i] = hi<<4 | lo
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
