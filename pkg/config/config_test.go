package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/framesource/pkg/adapters/smartdecoder"
	"github.com/user/framesource/pkg/framesource"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("expected 640x480, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS != 60 {
		t.Errorf("expected 60 fps, got %v", cfg.FPS)
	}
	if cfg.Decode.Policy != "skip" {
		t.Errorf("expected skip policy, got %s", cfg.Decode.Policy)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
source: clip.mp4
fps: 30
decode:
  policy: fail
  backend: native
snapshot:
  dir: ./debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Source != "clip.mp4" || cfg.FPS != 30 {
		t.Errorf("unexpected values: %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.Width != 640 || cfg.Snapshot.Every != 30 {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	opts, err := cfg.ToSourceOptions(nil, nil)
	if err != nil {
		t.Fatalf("ToSourceOptions failed: %v", err)
	}
	if opts.Policy != framesource.DecodeFailFast || opts.Backend != smartdecoder.BackendNative {
		t.Errorf("unexpected source options %+v", opts)
	}

	if got := cfg.ToPlayerOptions().SnapshotEvery; got != 30 {
		t.Errorf("expected snapshots every 30 ticks, got %d", got)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("fps: [1, 2"), 0644)

	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		edit func(*Config)
	}{
		{"no source", func(c *Config) { c.Source = "" }},
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"negative fps", func(c *Config) { c.FPS = -1 }},
		{"negative max frames", func(c *Config) { c.MaxFrames = -2 }},
		{"bad policy", func(c *Config) { c.Decode.Policy = "retry" }},
		{"bad backend", func(c *Config) { c.Decode.Backend = "gpu" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Source = "clip.mp4"
			tc.edit(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSnapshotsDisabledWithoutDir(t *testing.T) {
	cfg := Defaults()
	if got := cfg.ToPlayerOptions().SnapshotEvery; got != 0 {
		t.Errorf("expected no snapshots without a dir, got every %d", got)
	}
}

func TestConversions(t *testing.T) {
	cfg := Defaults()
	cfg.TimeoutMs = 1500
	cfg.MaxFrames = 10

	if cfg.Timeout() != 1500*time.Millisecond {
		t.Errorf("unexpected timeout %v", cfg.Timeout())
	}
	d := cfg.ToDriverOptions(nil)
	if d.FPS != 60 || d.MaxTicks != 10 {
		t.Errorf("unexpected driver options %+v", d)
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.Color{
		"#00ff00": color.RGBA{0, 255, 0, 255},
		"1A2b3C":  color.RGBA{0x1a, 0x2b, 0x3c, 255},
		"":        color.Black,
		"#fff":    color.Black,
		"#zz0000": color.Black,
	}
	for in, want := range cases {
		if got := ParseColor(in); got != want {
			t.Errorf("ParseColor(%q) = %v, want %v", in, got, want)
		}
	}
}
