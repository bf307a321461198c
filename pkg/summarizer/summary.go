// Package summarizer builds a human-readable report of a playback run.
package summarizer

import "time"

// Summary contains the data collected during one playback run.
type Summary struct {
	GeneratedAt time.Time

	Source   SourceInfo
	Playback PlaybackInfo
	Settings Settings
}

// SourceInfo describes the played video.
type SourceInfo struct {
	Path       string
	Container  string
	Codec      string
	Backend    string
	Width      int
	Height     int
	FrameCount int
	DurationMs int
}

// PlaybackInfo contains what the run achieved.
type PlaybackInfo struct {
	Ticks           int
	FramesShown     int
	FramesSkipped   int
	LastTimestampMs int
	ActualFPS       float64
	EndOfStream     bool
	Interrupted     bool
}

// Settings contains the run configuration.
type Settings struct {
	TargetFPS    float64
	CanvasWidth  int
	CanvasHeight int
	DecodePolicy string
	Backend      string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSource sets the source description.
func (b *Builder) WithSource(source SourceInfo) *Builder {
	b.summary.Source = source
	return b
}

// WithPlayback sets playback results.
func (b *Builder) WithPlayback(playback PlaybackInfo) *Builder {
	b.summary.Playback = playback
	return b
}

// WithSettings sets the run configuration.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
