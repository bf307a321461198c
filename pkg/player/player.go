// Package player is the headless playback sketch: it opens a video, draws one
// frame per tick onto a canvas with an FPS overlay and signals completion
// when the video has been shown to the end.
package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/user/framesource/pkg/adapters/logger"
	"github.com/user/framesource/pkg/adapters/nullsink"
	"github.com/user/framesource/pkg/adapters/smartdecoder"
	"github.com/user/framesource/pkg/completion"
	"github.com/user/framesource/pkg/framesource"
	"github.com/user/framesource/pkg/lifecycle"
	"github.com/user/framesource/pkg/ports"
)

// FrameSource is the part of *framesource.Source the sketch uses.
type FrameSource interface {
	Read() (ports.VideoFrame, bool, error)
	Close() error
	Info() ports.StreamInfo
}

// Opener opens the video at path.
type Opener func(path string) (FrameSource, error)

// SourceOpener returns an Opener backed by framesource.Open.
func SourceOpener(opts framesource.Options) Opener {
	return func(path string) (FrameSource, error) {
		src, err := framesource.Open(path, opts)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

// Options configures the sketch.
type Options struct {
	Path   string
	Width  int
	Height int

	Background color.Color
	TextColor  color.Color
	FontPath   string
	FontSize   float64

	// SnapshotEvery saves every Nth canvas to the debug sink. Zero saves none.
	SnapshotEvery int
}

// DefaultOptions returns the 640x480 black canvas with a green overlay.
func DefaultOptions() Options {
	return Options{
		Width:      640,
		Height:     480,
		Background: color.Black,
		TextColor:  color.RGBA{0, 255, 0, 255},
		FontSize:   14,
	}
}

// Summary describes a finished playback.
type Summary struct {
	Path            string  `json:"path"`
	Container       string  `json:"container"`
	Codec           string  `json:"codec"`
	Backend         string  `json:"backend,omitempty"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameCount      int     `json:"frameCount"`
	DurationMs      int     `json:"durationMs"`
	Ticks           int     `json:"ticks"`
	FramesShown     int     `json:"framesShown"`
	FramesSkipped   int     `json:"framesSkipped"`
	LastTimestampMs int     `json:"lastTimestampMs"`
	FPS             float64 `json:"fps"`
	EndOfStream     bool    `json:"endOfStream"`
}

// Sketch implements lifecycle.Sketch.
type Sketch struct {
	opts     Options
	open     Opener
	renderer ports.Renderer
	sink     ports.DebugSink
	signal   *completion.Signal
	logger   ports.Logger

	source  FrameSource
	canvas  ports.Canvas
	last    *image.RGBA
	summary Summary
}

// New creates a sketch. sink and log may be nil.
func New(opts Options, open Opener, renderer ports.Renderer, sink ports.DebugSink, signal *completion.Signal, log ports.Logger) *Sketch {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Background == nil {
		opts.Background = def.Background
	}
	if opts.TextColor == nil {
		opts.TextColor = def.TextColor
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if sink == nil {
		sink = nullsink.New()
	}
	if log == nil {
		log = logger.NewNoop()
	}
	return &Sketch{
		opts:     opts,
		open:     open,
		renderer: renderer,
		sink:     sink,
		signal:   signal,
		logger:   log.WithComponent("player"),
		summary:  Summary{Path: opts.Path},
	}
}

// OnInit opens the video and creates the canvas.
func (s *Sketch) OnInit(ctx context.Context) error {
	src, err := s.open(s.opts.Path)
	if err != nil {
		s.logger.Error("Failed to open %s: %s", s.opts.Path, err)
		return err
	}
	s.source = src

	info := src.Info()
	s.summary.Container = string(info.Container)
	s.summary.Codec = info.Codec
	s.summary.Width = info.Width
	s.summary.Height = info.Height
	s.summary.FrameCount = info.FrameCount
	s.summary.DurationMs = info.DurationMs
	if b, ok := src.(interface{ Backend() smartdecoder.Info }); ok {
		s.summary.Backend = string(b.Backend().Backend)
	}

	s.canvas = s.renderer.CreateCanvas(s.opts.Width, s.opts.Height, s.opts.Background)
	return nil
}

// OnFrame reads the next frame and redraws the canvas. When no new frame is
// available the previous one is drawn again. It returns
// lifecycle.ErrFinished on the tick that reaches end of stream.
func (s *Sketch) OnFrame(ctx context.Context, tick lifecycle.Tick) error {
	s.summary.Ticks = tick.Number + 1
	if tick.Elapsed > 0 {
		s.summary.FPS = float64(tick.Number) / tick.Elapsed.Seconds()
	}

	frame, ok, err := s.source.Read()
	if err != nil {
		var decErr *framesource.DecodeError
		if errors.As(err, &decErr) {
			s.logger.Error("Failed to decode frame: %s", err)
		}
		return err
	}
	if ok {
		s.last = frame.Image
		s.summary.FramesShown++
		s.summary.LastTimestampMs = frame.TimestampMs
	}

	s.canvas.Clear(s.opts.Background)
	if s.last != nil {
		s.canvas.DrawImageScaled(s.last, 0, 0, s.opts.Width, s.opts.Height)
	}
	s.canvas.DrawText(fmt.Sprintf("FPS: %.0f", s.summary.FPS), 20, 20, ports.TextStyle{
		FontSize: s.opts.FontSize,
		FontPath: s.opts.FontPath,
		Color:    s.opts.TextColor,
	})

	if s.sink.Enabled() && s.opts.SnapshotEvery > 0 && tick.Number%s.opts.SnapshotEvery == 0 {
		if err := s.sink.SaveCanvas(tick.Number, s.canvas.ToImage()); err != nil {
			s.logger.Warn("Failed to save snapshot: %s", err)
		} else {
			s.logger.Debug("Snapshot saved for tick %d", tick.Number)
		}
	}

	if !ok {
		s.summary.EndOfStream = true
		return lifecycle.ErrFinished
	}
	return nil
}

// OnShutdown closes the video, writes the summary and fires the completion
// signal.
func (s *Sketch) OnShutdown() error {
	var err error
	if s.source != nil {
		if stats, ok := s.source.(interface{ Stats() framesource.Stats }); ok {
			s.summary.FramesSkipped = stats.Stats().Skipped
		}
		if err = s.source.Close(); err != nil {
			s.logger.Error("Failed to close session: %s", err)
		}
	}

	if s.sink.Enabled() {
		if data, jerr := json.MarshalIndent(s.summary, "", "  "); jerr == nil {
			if serr := s.sink.SaveSummaryJSON(data); serr != nil {
				s.logger.Warn("Failed to save snapshot: %s", serr)
			}
		}
	}

	if s.signal != nil {
		s.signal.FireWithError(err)
	}
	return err
}

// Canvas returns the canvas drawn on, nil before OnInit.
func (s *Sketch) Canvas() ports.Canvas {
	return s.canvas
}

// Summary returns playback counters.
func (s *Sketch) Summary() Summary {
	return s.summary
}

var _ lifecycle.Sketch = (*Sketch)(nil)
