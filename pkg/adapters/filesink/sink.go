// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/framesource/pkg/ports"
)

// Sink saves composed canvases and the playback summary under a directory.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveCanvas writes frames/tick-NNNNN.png.
func (s *Sink) SaveCanvas(tick int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("tick-%05d.png", tick))
	return s.fs.WriteFile(path, data)
}

// SaveSummaryJSON writes summary.json.
func (s *Sink) SaveSummaryJSON(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "summary.json"), data)
}

var _ ports.DebugSink = (*Sink)(nil)
