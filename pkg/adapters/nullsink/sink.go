// Package nullsink provides a no-op debug sink implementation.
package nullsink

import (
	"image"

	"github.com/user/framesource/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
// It discards all debug output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveCanvas does nothing.
func (s *Sink) SaveCanvas(tick int, img image.Image) error {
	return nil
}

// SaveSummaryJSON does nothing.
func (s *Sink) SaveSummaryJSON(data []byte) error {
	return nil
}

var _ ports.DebugSink = (*Sink)(nil)
