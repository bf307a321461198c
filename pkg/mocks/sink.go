package mocks

import (
	"image"
	"sync"

	"github.com/user/framesource/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Canvases    map[int]image.Image
	SummaryJSON []byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:  enabled,
		Canvases: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveCanvas(tick int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Canvases[tick] = img
	return nil
}

func (m *DebugSink) SaveSummaryJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummaryJSON = data
	return nil
}

// CanvasCount returns the number of saved canvases.
func (m *DebugSink) CanvasCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Canvases)
}

var _ ports.DebugSink = (*DebugSink)(nil)
