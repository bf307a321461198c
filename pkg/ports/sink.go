package ports

import (
	"image"
)

// DebugSink receives intermediate playback output for inspection.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveCanvas saves a composed canvas for the given tick.
	SaveCanvas(tick int, img image.Image) error

	// SaveSummaryJSON saves the playback summary.
	SaveSummaryJSON(data []byte) error
}
