// Package av1decoder decodes AV1 samples with libaom. The cgo implementation
// is compiled with the aom build tag; other builds report ErrUnavailable and
// AV1 falls back to the ffmpeg backend.
package av1decoder

import "errors"

var (
	// ErrUnavailable is returned by New when libaom is not linked in.
	ErrUnavailable = errors.New("av1decoder: built without libaom (use -tags aom)")

	// ErrInit is returned when the libaom context cannot be created.
	ErrInit = errors.New("av1decoder: init failed")

	// ErrEmptySample is returned for a sample without payload.
	ErrEmptySample = errors.New("av1decoder: empty sample")

	// ErrNoFrame is returned when a sample produced no picture.
	ErrNoFrame = errors.New("av1decoder: no frame available")
)
