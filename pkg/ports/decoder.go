// Package ports defines the interfaces between the frame source, its
// container and codec adapters, and the host that displays frames.
package ports

import (
	"image"
)

// Container identifies a media container format.
type Container string

const (
	ContainerMP4     Container = "mp4"
	ContainerIVF     Container = "ivf"
	ContainerUnknown Container = "unknown"
)

// StreamInfo describes the video track a session decodes.
type StreamInfo struct {
	Container  Container
	Codec      string // sample entry type or IVF FourCC, e.g. "avc1", "jpeg", "AV01"
	Width      int    // 0 when the container does not say
	Height     int
	FrameCount int     // number of samples in the track, 0 if unknown
	DurationMs int     // 0 if unknown
	FrameRate  float64 // nominal rate derived from the track, 0 if unknown
}

// VideoFrame represents a decoded video frame with timing information.
// The image is owned by the caller once returned.
type VideoFrame struct {
	Image       *image.RGBA
	TimestampMs int
	DurationMs  int
	Index       int // zero-based delivery index within the session
}

// Sample is one compressed access unit as stored in the container.
// TimestampMs is the presentation time; it can be negative for samples an
// edit list places before the start of the track.
type Sample struct {
	Data        []byte
	TimestampMs int
	DurationMs  int
	IsKeyframe  bool
	Number      int // 1-based sample number in the track
}

// Timing is the presentation timing of one sample.
type Timing struct {
	Number      int
	TimestampMs int
	DurationMs  int
}

// Timeline is implemented by demuxers that know the timing of every sample
// without reading the payloads. Entries are in decode order.
type Timeline interface {
	Timeline() []Timing
}

// Demuxer yields compressed samples of a single video track in decode order.
type Demuxer interface {
	// Info returns the track description.
	Info() StreamInfo

	// NextSample returns the next sample, or io.EOF after the last one.
	NextSample() (Sample, error)

	// Close releases the underlying reader.
	Close() error
}

// SampleDecoder decodes one compressed sample into a picture.
type SampleDecoder interface {
	DecodeSample(s Sample) (image.Image, error)
	Close() error
}

// FrameStream produces decoded frames in presentation order.
//
// Next returns io.EOF once the stream is drained. A frame that cannot be
// decoded is reported as a *DecodeError; the stream has moved past it and
// the next call continues with the following frame.
type FrameStream interface {
	Info() StreamInfo
	Next() (VideoFrame, error)
	Close() error
}
