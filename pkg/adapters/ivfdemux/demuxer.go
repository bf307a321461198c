// Package ivfdemux reads frames from IVF files.
package ivfdemux

import (
	"errors"
	"fmt"
	"io"

	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/user/framesource/pkg/ports"
)

// Demuxer implements ports.Demuxer for IVF files.
type Demuxer struct {
	reader  *ivfreader.IVFReader
	header  *ivfreader.IVFFileHeader
	closer  io.Closer
	info    ports.StreamInfo
	number  int
	lastDur int

	// pending holds the frame read ahead to compute the previous duration.
	pending    *ports.Sample
	pendingErr error
}

// New parses the IVF file header. When r is an io.Closer it is closed by Close.
func New(r io.Reader) (*Demuxer, error) {
	reader, header, err := ivfreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse ivf header: %v", ports.ErrUnsupportedFormat, err)
	}
	if header.TimebaseDenominator == 0 || header.TimebaseNumerator == 0 {
		return nil, fmt.Errorf("%w: ivf timebase is zero", ports.ErrUnsupportedFormat)
	}

	d := &Demuxer{
		reader: reader,
		header: header,
		info: ports.StreamInfo{
			Container:  ports.ContainerIVF,
			Codec:      header.FourCC,
			Width:      int(header.Width),
			Height:     int(header.Height),
			FrameCount: int(header.NumFrames),
			FrameRate:  float64(header.TimebaseDenominator) / float64(header.TimebaseNumerator),
		},
	}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d, nil
}

// Info returns the stream description.
func (d *Demuxer) Info() ports.StreamInfo {
	return d.info
}

// NextSample returns the next frame, or io.EOF.
func (d *Demuxer) NextSample() (ports.Sample, error) {
	var cur ports.Sample
	if d.pending != nil {
		cur = *d.pending
		d.pending = nil
	} else {
		if d.pendingErr != nil {
			return ports.Sample{}, d.pendingErr
		}
		s, err := d.parse()
		if err != nil {
			return ports.Sample{}, err
		}
		cur = s
	}

	// IVF frames carry no duration; it is the gap to the following frame.
	next, err := d.parse()
	switch {
	case err == nil:
		cur.DurationMs = next.TimestampMs - cur.TimestampMs
		d.lastDur = cur.DurationMs
		d.pending = &next
	default:
		d.pendingErr = err
		switch {
		case d.lastDur > 0:
			cur.DurationMs = d.lastDur
		case d.info.FrameRate > 0:
			cur.DurationMs = int(1000 / d.info.FrameRate)
		}
	}
	return cur, nil
}

func (d *Demuxer) parse() (ports.Sample, error) {
	payload, frameHeader, err := d.reader.ParseNextFrame()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ports.Sample{}, io.EOF
		}
		return ports.Sample{}, fmt.Errorf("%w: ivf frame %d: %v", ports.ErrIO, d.number+1, err)
	}
	d.number++
	return ports.Sample{
		Data:        payload,
		TimestampMs: d.toMs(frameHeader.Timestamp),
		IsKeyframe:  true,
		Number:      d.number,
	}, nil
}

func (d *Demuxer) toMs(ts uint64) int {
	return int(ts * 1000 * uint64(d.header.TimebaseNumerator) / uint64(d.header.TimebaseDenominator))
}

// Close releases the reader.
func (d *Demuxer) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
