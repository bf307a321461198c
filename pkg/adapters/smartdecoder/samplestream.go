package smartdecoder

import (
	"errors"
	"sync"

	"github.com/user/framesource/pkg/adapters/av1decoder"
	"github.com/user/framesource/pkg/adapters/frameconv"
	"github.com/user/framesource/pkg/ports"
)

// SampleStream decodes demuxed samples one at a time with an in-process
// decoder.
type SampleStream struct {
	demux   ports.Demuxer
	decoder ports.SampleDecoder
	conv    *frameconv.Converter
	logger  ports.Logger
	index   int

	closeOnce sync.Once
	closeErr  error
}

// NewSampleStream takes ownership of demux and decoder.
func NewSampleStream(demux ports.Demuxer, decoder ports.SampleDecoder, logger ports.Logger) *SampleStream {
	info := demux.Info()
	return &SampleStream{
		demux:   demux,
		decoder: decoder,
		conv:    frameconv.New(info.Width, info.Height),
		logger:  logger,
	}
}

// Info returns the demuxer's stream description.
func (s *SampleStream) Info() ports.StreamInfo {
	return s.demux.Info()
}

// Next decodes the next sample. Read errors from the demuxer are returned
// as-is; decoder failures become *ports.DecodeError.
func (s *SampleStream) Next() (ports.VideoFrame, error) {
	for {
		sample, err := s.demux.NextSample()
		if err != nil {
			return ports.VideoFrame{}, err
		}

		img, err := s.decoder.DecodeSample(sample)
		if errors.Is(err, av1decoder.ErrNoFrame) {
			continue
		}
		if err != nil {
			return ports.VideoFrame{}, &ports.DecodeError{
				Number:      sample.Number,
				TimestampMs: sample.TimestampMs,
				Err:         err,
			}
		}

		frame := ports.VideoFrame{
			Image:       s.conv.Convert(img),
			TimestampMs: sample.TimestampMs,
			DurationMs:  sample.DurationMs,
			Index:       s.index,
		}
		s.index++
		s.logger.Debug("Decoded frame %d at %d ms", sample.Number, sample.TimestampMs)
		return frame, nil
	}
}

// Close releases the decoder and the demuxer.
func (s *SampleStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(s.decoder.Close(), s.demux.Close())
	})
	return s.closeErr
}

var _ ports.FrameStream = (*SampleStream)(nil)
