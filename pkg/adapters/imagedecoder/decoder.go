// Package imagedecoder decodes intra-only image codecs (Motion JPEG and PNG)
// carried as individual container samples.
package imagedecoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/user/framesource/pkg/adapters/codecdetect"
	"github.com/user/framesource/pkg/ports"
)

// ErrEmptySample is returned for a sample without payload.
var ErrEmptySample = errors.New("imagedecoder: empty sample")

// Decoder implements ports.SampleDecoder for one image codec.
type Decoder struct {
	codec  codecdetect.Codec
	decode func(data []byte) (image.Image, error)
}

// New returns a decoder for codec, or ports.ErrUnsupportedFormat when the
// codec is not an image codec.
func New(codec codecdetect.Codec) (*Decoder, error) {
	d := &Decoder{codec: codec}
	switch codec {
	case codecdetect.CodecMJPEG:
		d.decode = func(data []byte) (image.Image, error) {
			return jpeg.Decode(bytes.NewReader(data))
		}
	case codecdetect.CodecPNG:
		d.decode = func(data []byte) (image.Image, error) {
			return png.Decode(bytes.NewReader(data))
		}
	default:
		return nil, fmt.Errorf("%w: imagedecoder cannot decode %s", ports.ErrUnsupportedFormat, codec)
	}
	return d, nil
}

// Codec returns the codec handled by d.
func (d *Decoder) Codec() codecdetect.Codec {
	return d.codec
}

// DecodeSample decodes one sample into an image.
func (d *Decoder) DecodeSample(s ports.Sample) (image.Image, error) {
	if len(s.Data) == 0 {
		return nil, ErrEmptySample
	}
	img, err := d.decode(s.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.codec, err)
	}
	return img, nil
}

// Close is a no-op.
func (d *Decoder) Close() error {
	return nil
}

var _ ports.SampleDecoder = (*Decoder)(nil)
