//go:build !aom

package av1decoder

import (
	"image"

	"github.com/user/framesource/pkg/ports"
)

// Available reports whether this build links libaom.
func Available() bool {
	return false
}

// Decoder is a placeholder when libaom is not linked in.
type Decoder struct{}

// New always fails with ErrUnavailable.
func New() (*Decoder, error) {
	return nil, ErrUnavailable
}

func (d *Decoder) DecodeSample(s ports.Sample) (image.Image, error) {
	return nil, ErrUnavailable
}

func (d *Decoder) Close() error {
	return nil
}

var _ ports.SampleDecoder = (*Decoder)(nil)
