// Package frameconv converts decoded pictures to the fixed RGBA layout used
// for delivered frames.
package frameconv

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Converter normalizes images to a fixed size. A zero size adopts the size
// of the first converted image.
type Converter struct {
	width  int
	height int
	scaler xdraw.Scaler
}

// New returns a converter for width x height output.
func New(width, height int) *Converter {
	return &Converter{width: width, height: height, scaler: xdraw.CatmullRom}
}

// Size returns the output size, zero until known.
func (c *Converter) Size() (int, int) {
	return c.width, c.height
}

// Convert returns img as a freshly allocated *image.RGBA of the output size
// with its origin at (0, 0).
func (c *Converter) Convert(img image.Image) *image.RGBA {
	b := img.Bounds()
	if c.width <= 0 || c.height <= 0 {
		c.width, c.height = b.Dx(), b.Dy()
	}

	dst := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	if b.Dx() == c.width && b.Dy() == c.height {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	c.scaler.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
