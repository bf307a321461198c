// Package ggrenderer provides a renderer implementation using the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/user/framesource/pkg/ports"
)

// Renderer implements ports.Renderer using the gg library.
type Renderer struct {
	mu    sync.Mutex
	faces map[faceKey]font.Face
	mono  *truetype.Font
}

type faceKey struct {
	path string
	size float64
}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{faces: make(map[faceKey]font.Face)}
}

// CreateCanvas creates a new drawing canvas.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc, renderer: r}
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		opts := &jpeg.Options{Quality: quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// face returns a cached font face. An empty path uses the embedded Go Mono
// font; a path that fails to load falls back to it too.
func (r *Renderer) face(path string, size float64) (font.Face, error) {
	if size <= 0 {
		size = 16
	}
	key := faceKey{path: path, size: size}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f, nil
	}

	var (
		f   font.Face
		err error
	)
	if path != "" {
		f, err = gg.LoadFontFace(path, size)
	}
	if f == nil {
		if r.mono == nil {
			parsed, perr := truetype.Parse(gomono.TTF)
			if perr != nil {
				return nil, fmt.Errorf("parse built-in font: %w", perr)
			}
			r.mono = parsed
		}
		f = truetype.NewFace(r.mono, &truetype.Options{Size: size})
	}
	r.faces[key] = f
	return f, err
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas implements ports.Canvas using gg.Context.
type Canvas struct {
	dc       *gg.Context
	renderer *Renderer
}

// Clear fills the canvas with col.
func (c *Canvas) Clear(col color.Color) {
	c.dc.SetColor(col)
	c.dc.Clear()
}

// DrawImageScaled draws an image scaled to the specified dimensions.
func (c *Canvas) DrawImageScaled(img image.Image, x, y, width, height int) {
	bounds := img.Bounds()
	if bounds.Empty() || width <= 0 || height <= 0 {
		return
	}

	c.dc.Push()
	defer c.dc.Pop()

	scaleX := float64(width) / float64(bounds.Dx())
	scaleY := float64(height) / float64(bounds.Dy())

	c.dc.Translate(float64(x), float64(y))
	c.dc.Scale(scaleX, scaleY)
	c.dc.DrawImage(img, -bounds.Min.X, -bounds.Min.Y)
}

// DrawText draws text with its baseline at (x, y).
func (c *Canvas) DrawText(text string, x, y int, style ports.TextStyle) {
	// A missing font file still yields the built-in face.
	if f, _ := c.renderer.face(style.FontPath, style.FontSize); f != nil {
		c.dc.SetFontFace(f)
	}
	col := style.Color
	if col == nil {
		col = color.White
	}
	c.dc.SetColor(col)
	c.dc.DrawString(text, float64(x), float64(y))
}

// ToImage returns the canvas as an image.Image.
func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

var _ ports.Canvas = (*Canvas)(nil)
