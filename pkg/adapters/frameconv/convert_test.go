package frameconv

import (
	"image"
	"image/color"
	"testing"

	"github.com/user/framesource/pkg/mediatest"
)

func TestConvertSameSize(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	src.Set(10, 10, color.NRGBA{255, 0, 0, 255})

	c := New(4, 2)
	out := c.Convert(src)

	if out.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if got := out.RGBAAt(0, 0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("expected red origin, got %v", got)
	}
}

func TestConvertAdoptsFirstSize(t *testing.T) {
	c := New(0, 0)
	c.Convert(mediatest.SolidImage(8, 6, color.RGBA{0, 0, 255, 255}))

	w, h := c.Size()
	if w != 8 || h != 6 {
		t.Fatalf("expected 8x6, got %dx%d", w, h)
	}

	out := c.Convert(mediatest.SolidImage(16, 12, color.RGBA{0, 0, 255, 255}))
	if out.Bounds().Dx() != 8 || out.Bounds().Dy() != 6 {
		t.Fatalf("expected rescale to 8x6, got %v", out.Bounds())
	}
	if got := out.RGBAAt(4, 3); got.B < 250 {
		t.Errorf("expected blue after scaling, got %v", got)
	}
}

func TestConvertReturnsCopy(t *testing.T) {
	src := mediatest.SolidImage(2, 2, color.RGBA{1, 2, 3, 255})
	out := New(2, 2).Convert(src)
	out.SetRGBA(0, 0, color.RGBA{9, 9, 9, 255})

	if src.RGBAAt(0, 0) != (color.RGBA{1, 2, 3, 255}) {
		t.Fatal("Convert must not alias its input")
	}
}
