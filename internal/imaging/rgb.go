package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// RGB holds the three colour channels of an image as planes.
type RGB struct {
	R *Plane
	G *Plane
	B *Plane
}

// RGBFromImage splits an image into normalised channel planes.
func RGBFromImage(img image.Image) *RGB {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &RGB{R: NewPlane(w, h), G: NewPlane(w, h), B: NewPlane(w, h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			i := y*w + x
			out.R.Pix[i] = float64(r) / 65535
			out.G.Pix[i] = float64(g) / 65535
			out.B.Pix[i] = float64(bl) / 65535
		}
	}
	return out
}

// NewRGB assembles channels of identical shape.
func NewRGB(r, g, b *Plane) (*RGB, error) {
	if !r.SameShape(g) {
		return nil, shapeError(r, g)
	}
	if !r.SameShape(b) {
		return nil, shapeError(r, b)
	}
	return &RGB{R: r, G: g, B: b}, nil
}

// Channel returns the plane for index 0, 1 or 2.
func (c *RGB) Channel(i int) (*Plane, error) {
	switch i {
	case 0:
		return c.R, nil
	case 1:
		return c.G, nil
	case 2:
		return c.B, nil
	}
	return nil, apperr.Validation("channel must be 0, 1 or 2, got %d", i)
}

// Width returns the channel width.
func (c *RGB) Width() int { return c.R.Width }

// Height returns the channel height.
func (c *RGB) Height() int { return c.R.Height }

// Gray returns the luminance plane.
func (c *RGB) Gray() *Plane {
	out := NewPlane(c.R.Width, c.R.Height)
	for i := range out.Pix {
		out.Pix[i] = LumaR*c.R.Pix[i] + LumaG*c.G.Pix[i] + LumaB*c.B.Pix[i]
	}
	return out
}

// ToNRGBA renders the channels, clipping each to [0, 1].
func (c *RGB) ToNRGBA() *image.NRGBA {
	w, h := c.Width(), c.Height()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			out.SetNRGBA(x, y, color.NRGBA{
				R: to8(c.R.Pix[i]),
				G: to8(c.G.Pix[i]),
				B: to8(c.B.Pix[i]),
				A: 255,
			})
		}
	}
	return out
}

// GrayToRGB replicates a plane into three channels.
func GrayToRGB(p *Plane) *RGB {
	return &RGB{R: p.Clone(), G: p.Clone(), B: p.Clone()}
}

func to8(v float64) uint8 {
	return uint8(math.Round(clip01(v) * 255))
}
