package imaging

import (
	"fmt"
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSVColor is hue in degrees, saturation and value in [0, 1].
type HSVColor struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// PixelResult describes a single pixel: its raw value in the image dtype,
// its normalised float value and its colour.
type PixelResult struct {
	X     int      `json:"x"`
	Y     int      `json:"y"`
	DType string   `json:"dtype"`
	Raw   []int    `json:"raw"`
	Float float64  `json:"float"`
	Hex   string   `json:"hex"`
	RGB   RGBColor `json:"rgb"`
	HSV   HSVColor `json:"hsv"`
}

// SampleColor reads the pixel at (x, y).
//
// Raw holds one value for grayscale images and three for colour images, in
// the image's native dtype. Float is the luminance normalised to [0, 1].
func SampleColor(img image.Image, x, y int) (*PixelResult, error) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, apperr.Validation("coordinates (%d,%d) outside image bounds", x, y)
	}

	dtype := DTypeOf(img)
	r, g, b, _ := img.At(x, y).RGBA()

	raw := []int{rawValue(r, dtype), rawValue(g, dtype), rawValue(b, dtype)}
	if r == g && g == b {
		raw = raw[:1]
	}

	c, _ := colorful.MakeColor(img.At(x, y))
	h, s, v := c.Hsv()
	if math.IsNaN(h) {
		h = 0
	}
	r8, g8, b8 := c.RGB255()

	return &PixelResult{
		X:     x,
		Y:     y,
		DType: dtype,
		Raw:   raw,
		Float: round4((LumaR*float64(r) + LumaG*float64(g) + LumaB*float64(b)) / 65535),
		Hex:   fmt.Sprintf("#%02X%02X%02X", r8, g8, b8),
		RGB:   RGBColor{R: r8, G: g8, B: b8},
		HSV:   HSVColor{H: round4(h), S: round4(s), V: round4(v)},
	}, nil
}

// HSVPlanes decomposes an image into hue (scaled to [0, 1]), saturation and
// value planes.
func HSVPlanes(img image.Image) *RGB {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &RGB{R: NewPlane(w, h), G: NewPlane(w, h), B: NewPlane(w, h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c, ok := colorful.MakeColor(img.At(x+b.Min.X, y+b.Min.Y))
			if !ok {
				continue
			}
			hh, s, v := c.Hsv()
			if math.IsNaN(hh) {
				hh = 0
			}
			i := y*w + x
			out.R.Pix[i] = hh / 360
			out.G.Pix[i] = s
			out.B.Pix[i] = v
		}
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
