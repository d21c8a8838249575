package colormap

import (
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// LabelColors returns n distinct colours spaced around the hue circle using
// the golden angle, so neighbouring labels get well separated hues.
func LabelColors(n int) []color.NRGBA {
	out := make([]color.NRGBA, n)
	h := 0.0
	for i := 0; i < n; i++ {
		c := colorful.Hsv(h, 0.75, 0.95)
		r, g, b := c.Clamped().RGB255()
		out[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
		h = math.Mod(h+137.508, 360)
	}
	return out
}

// ColorizeLabels renders a label map: 0 is black, label k gets colour k-1.
func ColorizeLabels(width, height int, labels []int, count int) *image.NRGBA {
	palette := LabelColors(count)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			l := labels[y*width+x]
			if l <= 0 || l > count {
				out.SetNRGBA(x, y, color.NRGBA{A: 255})
				continue
			}
			out.SetNRGBA(x, y, palette[l-1])
		}
	}
	return out
}
