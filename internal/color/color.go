// Package color provides colour space conversions and channel operations on
// RGB images.
package color

import (
	"image"
	stdcolor "image/color"

	"github.com/anthonynsimon/bild/channel"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// ChannelNames lists the RGB channels in index order.
var ChannelNames = [3]string{"red", "green", "blue"}

var bildChannels = [3]channel.Channel{channel.Red, channel.Green, channel.Blue}

// SplitChannels returns the red, green and blue channels as 8-bit gray images.
func SplitChannels(img image.Image) [3]*image.Gray {
	var out [3]*image.Gray
	for i, c := range bildChannels {
		out[i] = channel.Extract(img, c)
	}
	return out
}

// Tint renders a single channel in its own colour (red channel in red etc.),
// the usual way a channel is shown next to the composite.
func Tint(gray *image.Gray, c int) (*image.NRGBA, error) {
	if c < 0 || c > 2 {
		return nil, apperr.Validation("channel must be 0, 1 or 2, got %d", c)
	}
	b := gray.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := gray.GrayAt(x+b.Min.X, y+b.Min.Y).Y
			px := stdcolor.NRGBA{A: 255}
			switch c {
			case 0:
				px.R = v
			case 1:
				px.G = v
			case 2:
				px.B = v
			}
			out.SetNRGBA(x, y, px)
		}
	}
	return out, nil
}

// ParseChannel accepts an index ("0".."2") or a name ("red", "r", ...).
func ParseChannel(s string) (int, error) {
	switch s {
	case "0", "r", "red":
		return 0, nil
	case "1", "g", "green":
		return 1, nil
	case "2", "b", "blue":
		return 2, nil
	}
	return 0, apperr.Validation("unknown channel %q (want red, green or blue)", s)
}

// RGBToGray computes luminance with weights 0.2125, 0.7154, 0.0721.
func RGBToGray(rgb *imaging.RGB) *imaging.Plane {
	return rgb.Gray()
}

// ScaleChannels multiplies each channel by its gain and clips to [0, 1].
// A gain of zero removes the channel; this is how a single channel is
// enhanced or filtered out of a composite.
func ScaleChannels(rgb *imaging.RGB, gains [3]float64) *imaging.RGB {
	out := &imaging.RGB{}
	planes := [3]**imaging.Plane{&out.R, &out.G, &out.B}
	for i := 0; i < 3; i++ {
		src, _ := rgb.Channel(i)
		g := gains[i]
		*planes[i] = src.Map(func(v float64) float64 { return clip(v * g) })
	}
	return out
}

// Blend composites two colour images: (1-w)*a + w*b.
func Blend(a, b *imaging.RGB, w float64) (*imaging.RGB, error) {
	if w < 0 || w > 1 {
		return nil, apperr.Validation("blend weight must be in [0, 1], got %g", w)
	}
	var ch [3]*imaging.Plane
	for i := 0; i < 3; i++ {
		pa, _ := a.Channel(i)
		pb, _ := b.Channel(i)
		p, err := imaging.Blend(pa, pb, 1-w, w)
		if err != nil {
			return nil, err
		}
		ch[i] = p
	}
	return imaging.NewRGB(ch[0], ch[1], ch[2])
}

func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
