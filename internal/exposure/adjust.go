package exposure

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/histogram"
	dimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// Adjustment names accepted by Adjust8.
const (
	AdjustBrightness = "brightness"
	AdjustContrast   = "contrast"
	AdjustGammaOp    = "gamma"
	AdjustSaturation = "saturation"
	AdjustHue        = "hue"
)

// Adjust8 applies an 8-bit colour adjustment to a display image.
// Brightness, contrast and saturation take a change in [-1, 1]; gamma takes a
// positive exponent; hue takes a rotation in degrees.
func Adjust8(img image.Image, op string, amount float64) (image.Image, error) {
	switch op {
	case AdjustBrightness:
		if amount < -1 || amount > 1 {
			return nil, apperr.Validation("brightness change must be in [-1, 1], got %g", amount)
		}
		return adjust.Brightness(img, amount), nil
	case AdjustContrast:
		if amount < -1 || amount > 1 {
			return nil, apperr.Validation("contrast change must be in [-1, 1], got %g", amount)
		}
		return adjust.Contrast(img, amount), nil
	case AdjustGammaOp:
		if amount <= 0 {
			return nil, apperr.Validation("gamma must be positive, got %g", amount)
		}
		return adjust.Gamma(img, amount), nil
	case AdjustSaturation:
		if amount < -1 || amount > 1 {
			return nil, apperr.Validation("saturation change must be in [-1, 1], got %g", amount)
		}
		return adjust.Saturation(img, amount), nil
	case AdjustHue:
		return adjust.Hue(img, int(amount)), nil
	}
	return nil, apperr.Validation("unknown adjustment %q", op)
}

// ChannelHistograms holds 256-bin 8-bit histograms per channel.
type ChannelHistograms struct {
	Red       []int     `json:"red"`
	Green     []int     `json:"green"`
	Blue      []int     `json:"blue"`
	Luminance []float64 `json:"luminance"`
}

// ComputeChannelHistograms bins the 8-bit red, green and blue values and the
// normalised luminance of a display image.
func ComputeChannelHistograms(img image.Image) *ChannelHistograms {
	h := histogram.NewRGBAHistogram(img)
	lum := dimaging.Histogram(img)
	return &ChannelHistograms{
		Red:       h.R.Bins,
		Green:     h.G.Bins,
		Blue:      h.B.Bins,
		Luminance: lum[:],
	}
}

// CumulativeChannelHistograms returns running totals per channel.
func CumulativeChannelHistograms(img image.Image) *ChannelHistograms {
	h := histogram.NewRGBAHistogram(img).Cumulative()
	lum := dimaging.Histogram(img)
	for i := 1; i < len(lum); i++ {
		lum[i] += lum[i-1]
	}
	return &ChannelHistograms{
		Red:       h.R.Bins,
		Green:     h.G.Bins,
		Blue:      h.B.Bins,
		Luminance: lum[:],
	}
}
