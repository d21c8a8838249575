package filters

import (
	"math"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Truncate is the kernel half-width in standard deviations.
const Truncate = 4.0

func gaussianKernel(sigma float64) []float64 {
	radius := int(Truncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// convolveSeparable applies kx along rows then ky along columns. Edge pixels
// are replicated.
func convolveSeparable(p *imaging.Plane, kx, ky []float64) *imaging.Plane {
	rx, ry := len(kx)/2, len(ky)/2
	tmp := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		for x := 0; x < p.Width; x++ {
			s := 0.0
			for i, w := range kx {
				s += w * p.AtClamped(x+i-rx, y)
			}
			tmp.Set(x, y, s)
		}
	})
	out := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		for x := 0; x < p.Width; x++ {
			s := 0.0
			for i, w := range ky {
				s += w * tmp.AtClamped(x, y+i-ry)
			}
			out.Set(x, y, s)
		}
	})
	return out
}

// Gaussian blurs p with a separable kernel truncated at 4 sigma. Sigma 0
// returns a copy.
func Gaussian(p *imaging.Plane, sigma float64) (*imaging.Plane, error) {
	if sigma < 0 || math.IsNaN(sigma) {
		return nil, apperr.Validation("sigma must be non-negative, got %g", sigma)
	}
	if sigma == 0 {
		return p.Clone(), nil
	}
	k := gaussianKernel(sigma)
	return convolveSeparable(p, k, k), nil
}

// DifferenceOfGaussians band-passes p: gaussian(low) - gaussian(high).
// A zero high sigma defaults to 1.6 * low.
func DifferenceOfGaussians(p *imaging.Plane, low, high float64) (*imaging.Plane, error) {
	if high == 0 {
		high = 1.6 * low
	}
	if high < low {
		return nil, apperr.Validation("high sigma (%g) must not be smaller than low sigma (%g)", high, low)
	}
	a, err := Gaussian(p, low)
	if err != nil {
		return nil, err
	}
	b, err := Gaussian(p, high)
	if err != nil {
		return nil, err
	}
	return imaging.Subtract(a, b)
}

// Laplace applies the 3x3 discrete Laplace operator with a positive centre
// weight, so bright spots give positive responses. Borders are mirrored.
func Laplace(p *imaging.Plane) *imaging.Plane {
	out := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		for x := 0; x < p.Width; x++ {
			v := 4*p.At(x, y) - p.AtReflect(x-1, y) - p.AtReflect(x+1, y) -
				p.AtReflect(x, y-1) - p.AtReflect(x, y+1)
			out.Set(x, y, v)
		}
	})
	return out
}

// LaplacianOfGaussian returns the sum of second derivatives of the
// Gaussian-smoothed plane. Bright blobs of size near sigma give strongly
// negative responses.
func LaplacianOfGaussian(p *imaging.Plane, sigma float64) (*imaging.Plane, error) {
	if sigma <= 0 {
		return nil, apperr.Validation("sigma must be positive, got %g", sigma)
	}
	s, err := Gaussian(p, sigma)
	if err != nil {
		return nil, err
	}
	return Laplace(s).Scale(-1), nil
}

// UnsharpMask sharpens p: p + amount*(p - gaussian(p, radius)). The result
// is clipped to [0, 1], or [-1, 1] when p has negative values.
func UnsharpMask(p *imaging.Plane, radius, amount float64) (*imaging.Plane, error) {
	if radius <= 0 {
		return nil, apperr.Validation("radius must be positive, got %g", radius)
	}
	blur, err := Gaussian(p, radius)
	if err != nil {
		return nil, err
	}
	lo, _ := p.MinMax()
	floor := 0.0
	if lo < 0 {
		floor = -1
	}
	out := imaging.NewPlane(p.Width, p.Height)
	for i, v := range p.Pix {
		out.Pix[i] = math.Min(1, math.Max(floor, v+amount*(v-blur.Pix[i])))
	}
	return out, nil
}
