package exposure

import (
	"math"
	"sort"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// EqualizeHist maps each value through the image's own cumulative
// distribution, spreading intensities over [0, 1].
func EqualizeHist(p *imaging.Plane, bins int) (*imaging.Plane, error) {
	cdf, centers, err := CumulativeDistribution(p, bins)
	if err != nil {
		return nil, err
	}
	return p.Map(func(v float64) float64 { return interp(v, centers, cdf) }), nil
}

// interp linearly interpolates fp at x over increasing xp, clamping outside.
func interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	i := sort.SearchFloat64s(xp, x)
	// xp[i-1] < x <= xp[i]
	t := (x - xp[i-1]) / (xp[i] - xp[i-1])
	return fp[i-1] + t*(fp[i]-fp[i-1])
}

// RescaleIntensity clips values to [inLo, inHi] and stretches that range
// linearly onto [outLo, outHi]. When inLo == inHi the plane's own range is
// used.
func RescaleIntensity(p *imaging.Plane, inLo, inHi, outLo, outHi float64) *imaging.Plane {
	if inLo == inHi {
		inLo, inHi = p.MinMax()
	}
	if inHi == inLo {
		return p.Map(func(float64) float64 { return outLo })
	}
	return p.Map(func(v float64) float64 {
		v = math.Max(inLo, math.Min(inHi, v))
		return outLo + (v-inLo)/(inHi-inLo)*(outHi-outLo)
	})
}

// ContrastStretch rescales so that the lower and upper percentiles map to 0
// and 1, the usual way to stretch a dim image.
func ContrastStretch(p *imaging.Plane, lower, upper float64) (*imaging.Plane, float64, float64, error) {
	if lower < 0 || upper > 100 || lower >= upper {
		return nil, 0, 0, apperr.Validation("percentiles must satisfy 0 <= lower < upper <= 100, got %g, %g", lower, upper)
	}
	lim := PlanePercentiles(p, lower, upper)
	return RescaleIntensity(p, lim[0], lim[1], 0, 1), lim[0], lim[1], nil
}

// LowContrast is the verdict of IsLowContrast.
type LowContrast struct {
	Low      bool    `json:"low_contrast"`
	Lower    float64 `json:"lower_percentile_value"`
	Upper    float64 `json:"upper_percentile_value"`
	Ratio    float64 `json:"ratio"`
	Fraction float64 `json:"fraction_threshold"`
	LowerPct float64 `json:"lower_percentile"`
	UpperPct float64 `json:"upper_percentile"`
}

// FloatRange is the width of the nominal float intensity range [-1, 1]
// against which contrast is measured.
const FloatRange = 2.0

// IsLowContrast reports whether the spread between the lower and upper
// percentiles covers less than `fraction` of FloatRange.
func IsLowContrast(p *imaging.Plane, fraction, lower, upper float64) (*LowContrast, error) {
	if fraction <= 0 || fraction > 1 {
		return nil, apperr.Validation("fraction must be in (0, 1], got %g", fraction)
	}
	if lower < 0 || upper > 100 || lower >= upper {
		return nil, apperr.Validation("percentiles must satisfy 0 <= lower < upper <= 100, got %g, %g", lower, upper)
	}
	lim := PlanePercentiles(p, lower, upper)
	ratio := (lim[1] - lim[0]) / FloatRange
	return &LowContrast{
		Low:      ratio < fraction,
		Lower:    lim[0],
		Upper:    lim[1],
		Ratio:    ratio,
		Fraction: fraction,
		LowerPct: lower,
		UpperPct: upper,
	}, nil
}

// AdjustGamma applies gain * v^gamma.
func AdjustGamma(p *imaging.Plane, gamma, gain float64) (*imaging.Plane, error) {
	if gamma < 0 {
		return nil, apperr.Validation("gamma must be non-negative, got %g", gamma)
	}
	if err := checkNonNegative(p); err != nil {
		return nil, err
	}
	return p.Map(func(v float64) float64 { return gain * math.Pow(v, gamma) }), nil
}

// Invert maps v to 1 - v, swapping dark and bright on the [0, 1] range.
func Invert(p *imaging.Plane) *imaging.Plane {
	return p.Map(func(v float64) float64 { return 1 - v })
}

// AdjustLog applies gain * log2(1 + v), or gain * (2^v - 1) when inverse.
func AdjustLog(p *imaging.Plane, gain float64, inverse bool) (*imaging.Plane, error) {
	if err := checkNonNegative(p); err != nil {
		return nil, err
	}
	if inverse {
		return p.Map(func(v float64) float64 { return gain * (math.Exp2(v) - 1) }), nil
	}
	return p.Map(func(v float64) float64 { return gain * math.Log2(1+v) }), nil
}

// AdjustSigmoid applies 1 / (1 + exp(gain * (cutoff - v))), or its
// complement when inverse.
func AdjustSigmoid(p *imaging.Plane, cutoff, gain float64, inverse bool) (*imaging.Plane, error) {
	if err := checkNonNegative(p); err != nil {
		return nil, err
	}
	return p.Map(func(v float64) float64 {
		s := 1 / (1 + math.Exp(gain*(cutoff-v)))
		if inverse {
			return 1 - s
		}
		return s
	}), nil
}

func checkNonNegative(p *imaging.Plane) error {
	lo, _ := p.MinMax()
	if lo < 0 {
		return apperr.Validation("image contains negative values (min %g)", lo)
	}
	return nil
}
