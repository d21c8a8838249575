package filters

import (
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/morphology"
)

// Rank filter names.
const (
	RankMean    = "mean"
	RankMedian  = "median"
	RankMinimum = "minimum"
	RankMaximum = "maximum"
)

// Rank replaces each pixel by a statistic of its footprint neighbourhood.
// Borders are mirrored.
func Rank(p *imaging.Plane, f *morphology.Footprint, kind string) (*imaging.Plane, error) {
	var reduce func(vals []float64) float64
	switch kind {
	case RankMean:
		reduce = func(vals []float64) float64 {
			s := 0.0
			for _, v := range vals {
				s += v
			}
			return s / float64(len(vals))
		}
	case RankMedian:
		reduce = func(vals []float64) float64 {
			sort.Float64s(vals)
			n := len(vals)
			if n%2 == 1 {
				return vals[n/2]
			}
			return (vals[n/2-1] + vals[n/2]) / 2
		}
	case RankMinimum:
		reduce = func(vals []float64) float64 {
			m := math.Inf(1)
			for _, v := range vals {
				m = math.Min(m, v)
			}
			return m
		}
	case RankMaximum:
		reduce = func(vals []float64) float64 {
			m := math.Inf(-1)
			for _, v := range vals {
				m = math.Max(m, v)
			}
			return m
		}
	default:
		return nil, apperr.Validation("unknown rank filter %q (want mean, median, minimum or maximum)", kind)
	}

	offs := f.Offsets()
	if len(offs) == 0 {
		return nil, apperr.Validation("footprint has no active elements")
	}
	out := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		vals := make([]float64, len(offs))
		for x := 0; x < p.Width; x++ {
			for i, o := range offs {
				vals[i] = p.AtReflect(x+o.DX, y+o.DY)
			}
			out.Set(x, y, reduce(vals))
		}
	})
	return out, nil
}

// MedianRGB applies a circular median of the given radius to each colour
// channel of an 8-bit image.
func MedianRGB(img image.Image, radius float64) (*image.RGBA, error) {
	if radius <= 0 {
		return nil, apperr.Validation("median radius must be positive, got %g", radius)
	}
	return effect.Median(img, radius), nil
}
