// Package exposure provides intensity histograms and contrast adjustments:
// histogram equalisation, intensity rescaling, gamma and log correction and
// low-contrast detection.
package exposure

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Histogram is a binned intensity distribution.
type Histogram struct {
	Counts  []float64 `json:"counts"`
	Centers []float64 `json:"centers"`
	Edges   []float64 `json:"-"`
}

// Stats summarises an intensity distribution.
type Stats struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Median   float64 `json:"median"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// sortedValues returns a sorted copy of the plane values.
func sortedValues(p *imaging.Plane) []float64 {
	vals := make([]float64, len(p.Pix))
	copy(vals, p.Pix)
	sort.Float64s(vals)
	return vals
}

// ComputeHistogram bins the plane into `bins` equal-width bins spanning its
// value range. A constant plane is binned over [v-0.5, v+0.5].
func ComputeHistogram(p *imaging.Plane, bins int) (*Histogram, error) {
	if bins < 1 {
		return nil, apperr.Validation("bins must be at least 1, got %d", bins)
	}
	if len(p.Pix) == 0 {
		return nil, apperr.Validation("empty image")
	}
	vals := sortedValues(p)
	lo, hi := vals[0], vals[len(vals)-1]
	return histogramSorted(vals, lo, hi, bins), nil
}

func histogramSorted(vals []float64, lo, hi float64, bins int) *Histogram {
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := make([]float64, bins+1)
	width := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	// the last bin is closed on the right
	dividers := make([]float64, len(edges))
	copy(dividers, edges)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, vals, nil)
	centers := make([]float64, bins)
	for i := range centers {
		centers[i] = (edges[i] + edges[i+1]) / 2
	}
	return &Histogram{Counts: counts, Centers: centers, Edges: edges}
}

// ComputeStats returns summary statistics of the plane values.
func ComputeStats(p *imaging.Plane) (*Stats, error) {
	if len(p.Pix) == 0 {
		return nil, apperr.Validation("empty image")
	}
	vals := sortedValues(p)
	mean, std := stat.PopMeanStdDev(vals, nil)
	s := &Stats{
		Min:    vals[0],
		Max:    vals[len(vals)-1],
		Mean:   mean,
		Std:    std,
		Median: Percentile(vals, 50),
	}
	if std > 0 {
		s.Skewness = stat.Skew(vals, nil)
		s.Kurtosis = stat.ExKurtosis(vals, nil)
	}
	return s, nil
}

// Percentile returns the q-th percentile (0..100) of sorted values, linearly
// interpolating between the closest ranks.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	q = math.Max(0, math.Min(100, q))
	pos := q / 100 * float64(n-1)
	i := int(math.Floor(pos))
	if i >= n-1 {
		return sorted[n-1]
	}
	f := pos - float64(i)
	return sorted[i] + f*(sorted[i+1]-sorted[i])
}

// PlanePercentiles returns the requested percentiles of the plane values.
func PlanePercentiles(p *imaging.Plane, qs ...float64) []float64 {
	vals := sortedValues(p)
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = Percentile(vals, q)
	}
	return out
}

// CumulativeDistribution returns the normalised cumulative histogram and the
// bin centres.
func CumulativeDistribution(p *imaging.Plane, bins int) ([]float64, []float64, error) {
	h, err := ComputeHistogram(p, bins)
	if err != nil {
		return nil, nil, err
	}
	cdf := make([]float64, len(h.Counts))
	var total float64
	for i, c := range h.Counts {
		total += c
		cdf[i] = total
	}
	for i := range cdf {
		cdf[i] /= total
	}
	return cdf, h.Centers, nil
}
