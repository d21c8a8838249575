// Package threshold computes global and local intensity thresholds for
// separating foreground from background.
//
// Global methods work on a 256-bin histogram spanning the image's own value
// range and return a single value; a pixel is foreground when it is strictly
// greater than the threshold.
package threshold

import (
	"errors"
	"math"
	"sort"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/exposure"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Bins is the histogram resolution used by the global methods.
const Bins = 256

// MaxSmoothingIterations bounds the histogram smoothing of Minimum.
const MaxSmoothingIterations = 10000

// Method names accepted by Global.
const (
	MethodMean     = "mean"
	MethodTriangle = "triangle"
	MethodOtsu     = "otsu"
	MethodMinimum  = "minimum"
	MethodYen      = "yen"
	MethodLi       = "li"
	MethodIsodata  = "isodata"
)

// Methods lists every global method in display order.
var Methods = []string{MethodIsodata, MethodLi, MethodMean, MethodMinimum, MethodOtsu, MethodTriangle, MethodYen}

// ErrNotBimodal is returned by Minimum when smoothing does not leave exactly
// two peaks.
var ErrNotBimodal = errors.New("unable to find two maxima in histogram")

// Global dispatches to the named method.
func Global(p *imaging.Plane, method string) (float64, error) {
	if len(p.Pix) == 0 {
		return 0, apperr.Validation("empty image")
	}
	switch method {
	case MethodMean:
		return p.Mean(), nil
	case MethodTriangle:
		return Triangle(p)
	case MethodOtsu:
		return Otsu(p)
	case MethodMinimum:
		return Minimum(p)
	case MethodYen:
		return Yen(p)
	case MethodLi:
		return Li(p)
	case MethodIsodata:
		return Isodata(p)
	}
	return 0, apperr.Validation("unknown threshold method %q", method)
}

func histogram(p *imaging.Plane) ([]float64, []float64, error) {
	h, err := exposure.ComputeHistogram(p, Bins)
	if err != nil {
		return nil, nil, err
	}
	return h.Counts, h.Centers, nil
}

// constant reports whether every value equals the first.
func constant(p *imaging.Plane) bool {
	lo, hi := p.MinMax()
	return lo == hi
}

// Otsu maximises the between-class variance.
func Otsu(p *imaging.Plane) (float64, error) {
	if constant(p) {
		return p.Pix[0], nil
	}
	counts, centers, err := histogram(p)
	if err != nil {
		return 0, err
	}
	n := len(counts)
	w1 := make([]float64, n)
	m1 := make([]float64, n)
	var cw, cm float64
	for i := 0; i < n; i++ {
		cw += counts[i]
		cm += counts[i] * centers[i]
		w1[i] = cw
		m1[i] = cm / cw
	}
	w2 := make([]float64, n)
	m2 := make([]float64, n)
	cw, cm = 0, 0
	for i := n - 1; i >= 0; i-- {
		cw += counts[i]
		cm += counts[i] * centers[i]
		w2[i] = cw
		m2[i] = cm / cw
	}

	best, idx := math.Inf(-1), 0
	for i := 0; i < n-1; i++ {
		d := m1[i] - m2[i+1]
		v := w1[i] * w2[i+1] * d * d
		if v > best {
			best, idx = v, i
		}
	}
	return centers[idx], nil
}

// Isodata returns the first bin centre t at which t equals, within one bin,
// the average of the mean intensities below and above it.
func Isodata(p *imaging.Plane) (float64, error) {
	if constant(p) {
		return p.Pix[0], nil
	}
	counts, centers, err := histogram(p)
	if err != nil {
		return 0, err
	}
	n := len(counts)
	csum := make([]float64, n)
	isum := make([]float64, n)
	var c, s float64
	for i := 0; i < n; i++ {
		c += counts[i]
		s += counts[i] * centers[i]
		csum[i] = c
		isum[i] = s
	}
	width := centers[1] - centers[0]
	closest, closestDist := centers[0], math.Inf(1)
	for i := 0; i < n-1; i++ {
		high := csum[n-1] - csum[i]
		if csum[i] == 0 || high == 0 {
			continue
		}
		lower := isum[i] / csum[i]
		higher := (isum[n-1] - isum[i]) / high
		d := (lower+higher)/2 - centers[i]
		if d >= 0 && d < width {
			return centers[i], nil
		}
		if math.Abs(d) < closestDist {
			closest, closestDist = centers[i], math.Abs(d)
		}
	}
	return closest, nil
}

// Li minimises the cross entropy between foreground and background by
// iteration, starting from the mean.
func Li(p *imaging.Plane) (float64, error) {
	vals := make([]float64, 0, len(p.Pix))
	for _, v := range p.Pix {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	sort.Float64s(vals)
	lo := vals[0]
	if lo == vals[len(vals)-1] {
		return lo, nil
	}

	// half the smallest gap between distinct values
	tolerance := math.Inf(1)
	for i := 1; i < len(vals); i++ {
		if d := vals[i] - vals[i-1]; d > 0 && d < tolerance {
			tolerance = d
		}
	}
	tolerance /= 2

	var sum float64
	for i := range vals {
		vals[i] -= lo
		sum += vals[i]
	}
	next := sum / float64(len(vals))
	curr := -2 * tolerance
	for math.Abs(next-curr) > tolerance {
		curr = next
		// vals is sorted, so the foreground is a suffix
		k := sort.Search(len(vals), func(i int) bool { return vals[i] > curr })
		var back, fore float64
		for _, v := range vals[:k] {
			back += v
		}
		for _, v := range vals[k:] {
			fore += v
		}
		if k == 0 || k == len(vals) {
			break
		}
		meanBack := back / float64(k)
		meanFore := fore / float64(len(vals)-k)
		if meanBack == 0 {
			break
		}
		next = (meanBack - meanFore) / (math.Log(meanBack) - math.Log(meanFore))
	}
	return next + lo, nil
}

// Yen maximises the entropic correlation of the two classes.
func Yen(p *imaging.Plane) (float64, error) {
	if constant(p) {
		return p.Pix[0], nil
	}
	counts, centers, err := histogram(p)
	if err != nil {
		return 0, err
	}
	n := len(counts)
	var total float64
	for _, c := range counts {
		total += c
	}
	pmf := make([]float64, n)
	for i, c := range counts {
		pmf[i] = c / total
	}
	p1 := make([]float64, n)
	p1sq := make([]float64, n)
	p2sq := make([]float64, n)
	var a, b float64
	for i := 0; i < n; i++ {
		a += pmf[i]
		b += pmf[i] * pmf[i]
		p1[i] = a
		p1sq[i] = b
	}
	b = 0
	for i := n - 1; i >= 0; i-- {
		b += pmf[i] * pmf[i]
		p2sq[i] = b
	}

	best, idx := math.Inf(-1), 0
	for i := 0; i < n-1; i++ {
		q := p1[i] * (1 - p1[i])
		crit := math.Log(q * q / (p1sq[i] * p2sq[i+1]))
		if crit > best {
			best, idx = crit, i
		}
	}
	return centers[idx], nil
}

// Triangle draws a line from the histogram peak to the far end of the
// longer tail and picks the bin furthest below that line.
func Triangle(p *imaging.Plane) (float64, error) {
	if constant(p) {
		return p.Pix[0], nil
	}
	counts, centers, err := histogram(p)
	if err != nil {
		return 0, err
	}
	n := len(counts)
	hist := append([]float64(nil), counts...)

	peak := 0
	for i, c := range hist {
		if c > hist[peak] {
			peak = i
		}
	}
	low, high := -1, -1
	for i, c := range hist {
		if c > 0 {
			if low < 0 {
				low = i
			}
			high = i
		}
	}

	flip := peak-low < high-peak
	if flip {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			hist[i], hist[j] = hist[j], hist[i]
		}
		low = n - high - 1
		peak = n - peak - 1
	}

	width := float64(peak - low)
	level := low
	if width > 0 {
		height := hist[peak]
		norm := math.Hypot(height, width)
		height /= norm
		width /= norm
		best := math.Inf(-1)
		for x := 0; x < peak-low; x++ {
			l := height*float64(x) - width*hist[x+low]
			if l > best {
				best, level = l, x+low
			}
		}
	}
	if flip {
		level = n - level - 1
	}
	return centers[level], nil
}

// Minimum smooths the histogram with a 3-bin running mean until exactly two
// local maxima remain and returns the lowest point between them.
func Minimum(p *imaging.Plane) (float64, error) {
	counts, centers, err := histogram(p)
	if err != nil {
		return 0, err
	}
	smooth := append([]float64(nil), counts...)
	var maxima []int
	iter := 0
	for ; iter < MaxSmoothingIterations; iter++ {
		smooth = uniform3(smooth)
		maxima = localMaxima(smooth)
		if len(maxima) < 3 {
			break
		}
	}
	if len(maxima) != 2 {
		return 0, apperr.Processing("minimum threshold failed", ErrNotBimodal)
	}
	if iter >= MaxSmoothingIterations-1 {
		return 0, apperr.Processing("minimum threshold failed", errors.New("maximum iteration reached for histogram smoothing"))
	}

	idx := maxima[0]
	for i := maxima[0]; i <= maxima[1]; i++ {
		if smooth[i] < smooth[idx] {
			idx = i
		}
	}
	return centers[idx], nil
}

// uniform3 is a 3-tap running mean with the edge values repeated.
func uniform3(h []float64) []float64 {
	n := len(h)
	out := make([]float64, n)
	for i := range h {
		left := h[max(i-1, 0)]
		right := h[min(i+1, n-1)]
		out[i] = (left + h[i] + right) / 3
	}
	return out
}

func localMaxima(h []float64) []int {
	var idx []int
	rising := true
	for i := 0; i < len(h)-1; i++ {
		if rising {
			if h[i+1] < h[i] {
				rising = false
				idx = append(idx, i)
			}
		} else if h[i+1] > h[i] {
			rising = true
		}
	}
	return idx
}

// Result is the outcome of one method in Compare.
type Result struct {
	Method    string  `json:"method"`
	Threshold float64 `json:"threshold"`
	Fraction  float64 `json:"foreground_fraction"`
	Error     string  `json:"error,omitempty"`
}

// Compare runs every global method and reports each threshold together with
// the foreground fraction it produces. A failing method is reported, not
// fatal.
func Compare(p *imaging.Plane) []Result {
	out := make([]Result, 0, len(Methods))
	for _, m := range Methods {
		t, err := Global(p, m)
		if err != nil {
			out = append(out, Result{Method: m, Error: err.Error()})
			continue
		}
		out = append(out, Result{Method: m, Threshold: t, Fraction: p.Threshold(t).Fraction()})
	}
	return out
}
