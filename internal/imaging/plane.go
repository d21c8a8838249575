package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// Luminance weights used for RGB to gray conversion (ITU-R BT.709).
const (
	LumaR = 0.2125
	LumaG = 0.7154
	LumaB = 0.0721
)

// Plane is a single-channel floating point image stored row-major.
//
// Values converted from integer images are normalised to [0, 1] by the
// maximum of the source bit depth, so a uint8 value of 255 and a uint16 value
// of 65535 both become 1.0. Filters may produce values outside [0, 1].
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// PlaneFromValues wraps row-major values; len(values) must equal width*height.
func PlaneFromValues(width, height int, values []float64) (*Plane, error) {
	if len(values) != width*height {
		return nil, apperr.Validation("expected %d values for %dx%d plane, got %d", width*height, width, height, len(values))
	}
	return &Plane{Width: width, Height: height, Pix: values}, nil
}

// At returns the value at (x, y). Coordinates must be in range.
func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// Set stores v at (x, y).
func (p *Plane) Set(x, y int, v float64) {
	p.Pix[y*p.Width+x] = v
}

// AtReflect returns the value at (x, y) with out-of-range coordinates
// mirrored about the edge (d c b a | a b c d | d c b a).
func (p *Plane) AtReflect(x, y int) float64 {
	return p.Pix[Reflect(y, p.Height)*p.Width+Reflect(x, p.Width)]
}

// AtMirror returns the value at (x, y) with coordinates mirrored about the
// edge pixels, which are not repeated.
func (p *Plane) AtMirror(x, y int) float64 {
	return p.Pix[Mirror(y, p.Height)*p.Width+Mirror(x, p.Width)]
}

// AtClamped returns the value at (x, y) with coordinates clamped to the edge.
func (p *Plane) AtClamped(x, y int) float64 {
	return p.Pix[clamp(y, 0, p.Height-1)*p.Width+clamp(x, 0, p.Width-1)]
}

// Bilinear samples at a fractional position, returning cval outside the plane.
func (p *Plane) Bilinear(x, y, cval float64) float64 {
	if x < 0 || y < 0 || x > float64(p.Width-1) || y > float64(p.Height-1) {
		return cval
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := min(x0+1, p.Width-1)
	y1 := min(y0+1, p.Height-1)
	fx := x - float64(x0)
	fy := y - float64(y0)

	top := p.At(x0, y0)*(1-fx) + p.At(x1, y0)*fx
	bottom := p.At(x0, y1)*(1-fx) + p.At(x1, y1)*fx
	return top*(1-fy) + bottom*fy
}

// Reflect maps an index into [0, n) using symmetric reflection.
func Reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// Mirror folds index i into [0, n) reflecting about the first and last
// index: -1 maps to 1 and n maps to n-2.
func Mirror(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// Clone returns a deep copy.
func (p *Plane) Clone() *Plane {
	out := NewPlane(p.Width, p.Height)
	copy(out.Pix, p.Pix)
	return out
}

// SameShape reports whether two planes have identical dimensions.
func (p *Plane) SameShape(o *Plane) bool {
	return p.Width == o.Width && p.Height == o.Height
}

// MinMax returns the smallest and largest values.
func (p *Plane) MinMax() (float64, float64) {
	if len(p.Pix) == 0 {
		return 0, 0
	}
	lo, hi := p.Pix[0], p.Pix[0]
	for _, v := range p.Pix[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Mean returns the arithmetic mean of all values.
func (p *Plane) Mean() float64 {
	if len(p.Pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range p.Pix {
		sum += v
	}
	return sum / float64(len(p.Pix))
}

// Map applies fn to every value and returns a new plane.
func (p *Plane) Map(fn func(float64) float64) *Plane {
	out := NewPlane(p.Width, p.Height)
	for i, v := range p.Pix {
		out.Pix[i] = fn(v)
	}
	return out
}

// Scale multiplies every value by k.
func (p *Plane) Scale(k float64) *Plane {
	return p.Map(func(v float64) float64 { return v * k })
}

// Row returns a copy of row y.
func (p *Plane) Row(y int) []float64 {
	out := make([]float64, p.Width)
	copy(out, p.Pix[y*p.Width:(y+1)*p.Width])
	return out
}

// Column returns a copy of column x.
func (p *Plane) Column(x int) []float64 {
	out := make([]float64, p.Height)
	for y := 0; y < p.Height; y++ {
		out[y] = p.At(x, y)
	}
	return out
}

// Threshold returns the mask of values strictly greater than t.
func (p *Plane) Threshold(t float64) *Mask {
	m := NewMask(p.Width, p.Height)
	for i, v := range p.Pix {
		m.Pix[i] = v > t
	}
	return m
}

// ThresholdPlane compares each value with its own local threshold.
func (p *Plane) ThresholdPlane(t *Plane) (*Mask, error) {
	if !p.SameShape(t) {
		return nil, shapeError(p, t)
	}
	m := NewMask(p.Width, p.Height)
	for i, v := range p.Pix {
		m.Pix[i] = v > t.Pix[i]
	}
	return m, nil
}

// Range returns the mask of values strictly between lo and hi.
func (p *Plane) Range(lo, hi float64) *Mask {
	m := NewMask(p.Width, p.Height)
	for i, v := range p.Pix {
		m.Pix[i] = v > lo && v < hi
	}
	return m
}

// Blend returns wa*a + wb*b.
func Blend(a, b *Plane, wa, wb float64) (*Plane, error) {
	if !a.SameShape(b) {
		return nil, shapeError(a, b)
	}
	out := NewPlane(a.Width, a.Height)
	for i := range out.Pix {
		out.Pix[i] = wa*a.Pix[i] + wb*b.Pix[i]
	}
	return out, nil
}

// Subtract returns a - b.
func Subtract(a, b *Plane) (*Plane, error) {
	return Blend(a, b, 1, -1)
}

func shapeError(a, b *Plane) error {
	return apperr.Validation("shape mismatch: %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
}

// FromImage converts an image to a luminance plane normalised to [0, 1].
func FromImage(img image.Image) *Plane {
	b := img.Bounds()
	p := NewPlane(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				p.Set(x, y, float64(src.GrayAt(x+b.Min.X, y+b.Min.Y).Y)/255)
			}
		}
		return p
	case *image.Gray16:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				p.Set(x, y, float64(src.Gray16At(x+b.Min.X, y+b.Min.Y).Y)/65535)
			}
		}
		return p
	}

	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			p.Set(x, y, (LumaR*float64(r)+LumaG*float64(g)+LumaB*float64(bl))/65535)
		}
	}
	return p
}

// ChannelFromImage extracts channel c (0=R, 1=G, 2=B) normalised to [0, 1].
func ChannelFromImage(img image.Image, c int) (*Plane, error) {
	if c < 0 || c > 2 {
		return nil, apperr.Validation("channel must be 0, 1 or 2, got %d", c)
	}
	b := img.Bounds()
	p := NewPlane(b.Dx(), b.Dy())
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			v := [3]uint32{r, g, bl}[c]
			p.Set(x, y, float64(v)/65535)
		}
	}
	return p, nil
}

// Scaling selects how plane values are mapped to output intensities.
type Scaling int

const (
	// ScaleClip clips values to [0, 1].
	ScaleClip Scaling = iota
	// ScaleStretch maps [min, max] linearly onto [0, 1].
	ScaleStretch
)

// ParseScaling maps "clip" or "stretch" to a Scaling; empty means clip.
func ParseScaling(s string) (Scaling, error) {
	switch s {
	case "", "clip":
		return ScaleClip, nil
	case "stretch", "auto":
		return ScaleStretch, nil
	}
	return ScaleClip, apperr.Validation("unknown scaling %q (want clip or stretch)", s)
}

// Normalized returns values mapped to [0, 1] according to the scaling.
func (p *Plane) Normalized(s Scaling) *Plane {
	if s == ScaleStretch {
		lo, hi := p.MinMax()
		if hi == lo {
			return NewPlane(p.Width, p.Height)
		}
		return p.Map(func(v float64) float64 { return (v - lo) / (hi - lo) })
	}
	return p.Map(clip01)
}

// ToGray16 renders the plane as a 16-bit grayscale image.
func (p *Plane) ToGray16(s Scaling) *image.Gray16 {
	n := p.Normalized(s)
	out := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			out.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(n.At(x, y) * 65535))})
		}
	}
	return out
}

// ToGray renders the plane as an 8-bit grayscale image.
func (p *Plane) ToGray(s Scaling) *image.Gray {
	n := p.Normalized(s)
	out := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			out.SetGray(x, y, color.Gray{Y: uint8(math.Round(n.At(x, y) * 255))})
		}
	}
	return out
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
