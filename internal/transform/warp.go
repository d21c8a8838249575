package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// InverseMap maps an output coordinate to the input coordinate it samples.
type InverseMap func(x, y float64) (float64, float64)

// Mode selects how samples outside the input are handled.
type Mode int

const (
	// ModeConstant returns the fill value outside the input.
	ModeConstant Mode = iota
	// ModeReflect mirrors coordinates about the edge pixels without
	// repeating them.
	ModeReflect
)

// Warp resamples p through an inverse coordinate map with bilinear
// interpolation.
func Warp(p *imaging.Plane, inv InverseMap, mode Mode, cval float64) *imaging.Plane {
	out := imaging.NewPlane(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			sx, sy := inv(float64(x), float64(y))
			if mode == ModeReflect {
				out.Set(x, y, bilinearReflect(p, sx, sy))
				continue
			}
			out.Set(x, y, p.Bilinear(sx, sy, cval))
		}
	}
	return out
}

// WarpRGB warps each channel with the same map.
func WarpRGB(rgb *imaging.RGB, inv InverseMap, mode Mode, cval float64) *imaging.RGB {
	return &imaging.RGB{
		R: Warp(rgb.R, inv, mode, cval),
		G: Warp(rgb.G, inv, mode, cval),
		B: Warp(rgb.B, inv, mode, cval),
	}
}

func bilinearReflect(p *imaging.Plane, x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)
	top := p.AtMirror(x0, y0)*(1-fx) + p.AtMirror(x0+1, y0)*fx
	bottom := p.AtMirror(x0, y0+1)*(1-fx) + p.AtMirror(x0+1, y0+1)*fx
	return top*(1-fy) + bottom*fy
}

// SwirlParams configures Swirl. Unless Centered is set the swirl is
// centred on (w/2, h/2).
type SwirlParams struct {
	CenterX  float64
	CenterY  float64
	Centered bool
	Strength float64
	Radius   float64
	Rotation float64
}

// SwirlMap returns the inverse swirl mapping for a w x h image.
//
// A pixel at distance rho from the centre samples the input at the same
// distance, rotated by rotation + strength*exp(-rho/r) radians, where
// r = radius*ln(2)/5 so that the swirl has decayed to 1/1000 of its strength
// at the given radius.
func SwirlMap(w, h int, sp SwirlParams) (InverseMap, error) {
	if sp.Radius <= 0 {
		return nil, apperr.Validation("swirl radius must be positive, got %g", sp.Radius)
	}
	cx, cy := float64(w)/2, float64(h)/2
	if sp.Centered {
		cx, cy = sp.CenterX, sp.CenterY
	}
	r := sp.Radius / 5 * math.Ln2
	return func(x, y float64) (float64, float64) {
		dx, dy := x-cx, y-cy
		rho := math.Hypot(dx, dy)
		theta := sp.Rotation + sp.Strength*math.Exp(-rho/r) + math.Atan2(dy, dx)
		return cx + rho*math.Cos(theta), cy + rho*math.Sin(theta)
	}, nil
}

// Swirl applies a swirl warp with mirrored borders.
func Swirl(rgb *imaging.RGB, sp SwirlParams) (*imaging.RGB, error) {
	inv, err := SwirlMap(rgb.Width(), rgb.Height(), sp)
	if err != nil {
		return nil, err
	}
	return WarpRGB(rgb, inv, ModeReflect, 0), nil
}

// AffineMap returns the inverse of the forward affine transform given as a
// row-major 2x3 or 3x3 matrix acting on (x, y, 1).
func AffineMap(m []float64) (InverseMap, error) {
	var full []float64
	switch len(m) {
	case 6:
		full = append(append([]float64{}, m...), 0, 0, 1)
	case 9:
		full = m
	default:
		return nil, apperr.Validation("affine matrix needs 6 or 9 values, got %d", len(m))
	}

	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(3, 3, full)); err != nil {
		return nil, apperr.Validation("affine matrix is not invertible: %v", err)
	}
	a, b, c := inv.At(0, 0), inv.At(0, 1), inv.At(0, 2)
	d, e, f := inv.At(1, 0), inv.At(1, 1), inv.At(1, 2)
	g, h, k := inv.At(2, 0), inv.At(2, 1), inv.At(2, 2)
	return func(x, y float64) (float64, float64) {
		wz := g*x + h*y + k
		if wz == 0 {
			return math.Inf(1), math.Inf(1)
		}
		return (a*x + b*y + c) / wz, (d*x + e*y + f) / wz
	}, nil
}

// Affine applies a forward affine (or projective) matrix, filling uncovered
// pixels with black.
func Affine(rgb *imaging.RGB, m []float64) (*imaging.RGB, error) {
	inv, err := AffineMap(m)
	if err != nil {
		return nil, err
	}
	return WarpRGB(rgb, inv, ModeConstant, 0), nil
}
