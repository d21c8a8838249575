package filters

import (
	"math"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// SobelH responds to horizontal edges: positive where intensity increases
// downwards. Weights are normalised by 4.
func SobelH(p *imaging.Plane) *imaging.Plane {
	out := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		for x := 0; x < p.Width; x++ {
			below := p.AtReflect(x-1, y+1) + 2*p.AtReflect(x, y+1) + p.AtReflect(x+1, y+1)
			above := p.AtReflect(x-1, y-1) + 2*p.AtReflect(x, y-1) + p.AtReflect(x+1, y-1)
			out.Set(x, y, (below-above)/4)
		}
	})
	return out
}

// SobelV responds to vertical edges: positive where intensity increases to
// the right.
func SobelV(p *imaging.Plane) *imaging.Plane {
	out := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		for x := 0; x < p.Width; x++ {
			right := p.AtReflect(x+1, y-1) + 2*p.AtReflect(x+1, y) + p.AtReflect(x+1, y+1)
			left := p.AtReflect(x-1, y-1) + 2*p.AtReflect(x-1, y) + p.AtReflect(x-1, y+1)
			out.Set(x, y, (right-left)/4)
		}
	})
	return out
}

// Sobel returns the edge magnitude sqrt((h^2 + v^2) / 2).
func Sobel(p *imaging.Plane) *imaging.Plane {
	return magnitude(SobelH(p), SobelV(p))
}

// PrewittH responds to horizontal edges like SobelH but with uniform
// weights, normalised by 3.
func PrewittH(p *imaging.Plane) *imaging.Plane {
	out := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		for x := 0; x < p.Width; x++ {
			below := p.AtReflect(x-1, y+1) + p.AtReflect(x, y+1) + p.AtReflect(x+1, y+1)
			above := p.AtReflect(x-1, y-1) + p.AtReflect(x, y-1) + p.AtReflect(x+1, y-1)
			out.Set(x, y, (below-above)/3)
		}
	})
	return out
}

// PrewittV responds to vertical edges.
func PrewittV(p *imaging.Plane) *imaging.Plane {
	out := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		for x := 0; x < p.Width; x++ {
			right := p.AtReflect(x+1, y-1) + p.AtReflect(x+1, y) + p.AtReflect(x+1, y+1)
			left := p.AtReflect(x-1, y-1) + p.AtReflect(x-1, y) + p.AtReflect(x-1, y+1)
			out.Set(x, y, (right-left)/3)
		}
	})
	return out
}

// Prewitt returns the edge magnitude sqrt((h^2 + v^2) / 2).
func Prewitt(p *imaging.Plane) *imaging.Plane {
	return magnitude(PrewittH(p), PrewittV(p))
}

// RobertsPosDiag is the 2x2 cross difference p(x, y) - p(x+1, y+1).
func RobertsPosDiag(p *imaging.Plane) *imaging.Plane {
	out := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		for x := 0; x < p.Width; x++ {
			out.Set(x, y, p.At(x, y)-p.AtReflect(x+1, y+1))
		}
	})
	return out
}

// RobertsNegDiag is the 2x2 cross difference p(x+1, y) - p(x, y+1).
func RobertsNegDiag(p *imaging.Plane) *imaging.Plane {
	out := imaging.NewPlane(p.Width, p.Height)
	forRows(p.Height, func(y int) {
		for x := 0; x < p.Width; x++ {
			out.Set(x, y, p.AtReflect(x+1, y)-p.AtReflect(x, y+1))
		}
	})
	return out
}

// Roberts returns the Roberts cross magnitude sqrt((pos^2 + neg^2) / 2).
func Roberts(p *imaging.Plane) *imaging.Plane {
	return magnitude(RobertsPosDiag(p), RobertsNegDiag(p))
}

func magnitude(a, b *imaging.Plane) *imaging.Plane {
	out := imaging.NewPlane(a.Width, a.Height)
	for i := range out.Pix {
		out.Pix[i] = math.Sqrt((a.Pix[i]*a.Pix[i] + b.Pix[i]*b.Pix[i]) / 2)
	}
	return out
}

// CannyParams configures Canny edge detection. Thresholds apply to the
// Sobel gradient magnitude of the smoothed plane.
type CannyParams struct {
	Sigma float64
	Low   float64
	High  float64
}

// DefaultCanny returns sigma 1 with thresholds 0.1 and 0.2.
func DefaultCanny() CannyParams {
	return CannyParams{Sigma: 1, Low: 0.1, High: 0.2}
}

// Canny detects thin edges:
//
//  1. Gaussian smoothing with Sigma
//  2. Sobel gradients, magnitude and direction
//  3. non-maximum suppression along the gradient direction
//  4. hysteresis: pixels above High seed edges that grow through
//     8-connected pixels above Low
func Canny(p *imaging.Plane, cp CannyParams) (*imaging.Mask, error) {
	if cp.Low > cp.High {
		return nil, apperr.Validation("low threshold (%g) exceeds high threshold (%g)", cp.Low, cp.High)
	}
	blurred, err := Gaussian(p, cp.Sigma)
	if err != nil {
		return nil, err
	}
	gx, gy := SobelV(blurred), SobelH(blurred)
	w, h := p.Width, p.Height
	mag := imaging.NewPlane(w, h)
	for i := range mag.Pix {
		mag.Pix[i] = math.Hypot(gx.Pix[i], gy.Pix[i])
	}

	thin := imaging.NewPlane(w, h)
	forRows(h, func(y int) {
		if y == 0 || y == h-1 {
			return
		}
		for x := 1; x < w-1; x++ {
			m := mag.At(x, y)
			if m == 0 {
				continue
			}
			n1, n2 := neighboursAlong(mag, x, y, math.Atan2(gy.At(x, y), gx.At(x, y)))
			if m >= n1 && m >= n2 {
				thin.Set(x, y, m)
			}
		}
	})

	out := imaging.NewMask(w, h)
	var stack []int
	for i, v := range thin.Pix {
		if v >= cp.High && !out.Pix[i] {
			out.Pix[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if !out.Pix[j] && thin.Pix[j] >= cp.Low && thin.Pix[j] > 0 {
					out.Pix[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return out, nil
}

// neighboursAlong returns the magnitudes on either side of (x, y) along the
// gradient direction, quantised to 45 degrees. y grows downwards.
func neighboursAlong(mag *imaging.Plane, x, y int, angle float64) (float64, float64) {
	a := math.Mod(angle+math.Pi, math.Pi)
	switch {
	case a < math.Pi/8 || a >= 7*math.Pi/8:
		return mag.At(x-1, y), mag.At(x+1, y)
	case a < 3*math.Pi/8:
		return mag.At(x-1, y-1), mag.At(x+1, y+1)
	case a < 5*math.Pi/8:
		return mag.At(x, y-1), mag.At(x, y+1)
	default:
		return mag.At(x+1, y-1), mag.At(x-1, y+1)
	}
}
