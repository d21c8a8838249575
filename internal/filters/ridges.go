package filters

import (
	"math"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// DefaultRidgeSigmas are the scales searched by the ridge filters.
var DefaultRidgeSigmas = []float64{1, 3, 5, 7, 9}

// RidgeParams configures Sato, Meijering and Frangi filters.
type RidgeParams struct {
	Sigmas []float64
	// BlackRidges selects dark tubes on a bright background.
	BlackRidges bool
	// Frangi only: Beta weights blob-versus-line, Gamma the structureness
	// term; zero Gamma uses half the largest Hessian norm.
	Beta  float64
	Gamma float64
}

// DefaultRidge returns the default scales with black ridges and Beta 0.5.
func DefaultRidge() RidgeParams {
	return RidgeParams{Sigmas: DefaultRidgeSigmas, BlackRidges: true, Beta: 0.5}
}

func (rp RidgeParams) validate() error {
	if len(rp.Sigmas) == 0 {
		return apperr.Validation("at least one sigma is required")
	}
	for _, s := range rp.Sigmas {
		if s <= 0 {
			return apperr.Validation("sigmas must be positive, got %g", s)
		}
	}
	return nil
}

// hessianEigen returns the scale-normalised Hessian eigenvalues of the
// Gaussian-smoothed plane, l1 <= l2. When bright ridges are requested the
// plane is negated first so valleys always carry positive curvature.
func hessianEigen(p *imaging.Plane, sigma float64, blackRidges bool) (l1, l2 []float64) {
	src := p
	if !blackRidges {
		src = p.Scale(-1)
	}
	s, _ := Gaussian(src, sigma)
	w, h := p.Width, p.Height
	l1 = make([]float64, w*h)
	l2 = make([]float64, w*h)
	norm := sigma * sigma
	forRows(h, func(y int) {
		for x := 0; x < w; x++ {
			c := s.At(x, y)
			hxx := s.AtClamped(x+1, y) - 2*c + s.AtClamped(x-1, y)
			hyy := s.AtClamped(x, y+1) - 2*c + s.AtClamped(x, y-1)
			hxy := (s.AtClamped(x+1, y+1) - s.AtClamped(x+1, y-1) -
				s.AtClamped(x-1, y+1) + s.AtClamped(x-1, y-1)) / 4
			hxx, hyy, hxy = hxx*norm, hyy*norm, hxy*norm
			mean := (hxx + hyy) / 2
			d := math.Sqrt((hxx-hyy)*(hxx-hyy)/4 + hxy*hxy)
			l1[y*w+x] = mean - d
			l2[y*w+x] = mean + d
		}
	})
	return l1, l2
}

// Sato enhances tubular structures: the largest positive curvature across
// scales.
func Sato(p *imaging.Plane, rp RidgeParams) (*imaging.Plane, error) {
	if err := rp.validate(); err != nil {
		return nil, err
	}
	out := imaging.NewPlane(p.Width, p.Height)
	for _, sigma := range rp.Sigmas {
		_, l2 := hessianEigen(p, sigma, rp.BlackRidges)
		for i, v := range l2 {
			out.Pix[i] = math.Max(out.Pix[i], v)
		}
	}
	return out, nil
}

// Meijering enhances neurite-like structures using the modified Hessian
// (alpha = -1/3), normalised so the strongest response is 1.
func Meijering(p *imaging.Plane, rp RidgeParams) (*imaging.Plane, error) {
	if err := rp.validate(); err != nil {
		return nil, err
	}
	const alpha = -1.0 / 3
	out := imaging.NewPlane(p.Width, p.Height)
	for _, sigma := range rp.Sigmas {
		l1, l2 := hessianEigen(p, sigma, rp.BlackRidges)
		for i := range l1 {
			m := math.Max(l1[i]+alpha*l2[i], l2[i]+alpha*l1[i])
			out.Pix[i] = math.Max(out.Pix[i], m)
		}
	}
	if _, hi := out.MinMax(); hi > 0 {
		out = out.Scale(1 / hi)
	}
	return out, nil
}

// Frangi computes the vesselness measure of Frangi et al. over the given
// scales.
func Frangi(p *imaging.Plane, rp RidgeParams) (*imaging.Plane, error) {
	if err := rp.validate(); err != nil {
		return nil, err
	}
	beta := rp.Beta
	if beta <= 0 {
		beta = 0.5
	}
	out := imaging.NewPlane(p.Width, p.Height)
	for _, sigma := range rp.Sigmas {
		l1, l2 := hessianEigen(p, sigma, rp.BlackRidges)
		// sort by magnitude: |a| <= |b|
		a := make([]float64, len(l1))
		b := make([]float64, len(l1))
		maxNorm := 0.0
		for i := range l1 {
			a[i], b[i] = l1[i], l2[i]
			if math.Abs(a[i]) > math.Abs(b[i]) {
				a[i], b[i] = b[i], a[i]
			}
			maxNorm = math.Max(maxNorm, math.Hypot(a[i], b[i]))
		}
		gamma := rp.Gamma
		if gamma <= 0 {
			gamma = maxNorm / 2
		}
		if gamma == 0 {
			continue
		}
		for i := range a {
			if b[i] <= 0 {
				continue
			}
			rb := a[i] / b[i]
			s2 := a[i]*a[i] + b[i]*b[i]
			v := math.Exp(-rb*rb/(2*beta*beta)) * (1 - math.Exp(-s2/(2*gamma*gamma)))
			out.Pix[i] = math.Max(out.Pix[i], v)
		}
	}
	return out, nil
}
