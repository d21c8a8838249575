package filters

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// AddGaussianNoise adds zero-mean normal noise with the given standard
// deviation. The result is not clipped, so values may leave [0, 1]. The same
// seed always gives the same noise.
func AddGaussianNoise(p *imaging.Plane, sigma float64, seed uint64) (*imaging.Plane, error) {
	if sigma < 0 {
		return nil, apperr.Validation("noise sigma must be non-negative, got %g", sigma)
	}
	out := p.Clone()
	if sigma == 0 {
		return out, nil
	}
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewSource(seed)}
	for i := range out.Pix {
		out.Pix[i] += dist.Rand()
	}
	return out, nil
}
