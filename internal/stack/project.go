package stack

import (
	"context"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Projection methods.
const (
	ProjectMax  = "max"
	ProjectMin  = "min"
	ProjectMean = "mean"
	ProjectSum  = "sum"
	ProjectStd  = "std"
)

// Methods lists every projection method.
var Methods = []string{ProjectMax, ProjectMin, ProjectMean, ProjectSum, ProjectStd}

// Project collapses channel c along Z. std is the population standard
// deviation.
func (v *Volume) Project(c int, method string) (*imaging.Plane, error) {
	if c < 0 || c >= v.Channels {
		return nil, apperr.Validation("channel %d out of range [0, %d)", c, v.Channels)
	}
	if !slices.Contains(Methods, method) {
		return nil, apperr.Validation("unknown projection %q (want max, min, mean, sum or std)", method)
	}
	out := imaging.NewPlane(v.Width, v.Height)
	n := float64(v.Depth)
	for i := range out.Pix {
		var acc, sq float64
		lo, hi := math.Inf(1), math.Inf(-1)
		for z := 0; z < v.Depth; z++ {
			val := v.Planes[z][c].Pix[i]
			acc += val
			sq += val * val
			lo = math.Min(lo, val)
			hi = math.Max(hi, val)
		}
		switch method {
		case ProjectMax:
			out.Pix[i] = hi
		case ProjectMin:
			out.Pix[i] = lo
		case ProjectMean:
			out.Pix[i] = acc / n
		case ProjectSum:
			out.Pix[i] = acc
		case ProjectStd:
			mean := acc / n
			out.Pix[i] = math.Sqrt(math.Max(0, sq/n-mean*mean))
		}
	}
	return out, nil
}

// ProjectAll projects every channel concurrently, returning planes in
// channel order.
func (v *Volume) ProjectAll(ctx context.Context, method string) ([]*imaging.Plane, error) {
	out := make([]*imaging.Plane, v.Channels)
	g, ctx := errgroup.WithContext(ctx)
	for c := 0; c < v.Channels; c++ {
		c := c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := v.Project(c, method)
			if err != nil {
				return err
			}
			out[c] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
