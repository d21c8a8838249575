package morphology

import (
	"math"

	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// ErodeGray replaces each value by the minimum under the footprint.
// Borders are mirrored.
func ErodeGray(p *imaging.Plane, f *Footprint) *imaging.Plane {
	offs := f.Offsets()
	out := imaging.NewPlane(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := math.Inf(1)
			for _, o := range offs {
				v = math.Min(v, p.AtReflect(x+o.DX, y+o.DY))
			}
			out.Set(x, y, v)
		}
	}
	return out
}

// DilateGray replaces each value by the maximum under the reflected
// footprint.
func DilateGray(p *imaging.Plane, f *Footprint) *imaging.Plane {
	offs := f.Offsets()
	out := imaging.NewPlane(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := math.Inf(-1)
			for _, o := range offs {
				v = math.Max(v, p.AtReflect(x-o.DX, y-o.DY))
			}
			out.Set(x, y, v)
		}
	}
	return out
}

// OpenGray is grey erosion followed by grey dilation.
func OpenGray(p *imaging.Plane, f *Footprint) *imaging.Plane {
	return DilateGray(ErodeGray(p, f), f)
}

// CloseGray is grey dilation followed by grey erosion.
func CloseGray(p *imaging.Plane, f *Footprint) *imaging.Plane {
	return ErodeGray(DilateGray(p, f), f)
}

// WhiteTophat returns the bright details smaller than the footprint:
// image - opening.
func WhiteTophat(p *imaging.Plane, f *Footprint) (*imaging.Plane, error) {
	return imaging.Subtract(p, OpenGray(p, f))
}

// BlackTophat returns the dark details smaller than the footprint:
// closing - image.
func BlackTophat(p *imaging.Plane, f *Footprint) (*imaging.Plane, error) {
	return imaging.Subtract(CloseGray(p, f), p)
}
