package color

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Stain absorption vectors (Ruifrok & Johnston), one row per stain:
// haematoxylin, eosin, DAB.
var rgbFromHED = mat.NewDense(3, 3, []float64{
	0.65, 0.70, 0.29,
	0.07, 0.99, 0.11,
	0.27, 0.57, 0.78,
})

// logFloor keeps the logarithm finite for black pixels.
const logFloor = 1e-6

// StainNames lists the HED stains in index order.
var StainNames = [3]string{"hematoxylin", "eosin", "dab"}

// HED holds per-pixel stain concentrations.
type HED struct {
	H *imaging.Plane
	E *imaging.Plane
	D *imaging.Plane
}

// Stain returns the concentration plane for index 0 (H), 1 (E) or 2 (D).
func (s *HED) Stain(i int) (*imaging.Plane, error) {
	switch i {
	case 0:
		return s.H, nil
	case 1:
		return s.E, nil
	case 2:
		return s.D, nil
	}
	return nil, apperr.Validation("stain must be 0, 1 or 2, got %d", i)
}

// ParseStain accepts "h"/"hematoxylin", "e"/"eosin" or "d"/"dab".
func ParseStain(s string) (int, error) {
	switch s {
	case "h", "hematoxylin", "haematoxylin":
		return 0, nil
	case "e", "eosin":
		return 1, nil
	case "d", "dab":
		return 2, nil
	}
	return 0, apperr.Validation("unknown stain %q (want hematoxylin, eosin or dab)", s)
}

// RGBToHED separates an RGB image into stain concentrations by colour
// deconvolution. Concentrations are clipped at zero.
func RGBToHED(rgb *imaging.RGB) (*HED, error) {
	var inv mat.Dense
	if err := inv.Inverse(rgbFromHED); err != nil {
		return nil, apperr.Internal("stain matrix is singular", err)
	}

	w, h := rgb.Width(), rgb.Height()
	out := &HED{H: imaging.NewPlane(w, h), E: imaging.NewPlane(w, h), D: imaging.NewPlane(w, h)}
	logAdjust := math.Log(logFloor)
	for i := range out.H.Pix {
		od := [3]float64{
			math.Log(math.Max(rgb.R.Pix[i], logFloor)) / logAdjust,
			math.Log(math.Max(rgb.G.Pix[i], logFloor)) / logAdjust,
			math.Log(math.Max(rgb.B.Pix[i], logFloor)) / logAdjust,
		}
		for j, dst := range [3]*imaging.Plane{out.H, out.E, out.D} {
			var v float64
			for k := 0; k < 3; k++ {
				v += od[k] * inv.At(k, j)
			}
			dst.Pix[i] = math.Max(v, 0)
		}
	}
	return out, nil
}

// HEDToRGB recombines stain concentrations into an RGB image.
func HEDToRGB(s *HED) *imaging.RGB {
	w, h := s.H.Width, s.H.Height
	out := &imaging.RGB{R: imaging.NewPlane(w, h), G: imaging.NewPlane(w, h), B: imaging.NewPlane(w, h)}
	logAdjust := -math.Log(logFloor)
	for i := range out.R.Pix {
		conc := [3]float64{s.H.Pix[i], s.E.Pix[i], s.D.Pix[i]}
		for j, dst := range [3]*imaging.Plane{out.R, out.G, out.B} {
			var logRGB float64
			for k := 0; k < 3; k++ {
				logRGB -= conc[k] * logAdjust * rgbFromHED.At(k, j)
			}
			dst.Pix[i] = clip(math.Exp(logRGB))
		}
	}
	return out
}

// IsolateStain renders a single stain as it would look on its own.
func IsolateStain(s *HED, stain int) (*imaging.RGB, error) {
	src, err := s.Stain(stain)
	if err != nil {
		return nil, err
	}
	w, h := src.Width, src.Height
	only := &HED{H: imaging.NewPlane(w, h), E: imaging.NewPlane(w, h), D: imaging.NewPlane(w, h)}
	switch stain {
	case 0:
		only.H = src
	case 1:
		only.E = src
	case 2:
		only.D = src
	}
	return HEDToRGB(only), nil
}
