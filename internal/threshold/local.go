package threshold

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Local method names.
const (
	MethodNiblack = "niblack"
	MethodSauvola = "sauvola"
)

// DefaultK is the default weight of the local standard deviation.
const DefaultK = 0.2

// DefaultR is the Sauvola dynamic range used for float images: half the
// width of the nominal range [-1, 1].
const DefaultR = 1.0

// LocalParams configures Niblack and Sauvola thresholds.
type LocalParams struct {
	Window int
	K      float64
	// R is the Sauvola dynamic range of the standard deviation; zero means
	// DefaultR.
	R float64
}

func (lp LocalParams) validate() error {
	if lp.Window < 3 || lp.Window%2 == 0 {
		return apperr.Validation("window size must be an odd integer >= 3, got %d", lp.Window)
	}
	if lp.R < 0 {
		return apperr.Validation("dynamic range r must be positive, got %g", lp.R)
	}
	return nil
}

// Local dispatches to Niblack or Sauvola.
func Local(p *imaging.Plane, method string, lp LocalParams) (*imaging.Plane, error) {
	switch method {
	case MethodNiblack:
		return Niblack(p, lp)
	case MethodSauvola:
		return Sauvola(p, lp)
	}
	return nil, apperr.Validation("unknown local threshold method %q", method)
}

// Niblack computes T = m - k*s over a sliding window.
func Niblack(p *imaging.Plane, lp LocalParams) (*imaging.Plane, error) {
	if err := lp.validate(); err != nil {
		return nil, err
	}
	mean, std := meanStd(p, lp.Window)
	out := imaging.NewPlane(p.Width, p.Height)
	for i := range out.Pix {
		out.Pix[i] = mean.Pix[i] - lp.K*std.Pix[i]
	}
	return out, nil
}

// Sauvola computes T = m * (1 + k*(s/R - 1)) over a sliding window.
func Sauvola(p *imaging.Plane, lp LocalParams) (*imaging.Plane, error) {
	if err := lp.validate(); err != nil {
		return nil, err
	}
	r := lp.R
	if r == 0 {
		r = DefaultR
	}
	mean, std := meanStd(p, lp.Window)
	out := imaging.NewPlane(p.Width, p.Height)
	for i := range out.Pix {
		out.Pix[i] = mean.Pix[i] * (1 + lp.K*(std.Pix[i]/r-1))
	}
	return out, nil
}

// meanStd returns the local mean and standard deviation over a w x w window,
// using integral images of the values and their squares. Borders are mirrored
// without repeating the edge pixel.
func meanStd(p *imaging.Plane, w int) (*imaging.Plane, *imaging.Plane) {
	half := w / 2
	pw, ph := p.Width+2*half, p.Height+2*half
	// integral images with a leading zero row and column
	sum := make([]float64, (pw+1)*(ph+1))
	sq := make([]float64, (pw+1)*(ph+1))
	stride := pw + 1
	for y := 0; y < ph; y++ {
		var rowSum, rowSq float64
		sy := reflect101(y-half, p.Height)
		for x := 0; x < pw; x++ {
			v := p.At(reflect101(x-half, p.Width), sy)
			rowSum += v
			rowSq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
			sq[(y+1)*stride+x+1] = sq[y*stride+x+1] + rowSq
		}
	}

	area := float64(w * w)
	mean := imaging.NewPlane(p.Width, p.Height)
	std := imaging.NewPlane(p.Width, p.Height)
	box := func(ii []float64, x, y int) float64 {
		x1, y1 := x+w, y+w
		return ii[y1*stride+x1] - ii[y*stride+x1] - ii[y1*stride+x] + ii[y*stride+x]
	}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			m := box(sum, x, y) / area
			v := box(sq, x, y)/area - m*m
			mean.Set(x, y, m)
			std.Set(x, y, math.Sqrt(math.Max(v, 0)))
		}
	}
	return mean, std
}

// reflect101 mirrors i into [0, n) without repeating the edge (c b | a b c | b a).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// Preview8 thresholds a display image at level in [0, 1] on its 8-bit
// luminance; pixels at or above the level become white.
func Preview8(img image.Image, level float64) (*image.Gray, error) {
	if level < 0 || level > 1 {
		return nil, apperr.Validation("preview level must be in [0, 1], got %g", level)
	}
	return segment.Threshold(img, uint8(math.Round(level*255))), nil
}
