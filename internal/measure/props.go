package measure

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// BBox is a bounding box; Max values are exclusive.
type BBox struct {
	MinRow int `json:"min_row"`
	MinCol int `json:"min_col"`
	MaxRow int `json:"max_row"`
	MaxCol int `json:"max_col"`
}

// Region holds the measured properties of one labelled object.
type Region struct {
	Label              int     `json:"label"`
	Area               int     `json:"area"`
	CentroidRow        float64 `json:"centroid_row"`
	CentroidCol        float64 `json:"centroid_col"`
	BBox               BBox    `json:"bbox"`
	Perimeter          float64 `json:"perimeter"`
	EquivalentDiameter float64 `json:"equivalent_diameter"`
	MajorAxisLength    float64 `json:"major_axis_length"`
	MinorAxisLength    float64 `json:"minor_axis_length"`
	Eccentricity       float64 `json:"eccentricity"`
	Orientation        float64 `json:"orientation"`
	ConvexArea         int     `json:"convex_area"`
	Solidity           float64 `json:"solidity"`
	Extent             float64 `json:"extent"`

	// Intensity statistics are present only when an intensity image was given.
	MeanIntensity *float64 `json:"mean_intensity,omitempty"`
	MinIntensity  *float64 `json:"min_intensity,omitempty"`
	MaxIntensity  *float64 `json:"max_intensity,omitempty"`
}

// RegionProps measures every labelled object. intensity may be nil; when
// given it must match the label image shape.
func RegionProps(l *Labels, intensity *imaging.Plane) ([]Region, error) {
	if intensity != nil && (intensity.Width != l.Width || intensity.Height != l.Height) {
		return nil, apperr.Validation("intensity image %dx%d does not match labels %dx%d",
			intensity.Width, intensity.Height, l.Width, l.Height)
	}

	regions := make([]Region, l.Count)
	for i := range regions {
		regions[i] = Region{
			Label: i + 1,
			BBox:  BBox{MinRow: l.Height, MinCol: l.Width, MaxRow: -1, MaxCol: -1},
		}
	}

	// first pass: area, centroid sums, bbox, intensity
	sums := make([][2]float64, l.Count)
	isum := make([]float64, l.Count)
	imin := make([]float64, l.Count)
	imax := make([]float64, l.Count)
	for i := range imin {
		imin[i] = math.Inf(1)
		imax[i] = math.Inf(-1)
	}
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			k := l.Pix[y*l.Width+x]
			if k == 0 {
				continue
			}
			r := &regions[k-1]
			r.Area++
			sums[k-1][0] += float64(y)
			sums[k-1][1] += float64(x)
			r.BBox.MinRow = min(r.BBox.MinRow, y)
			r.BBox.MinCol = min(r.BBox.MinCol, x)
			r.BBox.MaxRow = max(r.BBox.MaxRow, y+1)
			r.BBox.MaxCol = max(r.BBox.MaxCol, x+1)
			if intensity != nil {
				v := intensity.At(x, y)
				isum[k-1] += v
				imin[k-1] = math.Min(imin[k-1], v)
				imax[k-1] = math.Max(imax[k-1], v)
			}
		}
	}

	for i := range regions {
		r := &regions[i]
		if r.Area == 0 {
			continue
		}
		a := float64(r.Area)
		r.CentroidRow = sums[i][0] / a
		r.CentroidCol = sums[i][1] / a
		r.EquivalentDiameter = math.Sqrt(4 * a / math.Pi)
		bh, bw := r.BBox.MaxRow-r.BBox.MinRow, r.BBox.MaxCol-r.BBox.MinCol
		r.Extent = a / float64(bh*bw)
		if intensity != nil {
			mean, lo, hi := isum[i]/a, imin[i], imax[i]
			r.MeanIntensity, r.MinIntensity, r.MaxIntensity = &mean, &lo, &hi
		}

		crop := cropLabel(l, r.Label, r.BBox)
		r.Perimeter = Perimeter(crop)
		r.ConvexArea = ConvexHullMask(crop).Count()
		r.Solidity = a / float64(r.ConvexArea)
		if err := inertia(crop, r); err != nil {
			return nil, err
		}
	}
	return regions, nil
}

// cropLabel returns the bbox-sized mask of label k.
func cropLabel(l *Labels, k int, b BBox) *imaging.Mask {
	m := imaging.NewMask(b.MaxCol-b.MinCol, b.MaxRow-b.MinRow)
	for y := b.MinRow; y < b.MaxRow; y++ {
		for x := b.MinCol; x < b.MaxCol; x++ {
			if l.Pix[y*l.Width+x] == k {
				m.Set(x-b.MinCol, y-b.MinRow, true)
			}
		}
	}
	return m
}

// inertia fills the axis lengths, eccentricity and orientation from the
// eigenvalues of the inertia tensor.
func inertia(m *imaging.Mask, r *Region) error {
	var n, sr, sc float64
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] {
				n++
				sr += float64(y)
				sc += float64(x)
			}
		}
	}
	cr, cc := sr/n, sc/n
	var mu20, mu02, mu11 float64
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] {
				dr, dc := float64(y)-cr, float64(x)-cc
				mu20 += dr * dr
				mu02 += dc * dc
				mu11 += dr * dc
			}
		}
	}
	// tensor in (row, col) order
	a, b, c := mu02/n, -mu11/n, mu20/n
	t := mat.NewSymDense(2, []float64{a, b, b, c})

	var eig mat.EigenSym
	if !eig.Factorize(t, false) {
		return apperr.Processing("inertia tensor eigen decomposition failed", nil)
	}
	vals := eig.Values(nil) // ascending
	l1, l2 := math.Max(vals[1], 0), math.Max(vals[0], 0)

	r.MajorAxisLength = 4 * math.Sqrt(l1)
	r.MinorAxisLength = 4 * math.Sqrt(l2)
	if l1 > 0 {
		r.Eccentricity = math.Sqrt(1 - l2/l1)
	}
	if a-c == 0 {
		if b < 0 {
			r.Orientation = -math.Pi / 4
		} else {
			r.Orientation = math.Pi / 4
		}
	} else {
		r.Orientation = 0.5 * math.Atan2(-2*b, c-a)
	}
	return nil
}

// Perimeter estimates the boundary length of a binary object by classifying
// each boundary pixel by its 4-connected neighbourhood: straight runs count
// 1, diagonal steps sqrt(2) and corners (1+sqrt(2))/2.
func Perimeter(m *imaging.Mask) float64 {
	w, h := m.Width, m.Height
	border := imaging.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.Pix[y*w+x] && !(m.At(x-1, y) && m.At(x+1, y) && m.At(x, y-1) && m.At(x, y+1)) {
				border.Set(x, y, true)
			}
		}
	}

	weights := map[int]float64{
		5: 1, 7: 1, 15: 1, 17: 1, 25: 1, 27: 1,
		21: math.Sqrt2, 33: math.Sqrt2,
		13: (1 + math.Sqrt2) / 2, 23: (1 + math.Sqrt2) / 2,
	}
	kernel := [3][3]int{{10, 2, 10}, {2, 1, 2}, {10, 2, 10}}
	var total float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			code := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if border.At(x+dx, y+dy) {
						code += kernel[dy+1][dx+1]
					}
				}
			}
			total += weights[code]
		}
	}
	return total
}
