package measure

import (
	"sort"

	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Point is a 2-D coordinate in pixel units.
type Point struct {
	X float64
	Y float64
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull returns the hull vertices in counter-clockwise order using
// Andrew's monotone chain. Collinear points are dropped.
func ConvexHull(pts []Point) []Point {
	if len(pts) < 3 {
		return append([]Point(nil), pts...)
	}
	p := append([]Point(nil), pts...)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})

	hull := make([]Point, 0, 2*len(p))
	for _, pt := range p {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], pt) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	lower := len(hull) + 1
	for i := len(p) - 2; i >= 0; i-- {
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p[i]) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p[i])
	}
	return hull[:len(hull)-1]
}

// insideConvex reports whether q lies inside or on a counter-clockwise hull.
func insideConvex(hull []Point, q Point) bool {
	const eps = 1e-9
	switch len(hull) {
	case 0:
		return false
	case 1:
		return hull[0] == q
	case 2:
		a, b := hull[0], hull[1]
		if c := cross(a, b, q); c > eps || c < -eps {
			return false
		}
		return q.X >= min(a.X, b.X)-eps && q.X <= max(a.X, b.X)+eps &&
			q.Y >= min(a.Y, b.Y)-eps && q.Y <= max(a.Y, b.Y)+eps
	}
	for i := range hull {
		if cross(hull[i], hull[(i+1)%len(hull)], q) < -eps {
			return false
		}
	}
	return true
}

// edge midpoints of a pixel, so the hull encloses pixels rather than their
// centres
var pixelOffsets = [4]Point{{0.5, 0}, {-0.5, 0}, {0, 0.5}, {0, -0.5}}

// ConvexHullMask returns the smallest convex region containing every
// foreground pixel of m. Pixels are included when their centre lies inside
// or on the hull.
func ConvexHullMask(m *imaging.Mask) *imaging.Mask {
	out := imaging.NewMask(m.Width, m.Height)
	minX, minY, maxX, maxY := m.Width, m.Height, -1, -1
	var pts []Point
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Pix[y*m.Width+x] {
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
			// interior pixels cannot be hull vertices
			if isInterior(m, x, y) {
				continue
			}
			for _, o := range pixelOffsets {
				pts = append(pts, Point{float64(x) + o.X, float64(y) + o.Y})
			}
		}
	}
	if maxX < 0 {
		return out
	}
	hull := ConvexHull(pts)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if m.Pix[y*m.Width+x] || insideConvex(hull, Point{float64(x), float64(y)}) {
				out.Pix[y*m.Width+x] = true
			}
		}
	}
	return out
}

func isInterior(m *imaging.Mask, x, y int) bool {
	return m.At(x-1, y) && m.At(x+1, y) && m.At(x, y-1) && m.At(x, y+1)
}
