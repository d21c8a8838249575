// Package morphology implements binary and grey-level mathematical
// morphology: erosion, dilation, opening, closing, top-hats, area filters,
// convex hulls and skeletonisation.
package morphology

import (
	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// Footprint is a structuring element. Its origin is at (Width/2, Height/2).
type Footprint struct {
	Width  int
	Height int
	Pix    []bool
}

// Offset is a footprint element relative to the origin.
type Offset struct {
	DX int
	DY int
}

// Offsets returns the active elements relative to the origin.
func (f *Footprint) Offsets() []Offset {
	ox, oy := f.Width/2, f.Height/2
	var out []Offset
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if f.Pix[y*f.Width+x] {
				out = append(out, Offset{DX: x - ox, DY: y - oy})
			}
		}
	}
	return out
}

// Size returns the number of active elements.
func (f *Footprint) Size() int {
	n := 0
	for _, v := range f.Pix {
		if v {
			n++
		}
	}
	return n
}

// Rectangle returns a w x h block.
func Rectangle(w, h int) (*Footprint, error) {
	if w < 1 || h < 1 {
		return nil, apperr.Validation("footprint dimensions must be positive, got %dx%d", w, h)
	}
	f := &Footprint{Width: w, Height: h, Pix: make([]bool, w*h)}
	for i := range f.Pix {
		f.Pix[i] = true
	}
	return f, nil
}

// Square returns an n x n block.
func Square(n int) (*Footprint, error) {
	return Rectangle(n, n)
}

// Disk returns the pixels within Euclidean distance r of the centre.
func Disk(r int) (*Footprint, error) {
	return radial(r, func(dx, dy int) bool { return dx*dx+dy*dy <= r*r })
}

// Diamond returns the pixels within city-block distance r of the centre.
func Diamond(r int) (*Footprint, error) {
	return radial(r, func(dx, dy int) bool { return abs(dx)+abs(dy) <= r })
}

func radial(r int, in func(dx, dy int) bool) (*Footprint, error) {
	if r < 0 {
		return nil, apperr.Validation("footprint radius must be non-negative, got %d", r)
	}
	n := 2*r + 1
	f := &Footprint{Width: n, Height: n, Pix: make([]bool, n*n)}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			f.Pix[y*n+x] = in(x-r, y-r)
		}
	}
	return f, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ParseFootprint builds a footprint by shape name: "square" and "rectangle"
// take a side length, "disk" and "diamond" a radius. A rectangle uses height
// when positive, otherwise it is square.
func ParseFootprint(shape string, size, height int) (*Footprint, error) {
	switch shape {
	case "", "square":
		return Square(size)
	case "rectangle":
		if height <= 0 {
			height = size
		}
		return Rectangle(size, height)
	case "disk":
		return Disk(size)
	case "diamond":
		return Diamond(size)
	}
	return nil, apperr.Validation("unknown footprint shape %q (want square, rectangle, disk or diamond)", shape)
}
