package imaging

import (
	"image"
	"image/color"
)

// Mask is a binary image; true marks foreground.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// MaskFromImage treats every pixel with non-zero luminance as foreground.
func MaskFromImage(img image.Image) *Mask {
	return FromImage(img).Threshold(0)
}

// At reports whether (x, y) is foreground. Out-of-range coordinates are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y).
func (m *Mask) Set(x, y int, v bool) {
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.Width, m.Height)
	copy(out.Pix, m.Pix)
	return out
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Fraction returns the foreground share in [0, 1].
func (m *Mask) Fraction() float64 {
	if len(m.Pix) == 0 {
		return 0
	}
	return float64(m.Count()) / float64(len(m.Pix))
}

// Invert returns the complement.
func (m *Mask) Invert() *Mask {
	out := NewMask(m.Width, m.Height)
	for i, v := range m.Pix {
		out.Pix[i] = !v
	}
	return out
}

// And returns the intersection of two masks of equal shape.
func (m *Mask) And(o *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for i := range out.Pix {
		out.Pix[i] = m.Pix[i] && o.Pix[i]
	}
	return out
}

// Equal reports whether both masks have the same shape and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i := range m.Pix {
		if m.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// Apply multiplies a plane by the mask, zeroing background pixels.
func (m *Mask) Apply(p *Plane) (*Plane, error) {
	if m.Width != p.Width || m.Height != p.Height {
		return nil, shapeError(p, &Plane{Width: m.Width, Height: m.Height})
	}
	out := NewPlane(p.Width, p.Height)
	for i, v := range m.Pix {
		if v {
			out.Pix[i] = p.Pix[i]
		}
	}
	return out, nil
}

// ToPlane converts to 0.0 / 1.0 values.
func (m *Mask) ToPlane() *Plane {
	out := NewPlane(m.Width, m.Height)
	for i, v := range m.Pix {
		if v {
			out.Pix[i] = 1
		}
	}
	return out
}

// ToGray renders foreground as white and background as black.
func (m *Mask) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
