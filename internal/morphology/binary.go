package morphology

import (
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Erode keeps a pixel when every footprint element lands on foreground.
// Pixels beyond the border count as foreground, so objects touching the
// border are not eroded from outside.
func Erode(m *imaging.Mask, f *Footprint) *imaging.Mask {
	offs := f.Offsets()
	out := imaging.NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			keep := true
			for _, o := range offs {
				nx, ny := x+o.DX, y+o.DY
				if nx < 0 || ny < 0 || nx >= m.Width || ny >= m.Height {
					continue
				}
				if !m.Pix[ny*m.Width+nx] {
					keep = false
					break
				}
			}
			out.Pix[y*m.Width+x] = keep
		}
	}
	return out
}

// Dilate sets a pixel when the reflected footprint hits any foreground pixel.
func Dilate(m *imaging.Mask, f *Footprint) *imaging.Mask {
	offs := f.Offsets()
	out := imaging.NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			for _, o := range offs {
				if m.At(x-o.DX, y-o.DY) {
					out.Pix[y*m.Width+x] = true
					break
				}
			}
		}
	}
	return out
}

// Open is erosion followed by dilation; it removes specks smaller than the
// footprint.
func Open(m *imaging.Mask, f *Footprint) *imaging.Mask {
	return Dilate(Erode(m, f), f)
}

// Close is dilation followed by erosion; it fills gaps smaller than the
// footprint.
func Close(m *imaging.Mask, f *Footprint) *imaging.Mask {
	return Erode(Dilate(m, f), f)
}

// BinaryMedian sets a pixel when at least half of the footprint (rounded up
// for odd sizes) covers foreground. Borders replicate the edge pixel.
func BinaryMedian(m *imaging.Mask, f *Footprint) *imaging.Mask {
	offs := f.Offsets()
	n := len(offs)
	need := n - n/2
	out := imaging.NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			count := 0
			for _, o := range offs {
				nx := min(max(x+o.DX, 0), m.Width-1)
				ny := min(max(y+o.DY, 0), m.Height-1)
				if m.Pix[ny*m.Width+nx] {
					count++
				}
			}
			out.Pix[y*m.Width+x] = count >= need
		}
	}
	return out
}
