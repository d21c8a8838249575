package morphology

import "github.com/ironsheep/bioimage-lab-mcp/internal/imaging"

// Skeletonize thins objects to one-pixel-wide, 8-connected centre lines
// using the Zhang-Suen algorithm.
func Skeletonize(m *imaging.Mask) *imaging.Mask {
	out := m.Clone()
	var del []int
	for {
		changed := false
		for step := 0; step < 2; step++ {
			del = del[:0]
			for y := 0; y < out.Height; y++ {
				for x := 0; x < out.Width; x++ {
					if out.Pix[y*out.Width+x] && deletable(out, x, y, step) {
						del = append(del, y*out.Width+x)
					}
				}
			}
			for _, i := range del {
				out.Pix[i] = false
			}
			if len(del) > 0 {
				changed = true
			}
		}
		if !changed {
			return out
		}
	}
}

// deletable applies the Zhang-Suen conditions. Neighbours p2..p9 run
// clockwise from north.
func deletable(m *imaging.Mask, x, y, step int) bool {
	p := [8]bool{
		m.At(x, y-1),   // p2 north
		m.At(x+1, y-1), // p3
		m.At(x+1, y),   // p4 east
		m.At(x+1, y+1), // p5
		m.At(x, y+1),   // p6 south
		m.At(x-1, y+1), // p7
		m.At(x-1, y),   // p8 west
		m.At(x-1, y-1), // p9
	}
	b := 0
	for _, v := range p {
		if v {
			b++
		}
	}
	if b < 2 || b > 6 {
		return false
	}
	a := 0
	for i := 0; i < 8; i++ {
		if !p[i] && p[(i+1)%8] {
			a++
		}
	}
	if a != 1 {
		return false
	}
	if step == 0 {
		return !(p[0] && p[2] && p[4]) && !(p[2] && p[4] && p[6])
	}
	return !(p[0] && p[2] && p[6]) && !(p[0] && p[4] && p[6])
}
