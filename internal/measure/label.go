// Package measure labels connected components and measures their
// properties: area, centroid, shape descriptors and intensity statistics.
package measure

import (
	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Connectivity values: 1 joins edge neighbours, 2 also joins corner
// neighbours.
const (
	Conn4 = 1
	Conn8 = 2
)

// Labels is a label image. 0 is background; objects are numbered from 1 in
// raster order of their first pixel.
type Labels struct {
	Width  int
	Height int
	Pix    []int
	Count  int
}

// At returns the label at (x, y).
func (l *Labels) At(x, y int) int {
	return l.Pix[y*l.Width+x]
}

// Mask returns the pixels carrying label k.
func (l *Labels) Mask(k int) *imaging.Mask {
	m := imaging.NewMask(l.Width, l.Height)
	for i, v := range l.Pix {
		m.Pix[i] = v == k
	}
	return m
}

// Foreground returns the pixels carrying any label.
func (l *Labels) Foreground() *imaging.Mask {
	m := imaging.NewMask(l.Width, l.Height)
	for i, v := range l.Pix {
		m.Pix[i] = v > 0
	}
	return m
}

// Areas returns the pixel count of each label, indexed by label.
func (l *Labels) Areas() []int {
	areas := make([]int, l.Count+1)
	for _, v := range l.Pix {
		areas[v]++
	}
	return areas
}

// ValidateConnectivity accepts 1 (4-neighbour) or 2 (8-neighbour).
func ValidateConnectivity(conn int) error {
	if conn != Conn4 && conn != Conn8 {
		return apperr.Validation("connectivity must be 1 or 2, got %d", conn)
	}
	return nil
}

// Neighbours returns the neighbour offsets for a connectivity.
func Neighbours(conn int) [][2]int {
	if conn == Conn8 {
		return [][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
	}
	return [][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
}

// Label finds the connected components of the foreground.
func Label(m *imaging.Mask, conn int) (*Labels, error) {
	if err := ValidateConnectivity(conn); err != nil {
		return nil, err
	}
	w, h := m.Width, m.Height
	out := &Labels{Width: w, Height: h, Pix: make([]int, w*h)}
	nb := Neighbours(conn)
	queue := make([]int, 0, 64)

	for start, fg := range m.Pix {
		if !fg || out.Pix[start] != 0 {
			continue
		}
		out.Count++
		id := out.Count
		out.Pix[start] = id
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := i%w, i/w
			for _, d := range nb {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if m.Pix[j] && out.Pix[j] == 0 {
					out.Pix[j] = id
					queue = append(queue, j)
				}
			}
		}
	}
	return out, nil
}
