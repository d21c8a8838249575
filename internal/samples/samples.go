// Package samples provides deterministic demonstration images.
//
// Each dataset is synthesised from a fixed seed so that every call returns
// identical pixels. They imitate the kinds of data used when teaching
// microscopy image analysis: fluorescent nuclei, a two-channel confocal
// stack, an immunohistochemistry slide, a scanned page, a retinal fundus
// image and a star field.
package samples

import (
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// Kind distinguishes single images from volumetric stacks.
type Kind string

const (
	KindImage Kind = "image"
	KindStack Kind = "stack"
)

// Info describes a dataset.
type Info struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	Description string `json:"description"`
}

type dataset struct {
	info  Info
	image func() image.Image
	stack func() [][]image.Image
}

var registry = map[string]dataset{
	"nuclei": {
		info:  Info{Name: "nuclei", Kind: KindImage, DType: "uint16", Shape: []int{256, 256}, Description: "Fluorescent nuclei, a few bright mitotic cells"},
		image: func() image.Image { return nuclei(256, 256, 7) },
	},
	"cell": {
		info:  Info{Name: "cell", Kind: KindImage, DType: "uint8", Shape: []int{160, 160}, Description: "Single cell on an uneven background"},
		image: func() image.Image { return cell(160, 160) },
	},
	"ihc": {
		info:  Info{Name: "ihc", Kind: KindImage, DType: "uint8", Shape: []int{160, 160, 3}, Description: "Immunohistochemistry, haematoxylin and DAB stains"},
		image: func() image.Image { return ihc(160, 160, 11) },
	},
	"page": {
		info:  Info{Name: "page", Kind: KindImage, DType: "uint8", Shape: []int{120, 240}, Description: "Scanned text with uneven illumination"},
		image: func() image.Image { return page(240, 120, 13) },
	},
	"retina": {
		info:  Info{Name: "retina", Kind: KindImage, DType: "uint8", Shape: []int{192, 192, 3}, Description: "Fundus image with a branching vessel tree"},
		image: func() image.Image { return retina(192, 192, 17) },
	},
	"hubble": {
		info:  Info{Name: "hubble", Kind: KindImage, DType: "uint8", Shape: []int{160, 160, 3}, Description: "Deep field of point and extended sources"},
		image: func() image.Image { return hubble(160, 160, 19) },
	},
	"faces": {
		info:  Info{Name: "faces", Kind: KindImage, DType: "uint8", Shape: []int{25, 25}, Description: "Tiny grayscale face-like patch"},
		image: func() image.Image { return faces(25, 25) },
	},
	"cells3d": {
		info:  Info{Name: "cells3d", Kind: KindStack, DType: "uint16", Shape: []int{16, 2, 128, 128}, Description: "Confocal stack, channel 0 membranes, channel 1 nuclei"},
		stack: func() [][]image.Image { return cells3d(128, 128, 16, 23) },
	},
}

var (
	memoMu sync.Mutex
	memo   = map[string]interface{}{}
)

// List returns every dataset sorted by name.
func List() []Info {
	out := make([]Info, 0, len(registry))
	for _, d := range registry {
		out = append(out, d.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Load returns a single-image dataset. For stacks it returns the middle
// slice of the last channel, matching the usual "nuclei slice" demo.
func Load(name string) (image.Image, error) {
	d, ok := registry[name]
	if !ok {
		return nil, apperr.NotFound("unknown sample %q", name)
	}
	if d.info.Kind == KindStack {
		frames, err := LoadStack(name)
		if err != nil {
			return nil, err
		}
		z := len(frames) / 2
		return frames[z][len(frames[z])-1], nil
	}

	memoMu.Lock()
	defer memoMu.Unlock()
	if img, ok := memo[name].(image.Image); ok {
		return img, nil
	}
	img := d.image()
	memo[name] = img
	return img, nil
}

// LoadStack returns a stack dataset indexed [z][channel].
func LoadStack(name string) ([][]image.Image, error) {
	d, ok := registry[name]
	if !ok {
		return nil, apperr.NotFound("unknown sample %q", name)
	}
	if d.info.Kind != KindStack {
		img, err := Load(name)
		if err != nil {
			return nil, err
		}
		return [][]image.Image{{img}}, nil
	}

	memoMu.Lock()
	defer memoMu.Unlock()
	if frames, ok := memo[name].([][]image.Image); ok {
		return frames, nil
	}
	frames := d.stack()
	memo[name] = frames
	return frames, nil
}

// canvas is a float scratch buffer used while synthesising.
type canvas struct {
	w, h int
	pix  []float64
}

func newCanvas(w, h int, fill float64) *canvas {
	c := &canvas{w: w, h: h, pix: make([]float64, w*h)}
	for i := range c.pix {
		c.pix[i] = fill
	}
	return c
}

func (c *canvas) add(x, y int, v float64) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.pix[y*c.w+x] += v
}

// blob adds an elliptical plateau with soft edges.
func (c *canvas) blob(cx, cy, rx, ry, angle, amp float64) {
	cos, sin := math.Cos(angle), math.Sin(angle)
	r := math.Max(rx, ry) + 3
	for y := int(cy - r); y <= int(cy+r); y++ {
		for x := int(cx - r); x <= int(cx+r); x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			u := (dx*cos + dy*sin) / rx
			v := (-dx*sin + dy*cos) / ry
			d := math.Sqrt(u*u + v*v)
			// logistic edge, about one pixel wide
			c.add(x, y, amp/(1+math.Exp((d-1)*rx*2)))
		}
	}
}

// gauss adds an isotropic Gaussian spot.
func (c *canvas) gauss(cx, cy, sigma, amp float64) {
	r := int(math.Ceil(sigma * 4))
	for y := int(cy) - r; y <= int(cy)+r; y++ {
		for x := int(cx) - r; x <= int(cx)+r; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			c.add(x, y, amp*math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma)))
		}
	}
}

// line draws a soft line of the given half-width.
func (c *canvas) line(x0, y0, x1, y1, halfWidth, amp float64) {
	minX := int(math.Min(x0, x1) - halfWidth - 2)
	maxX := int(math.Max(x0, x1) + halfWidth + 2)
	minY := int(math.Min(y0, y1) - halfWidth - 2)
	maxY := int(math.Max(y0, y1) + halfWidth + 2)
	lx, ly := x1-x0, y1-y0
	l2 := lx*lx + ly*ly
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)-x0, float64(y)-y0
			t := 0.0
			if l2 > 0 {
				t = math.Max(0, math.Min(1, (px*lx+py*ly)/l2))
			}
			dx, dy := px-t*lx, py-t*ly
			d := math.Sqrt(dx*dx + dy*dy)
			if d <= halfWidth+1 {
				c.add(x, y, amp*math.Min(1, halfWidth+1-d))
			}
		}
	}
}

func (c *canvas) noise(rng *rand.Rand, sigma float64) {
	n := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
	for i := range c.pix {
		c.pix[i] += n.Rand()
	}
}

func (c *canvas) gray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, c.w, c.h))
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(clip(c.pix[y*c.w+x]) * 65535))})
		}
	}
	return img
}

func (c *canvas) gray8() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, c.w, c.h))
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(clip(c.pix[y*c.w+x]) * 255))})
		}
	}
	return img
}

func rgb8(r, g, b *canvas) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.w, r.h))
	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			i := y*r.w + x
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(math.Round(clip(r.pix[i]) * 255)),
				G: uint8(math.Round(clip(g.pix[i]) * 255)),
				B: uint8(math.Round(clip(b.pix[i]) * 255)),
				A: 255,
			})
		}
	}
	return img
}

func clip(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
