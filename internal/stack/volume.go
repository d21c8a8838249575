// Package stack holds image sequences (Z x C x H x W volumes) and projects
// them along Z.
package stack

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"sort"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/samples"
)

// Volume is a stack of planes indexed [z][channel]. All planes share one
// size.
type Volume struct {
	Depth    int
	Channels int
	Width    int
	Height   int
	DType    string
	Planes   [][]*imaging.Plane
}

// Info summarises a volume.
type Info struct {
	Shape    []int   `json:"shape"`
	DType    string  `json:"dtype"`
	Depth    int     `json:"depth"`
	Channels int     `json:"channels"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// FromFrames converts decoded frames. Single-channel frames that are colour
// images are split into R, G and B channels.
func FromFrames(frames [][]image.Image) (*Volume, error) {
	if len(frames) == 0 || len(frames[0]) == 0 {
		return nil, apperr.Validation("stack has no frames")
	}
	first := frames[0][0]
	v := &Volume{
		Depth:  len(frames),
		Width:  first.Bounds().Dx(),
		Height: first.Bounds().Dy(),
		DType:  imaging.DTypeOf(first),
	}
	split := len(frames[0]) == 1 && !imaging.IsGray(first)
	v.Channels = len(frames[0])
	if split {
		v.Channels = 3
	}

	v.Planes = make([][]*imaging.Plane, v.Depth)
	for z, frame := range frames {
		if len(frame) != len(frames[0]) {
			return nil, apperr.Validation("slice %d has %d channels, want %d", z, len(frame), len(frames[0]))
		}
		for c, img := range frame {
			b := img.Bounds()
			if b.Dx() != v.Width || b.Dy() != v.Height {
				return nil, apperr.Validation("slice %d channel %d is %dx%d, want %dx%d", z, c, b.Dx(), b.Dy(), v.Width, v.Height)
			}
			if !split {
				v.Planes[z] = append(v.Planes[z], imaging.FromImage(img))
				continue
			}
			for k := 0; k < 3; k++ {
				p, err := imaging.ChannelFromImage(img, k)
				if err != nil {
					return nil, err
				}
				v.Planes[z] = append(v.Planes[z], p)
			}
		}
	}
	return v, nil
}

// FromSample loads a sample dataset as a volume. Single-image samples give a
// depth of one.
func FromSample(name string) (*Volume, error) {
	frames, err := samples.LoadStack(name)
	if err != nil {
		return nil, err
	}
	return FromFrames(frames)
}

// FromGIF loads every frame of an animated GIF. Frames are composited onto
// a running canvas so partial frames keep the earlier content.
func FromGIF(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stack: %w", err)
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, apperr.Validation("gif %s has no frames", path)
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)
	frames := make([][]image.Image, len(g.Image))
	for i, fr := range g.Image {
		draw.Draw(canvas, fr.Bounds(), fr, fr.Bounds().Min, draw.Over)
		snapshot := image.NewRGBA(bounds)
		copy(snapshot.Pix, canvas.Pix)
		frames[i] = []image.Image{snapshot}
	}
	return FromFrames(frames)
}

// FromGlob loads every file matching pattern, sorted by name, as one Z
// slice each.
func FromGlob(cache *imaging.ImageCache, pattern string) (*Volume, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, apperr.Validation("bad glob pattern %q: %v", pattern, err)
	}
	if len(paths) == 0 {
		return nil, apperr.NotFound("no files match %q", pattern)
	}
	sort.Strings(paths)
	frames := make([][]image.Image, len(paths))
	for i, p := range paths {
		img, err := cache.Load(p)
		if err != nil {
			return nil, fmt.Errorf("slice %d (%s): %w", i, p, err)
		}
		frames[i] = []image.Image{img}
	}
	return FromFrames(frames)
}

// Slice returns the plane at depth z and channel c.
func (v *Volume) Slice(z, c int) (*imaging.Plane, error) {
	if z < 0 || z >= v.Depth {
		return nil, apperr.Validation("z index %d out of range [0, %d)", z, v.Depth)
	}
	if c < 0 || c >= v.Channels {
		return nil, apperr.Validation("channel %d out of range [0, %d)", c, v.Channels)
	}
	return v.Planes[z][c], nil
}

// Info reports shape and value range.
func (v *Volume) Info() Info {
	lo, hi := v.Planes[0][0].MinMax()
	for _, zs := range v.Planes {
		for _, p := range zs {
			a, b := p.MinMax()
			lo, hi = min(lo, a), max(hi, b)
		}
	}
	return Info{
		Shape:    []int{v.Depth, v.Channels, v.Height, v.Width},
		DType:    v.DType,
		Depth:    v.Depth,
		Channels: v.Channels,
		Width:    v.Width,
		Height:   v.Height,
		Min:      lo,
		Max:      hi,
	}
}
