package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/stack"
)

// stackSource names a volume: a sample, an animated GIF or single image
// path, or a glob of slice files.
type stackSource struct {
	Sample string `json:"sample"`
	Path   string `json:"path"`
	Glob   string `json:"glob"`
}

func (s *Server) loadVolume(src stackSource) (*stack.Volume, error) {
	given := 0
	for _, v := range []string{src.Sample, src.Path, src.Glob} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		return nil, apperr.Validation("give exactly one of sample, path or glob")
	}

	switch {
	case src.Sample != "":
		return stack.FromSample(src.Sample)
	case src.Glob != "":
		return stack.FromGlob(s.cache, src.Glob)
	case strings.EqualFold(filepath.Ext(src.Path), ".gif"):
		return stack.FromGIF(src.Path)
	}
	img, err := s.loadImage(source{Path: src.Path})
	if err != nil {
		return nil, err
	}
	return stack.FromFrames([][]image.Image{{img}})
}

func (s *Server) handleStackInfo(args json.RawMessage) (interface{}, error) {
	var a stackSource
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	v, err := s.loadVolume(a)
	if err != nil {
		return nil, err
	}
	return v.Info(), nil
}

type projectionArgs struct {
	stackSource
	output
	Method  string `json:"method"`
	Channel *int   `json:"channel"`
	Scaling string `json:"scaling"`
}

// Projection is one channel collapsed along Z.
type Projection struct {
	Channel int                  `json:"channel"`
	Min     float64              `json:"min"`
	Max     float64              `json:"max"`
	Image   *imaging.ImageResult `json:"image"`
}

func (s *Server) handleStackProjection(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a projectionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	method := orString(a.Method, stack.ProjectMax)
	scaling := orString(a.Scaling, "stretch")
	v, err := s.loadVolume(a.stackSource)
	if err != nil {
		return nil, err
	}

	var planes []*imaging.Plane
	channels := []int{}
	if a.Channel != nil {
		p, err := v.Project(*a.Channel, method)
		if err != nil {
			return nil, err
		}
		planes = []*imaging.Plane{p}
		channels = append(channels, *a.Channel)
	} else {
		planes, err = v.ProjectAll(ctx, method)
		if err != nil {
			return nil, err
		}
		for c := range planes {
			channels = append(channels, c)
		}
	}

	out := make([]Projection, len(planes))
	for i, p := range planes {
		path := a.OutputPath
		if len(planes) > 1 {
			path = withSuffix(a.OutputPath, fmt.Sprintf("c%d", channels[i]))
		}
		res, err := s.encodePlane(p, scaling, path)
		if err != nil {
			return nil, err
		}
		lo, hi := p.MinMax()
		out[i] = Projection{Channel: channels[i], Min: lo, Max: hi, Image: res}
	}
	return map[string]interface{}{
		"method":      method,
		"depth":       v.Depth,
		"projections": out,
	}, nil
}

type sliceArgs struct {
	stackSource
	output
	Z       *int   `json:"z"`
	Channel int    `json:"channel"`
	Scaling string `json:"scaling"`
}

func (s *Server) handleStackSlice(args json.RawMessage) (interface{}, error) {
	var a sliceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	v, err := s.loadVolume(a.stackSource)
	if err != nil {
		return nil, err
	}
	z := v.Depth / 2
	if a.Z != nil {
		z = *a.Z
	}
	p, err := v.Slice(z, a.Channel)
	if err != nil {
		return nil, err
	}
	res, err := s.encodePlane(p, orString(a.Scaling, "stretch"), a.OutputPath)
	if err != nil {
		return nil, err
	}
	lo, hi := p.MinMax()
	return map[string]interface{}{
		"z":       z,
		"channel": a.Channel,
		"min":     lo,
		"max":     hi,
		"image":   res,
	}, nil
}
