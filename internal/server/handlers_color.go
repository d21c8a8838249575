package server

import (
	"encoding/json"
	"strings"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/color"
	"github.com/ironsheep/bioimage-lab-mcp/internal/colormap"
	"github.com/ironsheep/bioimage-lab-mcp/internal/exposure"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// lookupLUT accepts a named map (optionally "_r") or a "#rrggbb" ramp.
func lookupLUT(name string) (*colormap.LUT, error) {
	if strings.HasPrefix(name, "#") {
		return colormap.FromHex(name)
	}
	return colormap.Get(name)
}

type colormapArgs struct {
	source
	output
	Colormap string   `json:"colormap"`
	VMin     *float64 `json:"vmin"`
	VMax     *float64 `json:"vmax"`
	Colorbar bool     `json:"colorbar"`
	Invert   bool     `json:"invert"`
}

// ColormapResult is a plane rendered through a LUT.
type ColormapResult struct {
	Colormap string               `json:"colormap"`
	VMin     float64              `json:"vmin"`
	VMax     float64              `json:"vmax"`
	Inverted bool                 `json:"inverted,omitempty"`
	Image    *imaging.ImageResult `json:"image"`
}

func (s *Server) handleColormap(args json.RawMessage) (interface{}, error) {
	var a colormapArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Colormap == "" {
		a.Colormap = s.cfg.Defaults.Colormap
	}
	lut, err := lookupLUT(a.Colormap)
	if err != nil {
		return nil, err
	}
	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}
	if a.Invert {
		p = exposure.Invert(p)
	}

	lo, hi := p.MinMax()
	if a.VMin != nil {
		lo = *a.VMin
	}
	if a.VMax != nil {
		hi = *a.VMax
	}
	if lo > hi {
		return nil, apperr.Validation("vmin %g is greater than vmax %g", lo, hi)
	}

	render := lut.Apply
	if a.Colorbar {
		render = lut.WithColorbar
	}
	img, lo, hi := render(p, lo, hi)
	res, err := s.encodeImage(img, a.OutputPath)
	if err != nil {
		return nil, err
	}
	return &ColormapResult{Colormap: lut.Name, VMin: lo, VMax: hi, Inverted: a.Invert, Image: res}, nil
}

type splitArgs struct {
	source
	output
	// Space is "rgb" (default) or "hsv".
	Space string `json:"space"`
	Tint  bool   `json:"tint"`
}

// ChannelImage is one rendered channel.
type ChannelImage struct {
	Channel string               `json:"channel"`
	Min     float64              `json:"min"`
	Max     float64              `json:"max"`
	Image   *imaging.ImageResult `json:"image"`
}

func (s *Server) handleSplitChannels(args json.RawMessage) (interface{}, error) {
	var a splitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}

	var out []ChannelImage
	switch a.Space {
	case "", "rgb":
		grays := color.SplitChannels(img)
		rgb := imaging.RGBFromImage(img)
		for i, g := range grays {
			name := color.ChannelNames[i]
			plane, _ := rgb.Channel(i)
			lo, hi := plane.MinMax()
			var res *imaging.ImageResult
			if a.Tint {
				tinted, err := color.Tint(g, i)
				if err != nil {
					return nil, err
				}
				res, err = s.encodeImage(tinted, withSuffix(a.OutputPath, name))
				if err != nil {
					return nil, err
				}
			} else {
				res, err = s.encodeImage(g, withSuffix(a.OutputPath, name))
				if err != nil {
					return nil, err
				}
			}
			out = append(out, ChannelImage{Channel: name, Min: lo, Max: hi, Image: res})
		}
	case "hsv":
		hsv := imaging.HSVPlanes(img)
		for i, name := range []string{"hue", "saturation", "value"} {
			plane, _ := hsv.Channel(i)
			lo, hi := plane.MinMax()
			res, err := s.encodePlane(plane, "clip", withSuffix(a.OutputPath, name))
			if err != nil {
				return nil, err
			}
			out = append(out, ChannelImage{Channel: name, Min: lo, Max: hi, Image: res})
		}
	default:
		return nil, apperr.Validation("space must be rgb or hsv, got %q", a.Space)
	}
	return map[string]interface{}{
		"space":    strings.ToLower(orString(a.Space, "rgb")),
		"channels": out,
	}, nil
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type deconvolveArgs struct {
	source
	output
	Stain string `json:"stain"`
}

func (s *Server) handleColorDeconvolve(args json.RawMessage) (interface{}, error) {
	var a deconvolveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	idx, err := color.ParseStain(orString(a.Stain, "hematoxylin"))
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	hed, err := color.RGBToHED(imaging.RGBFromImage(img))
	if err != nil {
		return nil, err
	}
	conc, err := hed.Stain(idx)
	if err != nil {
		return nil, err
	}
	isolated, err := color.IsolateStain(hed, idx)
	if err != nil {
		return nil, err
	}
	res, err := s.encodeImage(isolated.ToNRGBA(), a.OutputPath)
	if err != nil {
		return nil, err
	}
	lo, hi := conc.MinMax()
	return map[string]interface{}{
		"stain":             color.StainNames[idx],
		"concentration_min": lo,
		"concentration_max": hi,
		"image":             res,
	}, nil
}

type renderArgs struct {
	source
	output
}

func (s *Server) handleToGray(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	gray := color.RGBToGray(imaging.RGBFromImage(img))
	res, err := s.encodePlane(gray, "clip", a.OutputPath)
	if err != nil {
		return nil, err
	}
	lo, hi := gray.MinMax()
	return map[string]interface{}{
		"min":   lo,
		"max":   hi,
		"mean":  gray.Mean(),
		"image": res,
	}, nil
}

type scaleChannelsArgs struct {
	source
	output
	Gains []float64 `json:"gains"`
}

func (s *Server) handleScaleChannels(args json.RawMessage) (interface{}, error) {
	var a scaleChannelsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Gains) != 3 {
		return nil, apperr.Validation("gains must hold 3 values (red, green, blue), got %d", len(a.Gains))
	}
	for _, g := range a.Gains {
		if g < 0 {
			return nil, apperr.Validation("gains must be non-negative, got %g", g)
		}
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	scaled := color.ScaleChannels(imaging.RGBFromImage(img), [3]float64{a.Gains[0], a.Gains[1], a.Gains[2]})
	res, err := s.encodeImage(scaled.ToNRGBA(), a.OutputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"gains": a.Gains,
		"image": res,
	}, nil
}

type blendArgs struct {
	source
	output
	OtherPath   string   `json:"other_path"`
	OtherSample string   `json:"other_sample"`
	Weight      *float64 `json:"weight"`
}

func (s *Server) handleBlend(args json.RawMessage) (interface{}, error) {
	var a blendArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	w := 0.5
	if a.Weight != nil {
		w = *a.Weight
	}
	first, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	second, err := s.loadImage(source{Path: a.OtherPath, Sample: a.OtherSample})
	if err != nil {
		return nil, err
	}
	out, err := color.Blend(imaging.RGBFromImage(first), imaging.RGBFromImage(second), w)
	if err != nil {
		return nil, err
	}
	res, err := s.encodeImage(out.ToNRGBA(), a.OutputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"weight": w,
		"image":  res,
	}, nil
}
