package server

import (
	"encoding/json"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/colormap"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/measure"
	"github.com/ironsheep/bioimage-lab-mcp/internal/morphology"
	"github.com/ironsheep/bioimage-lab-mcp/internal/ocr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/segment"
	"github.com/ironsheep/bioimage-lab-mcp/internal/threshold"
)

type thresholdArgs struct {
	source
	output
	Method  string   `json:"method"`
	Value   *float64 `json:"value"`
	Low     *float64 `json:"low"`
	High    *float64 `json:"high"`
	Preview *float64 `json:"preview_level"`
}

// ThresholdResult is a binary segmentation by a single threshold.
type ThresholdResult struct {
	Method    string               `json:"method"`
	Threshold float64              `json:"threshold"`
	High      *float64             `json:"high,omitempty"`
	Fraction  float64              `json:"foreground_fraction"`
	Image     *imaging.ImageResult `json:"image"`
}

func (s *Server) handleThreshold(args json.RawMessage) (interface{}, error) {
	var a thresholdArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	// 8-bit preview on the display image
	if a.Preview != nil {
		img, err := s.loadImage(a.source)
		if err != nil {
			return nil, err
		}
		bin, err := threshold.Preview8(img, *a.Preview)
		if err != nil {
			return nil, err
		}
		res, err := s.encodeImage(bin, a.OutputPath)
		if err != nil {
			return nil, err
		}
		m := imaging.MaskFromImage(bin)
		return &ThresholdResult{Method: "preview", Threshold: *a.Preview, Fraction: m.Fraction(), Image: res}, nil
	}

	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}

	var (
		m      *imaging.Mask
		result = &ThresholdResult{}
	)
	switch {
	case a.Low != nil || a.High != nil:
		if a.Low == nil || a.High == nil {
			return nil, apperr.Validation("low and high must be given together")
		}
		if *a.Low >= *a.High {
			return nil, apperr.Validation("low %g must be below high %g", *a.Low, *a.High)
		}
		m = p.Range(*a.Low, *a.High)
		result.Method = "range"
		result.Threshold = *a.Low
		result.High = a.High
	case a.Value != nil:
		m = p.Threshold(*a.Value)
		result.Method = "value"
		result.Threshold = *a.Value
	default:
		method := orString(a.Method, threshold.MethodOtsu)
		t, err := threshold.Global(p, method)
		if err != nil {
			return nil, err
		}
		m = p.Threshold(t)
		result.Method = method
		result.Threshold = t
	}

	res, err := s.encodeMask(m, a.OutputPath)
	if err != nil {
		return nil, err
	}
	result.Fraction = m.Fraction()
	result.Image = res
	return result, nil
}

func (s *Server) handleThresholdCompare(args json.RawMessage) (interface{}, error) {
	var a source
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := s.loadPlane(a)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"results": threshold.Compare(p),
	}, nil
}

type localThresholdArgs struct {
	source
	output
	Method string   `json:"method"`
	Window int      `json:"window_size"`
	K      *float64 `json:"k"`
	R      float64  `json:"r"`
}

func (a localThresholdArgs) params() threshold.LocalParams {
	lp := threshold.LocalParams{Window: orDefaultInt(a.Window, 15), K: threshold.DefaultK, R: a.R}
	if a.K != nil {
		lp.K = *a.K
	}
	return lp
}

func (s *Server) handleThresholdLocal(args json.RawMessage) (interface{}, error) {
	var a localThresholdArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	method := orString(a.Method, threshold.MethodSauvola)
	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}
	lp := a.params()
	t, err := threshold.Local(p, method, lp)
	if err != nil {
		return nil, err
	}
	m, err := p.ThresholdPlane(t)
	if err != nil {
		return nil, err
	}

	mask, err := s.encodeMask(m, a.OutputPath)
	if err != nil {
		return nil, err
	}
	tImg, err := s.encodePlane(t, "stretch", withSuffix(a.OutputPath, "threshold"))
	if err != nil {
		return nil, err
	}
	lo, hi := t.MinMax()
	return map[string]interface{}{
		"method":              method,
		"window_size":         lp.Window,
		"k":                   lp.K,
		"threshold_min":       lo,
		"threshold_max":       hi,
		"foreground_fraction": m.Fraction(),
		"image":               mask,
		"threshold_image":     tImg,
	}, nil
}

type morphologyArgs struct {
	source
	output
	Op              string `json:"op"`
	Footprint       string `json:"footprint"`
	Size            int    `json:"size"`
	Height          int    `json:"height"`
	AreaThreshold   *int   `json:"area_threshold"`
	Connectivity    int    `json:"connectivity"`
	ThresholdMethod string `json:"threshold_method"`
	Grey            bool   `json:"grey"`
}

func (s *Server) handleMorphology(args json.RawMessage) (interface{}, error) {
	var a morphologyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	fp, err := morphology.ParseFootprint(a.Footprint, orDefaultInt(a.Size, 3), a.Height)
	if err != nil {
		return nil, err
	}

	switch a.Op {
	case "white_tophat", "black_tophat":
		a.Grey = true
	case "erode", "dilate", "open", "close":
	case "binary_median", "remove_small_objects", "remove_small_holes",
		"area_opening", "area_closing", "convex_hull", "skeletonize":
		a.Grey = false
	case "":
		return nil, apperr.Validation("op is required")
	default:
		return nil, apperr.Validation("unknown morphology op %q", a.Op)
	}

	if a.Grey {
		return s.greyMorphology(a, fp)
	}

	m, _, err := s.loadMask(a.source, a.ThresholdMethod)
	if err != nil {
		return nil, err
	}
	before := m.Count()
	area := s.cfg.Defaults.AreaThreshold
	if a.AreaThreshold != nil {
		area = *a.AreaThreshold
	}
	conn := orDefaultInt(a.Connectivity, measure.Conn4)

	var out *imaging.Mask
	switch a.Op {
	case "erode":
		out = morphology.Erode(m, fp)
	case "dilate":
		out = morphology.Dilate(m, fp)
	case "open":
		out = morphology.Open(m, fp)
	case "close":
		out = morphology.Close(m, fp)
	case "binary_median":
		out = morphology.BinaryMedian(m, fp)
	case "remove_small_objects":
		out, err = morphology.RemoveSmallObjects(m, area, conn)
	case "remove_small_holes":
		out, err = morphology.RemoveSmallHoles(m, area, conn)
	case "area_opening":
		out, err = morphology.AreaOpening(m, area, conn)
	case "area_closing":
		out, err = morphology.AreaClosing(m, area, conn)
	case "convex_hull":
		out, err = morphology.ConvexHullObjects(m, conn)
	case "skeletonize":
		out = morphology.Skeletonize(m)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.encodeMask(out, a.OutputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"op":                a.Op,
		"foreground_before": before,
		"foreground_after":  out.Count(),
		"image":             res,
	}, nil
}

func (s *Server) greyMorphology(a morphologyArgs, fp *morphology.Footprint) (interface{}, error) {
	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}
	var out *imaging.Plane
	switch a.Op {
	case "erode":
		out = morphology.ErodeGray(p, fp)
	case "dilate":
		out = morphology.DilateGray(p, fp)
	case "open":
		out = morphology.OpenGray(p, fp)
	case "close":
		out = morphology.CloseGray(p, fp)
	case "white_tophat":
		out, err = morphology.WhiteTophat(p, fp)
	case "black_tophat":
		out, err = morphology.BlackTophat(p, fp)
	}
	if err != nil {
		return nil, err
	}
	res, err := s.encodePlane(out, "stretch", a.OutputPath)
	if err != nil {
		return nil, err
	}
	lo, hi := out.MinMax()
	return map[string]interface{}{
		"op":    a.Op,
		"grey":  true,
		"min":   lo,
		"max":   hi,
		"image": res,
	}, nil
}

type labelArgs struct {
	source
	output
	ThresholdMethod string `json:"threshold_method"`
	Connectivity    int    `json:"connectivity"`
}

// label thresholds (unless the input is already binary) and labels.
func (s *Server) label(a labelArgs) (*measure.Labels, *imaging.Plane, error) {
	m, p, err := s.loadMask(a.source, a.ThresholdMethod)
	if err != nil {
		return nil, nil, err
	}
	l, err := measure.Label(m, orDefaultInt(a.Connectivity, measure.Conn8))
	if err != nil {
		return nil, nil, err
	}
	return l, p, nil
}

func (s *Server) handleLabel(args json.RawMessage) (interface{}, error) {
	var a labelArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	l, _, err := s.label(a)
	if err != nil {
		return nil, err
	}
	res, err := s.encodeImage(colormap.ColorizeLabels(l.Width, l.Height, l.Pix, l.Count), a.OutputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"count": l.Count,
		"areas": l.Areas(),
		"image": res,
	}, nil
}

func (s *Server) handleRegionProps(args json.RawMessage) (interface{}, error) {
	var a labelArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	l, p, err := s.label(a)
	if err != nil {
		return nil, err
	}
	regions, err := measure.RegionProps(l, p)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"count":   l.Count,
		"regions": regions,
	}, nil
}

type propertyMapArgs struct {
	labelArgs
	Property string `json:"property"`
	Colormap string `json:"colormap"`
}

func (s *Server) handlePropertyMap(args json.RawMessage) (interface{}, error) {
	var a propertyMapArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	lut, err := lookupLUT(orString(a.Colormap, "viridis"))
	if err != nil {
		return nil, err
	}
	property := orString(a.Property, "area")
	l, p, err := s.label(a.labelArgs)
	if err != nil {
		return nil, err
	}
	regions, err := measure.RegionProps(l, p)
	if err != nil {
		return nil, err
	}
	pm, err := measure.PropertyMap(l, regions, property)
	if err != nil {
		return nil, err
	}
	img, lo, hi := lut.Apply(pm, 0, 0)
	res, err := s.encodeImage(img, a.OutputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"property": property,
		"count":    l.Count,
		"min":      lo,
		"max":      hi,
		"image":    res,
	}, nil
}

type nucleiArgs struct {
	source
	output
	Sigma         float64 `json:"sigma"`
	Method        string  `json:"method"`
	AreaThreshold *int    `json:"area_threshold"`
}

// NucleiReport is the JSON form of a nuclei segmentation.
type NucleiReport struct {
	Threshold float64              `json:"threshold"`
	Count     int                  `json:"count"`
	Regions   []measure.Region     `json:"regions"`
	Mask      *imaging.ImageResult `json:"mask"`
	Labels    *imaging.ImageResult `json:"labels"`
}

func (s *Server) handleSegmentNuclei(args json.RawMessage) (interface{}, error) {
	var a nucleiArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts := segment.DefaultNucleiOptions()
	opts.Sigma = orDefault(a.Sigma, s.cfg.Defaults.GaussianSigma)
	opts.Method = orString(a.Method, opts.Method)
	opts.AreaThreshold = s.cfg.Defaults.AreaThreshold
	if a.AreaThreshold != nil {
		opts.AreaThreshold = *a.AreaThreshold
	}

	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}
	r, err := segment.SegmentNuclei(p, opts)
	if err != nil {
		return nil, err
	}

	mask, err := s.encodeMask(r.Mask, a.OutputPath)
	if err != nil {
		return nil, err
	}
	labels, err := s.encodeImage(colormap.ColorizeLabels(r.Labels.Width, r.Labels.Height, r.Labels.Pix, r.Labels.Count), withSuffix(a.OutputPath, "labels"))
	if err != nil {
		return nil, err
	}
	return &NucleiReport{
		Threshold: r.Threshold,
		Count:     r.Labels.Count,
		Regions:   r.Regions,
		Mask:      mask,
		Labels:    labels,
	}, nil
}

type ocrArgs struct {
	localThresholdArgs
	Language string `json:"language"`
}

func (s *Server) handleOCRBinarized(args json.RawMessage) (interface{}, error) {
	var a ocrArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Window == 0 {
		a.Window = 25
	}
	method := orString(a.Method, threshold.MethodSauvola)
	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}
	opts := ocr.Options{
		Language:       orString(a.Language, s.cfg.OCR.Language),
		TessdataPrefix: s.cfg.OCR.TessdataPrefix,
	}
	r, err := ocr.ExtractBinarized(p, method, a.params(), opts)
	if err != nil {
		return nil, err
	}
	res, err := s.encodeImage(r.Binary, a.OutputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"method":    method,
		"full_text": r.OCR.FullText,
		"regions":   r.OCR.Regions,
		"image":     res,
	}, nil
}
