package server

import (
	"encoding/json"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/filters"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/morphology"
)

type filterArgs struct {
	source
	output
	Filter      string    `json:"filter"`
	Sigma       float64   `json:"sigma"`
	LowSigma    float64   `json:"low_sigma"`
	HighSigma   float64   `json:"high_sigma"`
	Radius      float64   `json:"radius"`
	Amount      *float64  `json:"amount"`
	Footprint   string    `json:"footprint"`
	Size        int       `json:"size"`
	Sigmas      []float64 `json:"sigmas"`
	BlackRidges *bool     `json:"black_ridges"`
	Low         *float64  `json:"low_threshold"`
	High        *float64  `json:"high_threshold"`
	Scaling     string    `json:"scaling"`
}

// signedFilters produce values of both signs and render stretched by default.
var signedFilters = map[string]bool{
	"sobel_h":   true,
	"sobel_v":   true,
	"prewitt_h": true,
	"prewitt_v": true,
	"laplace":   true,
	"log":       true,
	"dog":       true,
}

// FilterResult is a filtered plane with its value range.
type FilterResult struct {
	Filter string               `json:"filter"`
	Min    float64              `json:"min"`
	Max    float64              `json:"max"`
	Image  *imaging.ImageResult `json:"image"`
}

func (s *Server) handleFilter(args json.RawMessage) (interface{}, error) {
	var a filterArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sigma := orDefault(a.Sigma, s.cfg.Defaults.GaussianSigma)

	switch a.Filter {
	case "":
		return nil, apperr.Validation("filter is required")
	case "median_rgb":
		img, err := s.loadImage(a.source)
		if err != nil {
			return nil, err
		}
		out, err := filters.MedianRGB(img, orDefault(a.Radius, 1))
		if err != nil {
			return nil, err
		}
		res, err := s.encodeImage(out, a.OutputPath)
		if err != nil {
			return nil, err
		}
		return &FilterResult{Filter: a.Filter, Min: 0, Max: 1, Image: res}, nil
	case "canny":
		p, err := s.loadPlane(a.source)
		if err != nil {
			return nil, err
		}
		cp := filters.DefaultCanny()
		cp.Sigma = orDefault(a.Sigma, cp.Sigma)
		if a.Low != nil {
			cp.Low = *a.Low
		}
		if a.High != nil {
			cp.High = *a.High
		}
		edges, err := filters.Canny(p, cp)
		if err != nil {
			return nil, err
		}
		res, err := s.encodeMask(edges, a.OutputPath)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"filter":         a.Filter,
			"edge_fraction":  edges.Fraction(),
			"low_threshold":  cp.Low,
			"high_threshold": cp.High,
			"image":          res,
		}, nil
	}

	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}

	var out *imaging.Plane
	switch a.Filter {
	case filters.RankMean, filters.RankMedian, filters.RankMinimum, filters.RankMaximum:
		fp, ferr := morphology.ParseFootprint(orString(a.Footprint, "disk"), orDefaultInt(a.Size, 1), 0)
		if ferr != nil {
			return nil, ferr
		}
		out, err = filters.Rank(p, fp, a.Filter)
	case "gaussian":
		out, err = filters.Gaussian(p, sigma)
	case "dog":
		out, err = filters.DifferenceOfGaussians(p, orDefault(a.LowSigma, sigma), a.HighSigma)
	case "laplace":
		out = filters.Laplace(p)
	case "log":
		out, err = filters.LaplacianOfGaussian(p, sigma)
	case "sobel":
		out = filters.Sobel(p)
	case "sobel_h":
		out = filters.SobelH(p)
	case "sobel_v":
		out = filters.SobelV(p)
	case "prewitt":
		out = filters.Prewitt(p)
	case "prewitt_h":
		out = filters.PrewittH(p)
	case "prewitt_v":
		out = filters.PrewittV(p)
	case "roberts":
		out = filters.Roberts(p)
	case "unsharp_mask":
		amount := 1.0
		if a.Amount != nil {
			amount = *a.Amount
		}
		out, err = filters.UnsharpMask(p, orDefault(a.Radius, 1), amount)
	case "sato", "meijering", "frangi":
		rp := filters.DefaultRidge()
		if len(a.Sigmas) > 0 {
			rp.Sigmas = a.Sigmas
		}
		if a.BlackRidges != nil {
			rp.BlackRidges = *a.BlackRidges
		}
		switch a.Filter {
		case "sato":
			out, err = filters.Sato(p, rp)
		case "meijering":
			out, err = filters.Meijering(p, rp)
		default:
			out, err = filters.Frangi(p, rp)
		}
	default:
		return nil, apperr.Validation("unknown filter %q", a.Filter)
	}
	if err != nil {
		return nil, err
	}

	scaling := a.Scaling
	if scaling == "" && signedFilters[a.Filter] {
		scaling = "stretch"
	}
	res, err := s.encodePlane(out, scaling, a.OutputPath)
	if err != nil {
		return nil, err
	}
	lo, hi := out.MinMax()
	return &FilterResult{Filter: a.Filter, Min: lo, Max: hi, Image: res}, nil
}

type noiseArgs struct {
	source
	output
	Sigma float64 `json:"sigma"`
	Seed  uint64  `json:"seed"`
}

func (s *Server) handleAddNoise(args json.RawMessage) (interface{}, error) {
	var a noiseArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}
	sigma := orDefault(a.Sigma, 0.1)
	noisy, err := filters.AddGaussianNoise(p, sigma, a.Seed)
	if err != nil {
		return nil, err
	}
	res, err := s.encodePlane(noisy, "clip", a.OutputPath)
	if err != nil {
		return nil, err
	}
	lo, hi := noisy.MinMax()
	return map[string]interface{}{
		"sigma": sigma,
		"seed":  a.Seed,
		"min":   lo,
		"max":   hi,
		"image": res,
	}, nil
}
