package server

import (
	"encoding/json"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/exposure"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

type exposureCheckArgs struct {
	source
	Fraction float64  `json:"fraction"`
	Lower    *float64 `json:"lower_percentile"`
	Upper    *float64 `json:"upper_percentile"`
}

// ExposureReport combines the dtype description, intensity statistics and
// the low-contrast verdict of an image.
type ExposureReport struct {
	DType       *imaging.DTypeInfo    `json:"dtype"`
	Stats       *exposure.Stats       `json:"stats"`
	LowContrast *exposure.LowContrast `json:"low_contrast"`
}

func (s *Server) handleExposureCheck(args json.RawMessage) (interface{}, error) {
	var a exposureCheckArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	lower, upper := 1.0, 99.0
	if a.Lower != nil {
		lower = *a.Lower
	}
	if a.Upper != nil {
		upper = *a.Upper
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	p := imaging.FromImage(img)
	lc, err := exposure.IsLowContrast(p, orDefault(a.Fraction, 0.05), lower, upper)
	if err != nil {
		return nil, err
	}
	st, err := exposure.ComputeStats(p)
	if err != nil {
		return nil, err
	}
	return &ExposureReport{DType: imaging.Describe(img), Stats: st, LowContrast: lc}, nil
}

type equalizeArgs struct {
	source
	output
	// Method is "hist" (default) or "stretch".
	Method string   `json:"method"`
	Bins   int      `json:"bins"`
	Lower  *float64 `json:"lower_percentile"`
	Upper  *float64 `json:"upper_percentile"`
}

func (s *Server) handleEqualize(args json.RawMessage) (interface{}, error) {
	var a equalizeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{}
	var out *imaging.Plane
	switch a.Method {
	case "", "hist":
		bins := orDefaultInt(a.Bins, s.cfg.Defaults.HistogramBins)
		out, err = exposure.EqualizeHist(p, bins)
		if err != nil {
			return nil, err
		}
		result["method"] = "hist"
		result["bins"] = bins
	case "stretch":
		lower, upper := 2.0, 98.0
		if a.Lower != nil {
			lower = *a.Lower
		}
		if a.Upper != nil {
			upper = *a.Upper
		}
		var lo, hi float64
		out, lo, hi, err = exposure.ContrastStretch(p, lower, upper)
		if err != nil {
			return nil, err
		}
		result["method"] = "stretch"
		result["in_low"] = lo
		result["in_high"] = hi
	default:
		return nil, apperr.Validation("method must be hist or stretch, got %q", a.Method)
	}

	res, err := s.encodePlane(out, "clip", a.OutputPath)
	if err != nil {
		return nil, err
	}
	result["image"] = res
	return result, nil
}

type rescaleArgs struct {
	source
	output
	// Mode is "rescale" (default), "gamma", "log" or "sigmoid".
	Mode    string   `json:"mode"`
	InLow   *float64 `json:"in_low"`
	InHigh  *float64 `json:"in_high"`
	OutLow  *float64 `json:"out_low"`
	OutHigh *float64 `json:"out_high"`
	Gamma   float64  `json:"gamma"`
	Gain    float64  `json:"gain"`
	Cutoff  *float64 `json:"cutoff"`
	Inverse bool     `json:"inverse"`
	Scaling string   `json:"scaling"`
}

func (s *Server) handleRescaleIntensity(args json.RawMessage) (interface{}, error) {
	var a rescaleArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}

	var out *imaging.Plane
	mode := orString(a.Mode, "rescale")
	switch mode {
	case "rescale":
		inLo, inHi := p.MinMax()
		if a.InLow != nil {
			inLo = *a.InLow
		}
		if a.InHigh != nil {
			inHi = *a.InHigh
		}
		outLo, outHi := 0.0, 1.0
		if a.OutLow != nil {
			outLo = *a.OutLow
		}
		if a.OutHigh != nil {
			outHi = *a.OutHigh
		}
		if inLo > inHi {
			return nil, apperr.Validation("in_low %g is greater than in_high %g", inLo, inHi)
		}
		out = exposure.RescaleIntensity(p, inLo, inHi, outLo, outHi)
	case "gamma":
		out, err = exposure.AdjustGamma(p, orDefault(a.Gamma, 1), orDefault(a.Gain, 1))
	case "log":
		out, err = exposure.AdjustLog(p, orDefault(a.Gain, 1), a.Inverse)
	case "sigmoid":
		cutoff := 0.5
		if a.Cutoff != nil {
			cutoff = *a.Cutoff
		}
		out, err = exposure.AdjustSigmoid(p, cutoff, orDefault(a.Gain, 10), a.Inverse)
	default:
		return nil, apperr.Validation("mode must be rescale, gamma, log or sigmoid, got %q", a.Mode)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.encodePlane(out, a.Scaling, a.OutputPath)
	if err != nil {
		return nil, err
	}
	lo, hi := out.MinMax()
	return map[string]interface{}{
		"mode":  mode,
		"min":   lo,
		"max":   hi,
		"image": res,
	}, nil
}

type adjustArgs struct {
	source
	output
	Op     string  `json:"op"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleAdjust(args json.RawMessage) (interface{}, error) {
	var a adjustArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	out, err := exposure.Adjust8(img, a.Op, a.Amount)
	if err != nil {
		return nil, err
	}
	res, err := s.encodeImage(out, a.OutputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"op":     a.Op,
		"amount": a.Amount,
		"image":  res,
	}, nil
}

type histogramArgs struct {
	source
	Bins       int  `json:"bins"`
	Cumulative bool `json:"cumulative"`
}

// HistogramReport is a binned distribution with its summary statistics.
type HistogramReport struct {
	Bins       int                 `json:"bins"`
	Histogram  *exposure.Histogram `json:"histogram"`
	Cumulative []float64           `json:"cumulative,omitempty"`
	Stats      *exposure.Stats     `json:"stats"`
}

func (s *Server) handleHistogram(args json.RawMessage) (interface{}, error) {
	var a histogramArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := s.loadPlane(a.source)
	if err != nil {
		return nil, err
	}
	bins := orDefaultInt(a.Bins, s.cfg.Defaults.HistogramBins)
	h, err := exposure.ComputeHistogram(p, bins)
	if err != nil {
		return nil, err
	}
	st, err := exposure.ComputeStats(p)
	if err != nil {
		return nil, err
	}
	report := &HistogramReport{Bins: bins, Histogram: h, Stats: st}
	if a.Cumulative {
		cdf, _, err := exposure.CumulativeDistribution(p, bins)
		if err != nil {
			return nil, err
		}
		report.Cumulative = cdf
	}
	return report, nil
}

type channelHistogramArgs struct {
	source
	Cumulative bool `json:"cumulative"`
}

func (s *Server) handleChannelHistograms(args json.RawMessage) (interface{}, error) {
	var a channelHistogramArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	if a.Cumulative {
		return exposure.CumulativeChannelHistograms(img), nil
	}
	return exposure.ComputeChannelHistograms(img), nil
}
