package ocr

import (
	"image"

	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/threshold"
)

// Binarize applies a local threshold and renders pixels brighter than their
// threshold white and the rest (the ink) black.
func Binarize(p *imaging.Plane, method string, lp threshold.LocalParams) (*image.Gray, error) {
	t, err := threshold.Local(p, method, lp)
	if err != nil {
		return nil, err
	}
	m, err := p.ThresholdPlane(t)
	if err != nil {
		return nil, err
	}
	out := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for i, v := range m.Pix {
		if v {
			out.Pix[i] = 255
		}
	}
	return out, nil
}

// BinarizedResult bundles the binarised page with its OCR output.
type BinarizedResult struct {
	Binary *image.Gray
	OCR    *OCRResult
}

// ExtractBinarized binarises p then reads it.
func ExtractBinarized(p *imaging.Plane, method string, lp threshold.LocalParams, opts Options) (*BinarizedResult, error) {
	bin, err := Binarize(p, method, lp)
	if err != nil {
		return nil, err
	}
	res, err := ExtractText(bin, opts)
	if err != nil {
		return nil, err
	}
	return &BinarizedResult{Binary: bin, OCR: res}, nil
}
