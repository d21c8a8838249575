package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// Region represents a rectangular region within an image.
//
// (X1, Y1) is the top-left corner (inclusive), (X2, Y2) the bottom-right
// corner (exclusive).
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Validate checks the region is non-empty and inside bounds.
func (r Region) Validate(bounds image.Rectangle) error {
	if r.X1 < bounds.Min.X || r.Y1 < bounds.Min.Y || r.X2 > bounds.Max.X || r.Y2 > bounds.Max.Y {
		return apperr.Validation("region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return apperr.Validation("invalid region: x1 must be < x2, y1 must be < y2")
	}
	return nil
}

// Crop extracts a rectangular region, optionally rescaling it with Lanczos
// resampling.
func Crop(img image.Image, r Region, scale float64, outputPath string) (*ImageResult, error) {
	if err := r.Validate(img.Bounds()); err != nil {
		return nil, err
	}

	cropped := imaging.Crop(img, image.Rect(r.X1, r.Y1, r.X2, r.Y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, apperr.Validation("scale %g collapses the %dx%d crop", scale, cropped.Bounds().Dx(), cropped.Bounds().Dy())
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	res, err := EncodeImage(cropped, outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}
	return res, nil
}

// CropPlane returns the sub-plane covered by r.
func CropPlane(p *Plane, r Region) (*Plane, error) {
	if err := r.Validate(image.Rect(0, 0, p.Width, p.Height)); err != nil {
		return nil, err
	}
	out := NewPlane(r.X2-r.X1, r.Y2-r.Y1)
	for y := 0; y < out.Height; y++ {
		copy(out.Pix[y*out.Width:(y+1)*out.Width], p.Pix[(y+r.Y1)*p.Width+r.X1:(y+r.Y1)*p.Width+r.X2])
	}
	return out, nil
}
