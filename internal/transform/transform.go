// Package transform implements geometric transformations: translation,
// rotation, rescaling, shearing, flipping and non-affine warps.
package transform

import (
	"image"
	"image/color"

	bild "github.com/anthonynsimon/bild/transform"
	dimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// Translate shifts the image by (dx, dy) pixels, positive dy moving content
// down. Exposed areas are transparent black; the size is unchanged.
func Translate(img image.Image, dx, dy int) image.Image {
	// bild treats positive dy as "up"
	return bild.Translate(img, dx, -dy)
}

// Patch is a square block of pixels.
type Patch struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Size int `json:"size"`
}

// MovePatch copies the patch at p to p+(dx, dy) on a copy of img. Pixels of
// the destination falling outside the image are dropped.
func MovePatch(img image.Image, p Patch, dx, dy int) (image.Image, error) {
	b := img.Bounds()
	if p.Size <= 0 {
		return nil, apperr.Validation("patch size must be positive, got %d", p.Size)
	}
	src := image.Rect(p.X, p.Y, p.X+p.Size, p.Y+p.Size).Add(b.Min)
	if !src.In(b) {
		return nil, apperr.Validation("patch (%d,%d) size %d outside image bounds %v", p.X, p.Y, p.Size, b)
	}
	block := dimaging.Crop(img, src)
	out := dimaging.Clone(img)
	return dimaging.Paste(out, block, image.Pt(p.X+dx, p.Y+dy)), nil
}

// Rotate rotates counter-clockwise by angle degrees about the image centre.
// The output keeps the input size; corners rotated out are cropped and
// uncovered areas are filled with black.
func Rotate(img image.Image, angle float64) image.Image {
	b := img.Bounds()
	rotated := dimaging.Rotate(img, angle, color.Black)
	canvas := dimaging.New(b.Dx(), b.Dy(), color.Black)
	return dimaging.PasteCenter(canvas, rotated)
}

// Rescale resizes by a scale factor with linear interpolation.
func Rescale(img image.Image, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, apperr.Validation("scale must be positive, got %g", scale)
	}
	b := img.Bounds()
	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	if w < 1 || h < 1 {
		return nil, apperr.Validation("scale %g collapses the %dx%d image", scale, b.Dx(), b.Dy())
	}
	return dimaging.Resize(img, w, h, dimaging.Linear), nil
}

// Resize resizes to an explicit size. A zero dimension preserves the aspect
// ratio.
func Resize(img image.Image, width, height int) (image.Image, error) {
	if width < 0 || height < 0 || (width == 0 && height == 0) {
		return nil, apperr.Validation("invalid target size %dx%d", width, height)
	}
	return dimaging.Resize(img, width, height, dimaging.Linear), nil
}

// Shear applies a shear of angle degrees along "horizontal" or "vertical".
// The canvas grows to fit the sheared image.
func Shear(img image.Image, angle float64, axis string) (image.Image, error) {
	switch axis {
	case "", "horizontal", "h", "x":
		return bild.ShearH(img, angle), nil
	case "vertical", "v", "y":
		return bild.ShearV(img, angle), nil
	}
	return nil, apperr.Validation("unknown shear axis %q (want horizontal or vertical)", axis)
}

// Flip mirrors the image along "horizontal" (left-right) or "vertical"
// (top-bottom).
func Flip(img image.Image, axis string) (image.Image, error) {
	switch axis {
	case "", "horizontal", "h", "x":
		return dimaging.FlipH(img), nil
	case "vertical", "v", "y":
		return dimaging.FlipV(img), nil
	}
	return nil, apperr.Validation("unknown flip axis %q (want horizontal or vertical)", axis)
}
