package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/threshold"
)

// drawText draws text on an image using basicfont
func drawText(img draw.Image, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// textImage renders text black on white and scales it up by nearest
// neighbour so Tesseract sees strokes several pixels wide.
func textImage(text string, scale int) *image.Gray {
	w, h := len(text)*7+40, 40
	small := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	drawText(small, 20, 25, text, color.Black)

	big := image.NewGray(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h*scale; y++ {
		for x := 0; x < w*scale; x++ {
			big.SetGray(x, y, small.GrayAt(x/scale, y/scale))
		}
	}
	return big
}

// tesseractMissing reports whether err means the engine or its data is not
// installed.
func tesseractMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "tesseract") || strings.Contains(msg, "library") ||
		strings.Contains(msg, "language")
}

// unevenPage renders dark text over a left-to-right illumination ramp.
func unevenPage(text string) *imaging.Plane {
	img := textImage(text, 3)
	p := imaging.FromImage(img)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			shade := 0.5 + 0.5*float64(x)/float64(p.Width)
			p.Set(x, y, p.At(x, y)*shade*0.8+0.1)
		}
	}
	return p
}

func TestBinarize(t *testing.T) {
	p := unevenPage("HELLO")
	bin, err := Binarize(p, threshold.MethodSauvola, threshold.LocalParams{Window: 25, K: 0.2})
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}
	if bin.Bounds().Dx() != p.Width || bin.Bounds().Dy() != p.Height {
		t.Fatalf("bounds %v", bin.Bounds())
	}

	var ink, paper, inkAsInk, paperAsPaper int
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			dark := p.At(x, y) < 0.2
			black := bin.GrayAt(x, y).Y == 0
			if dark {
				ink++
				if black {
					inkAsInk++
				}
			} else {
				paper++
				if !black {
					paperAsPaper++
				}
			}
		}
	}
	if ink == 0 {
		t.Fatal("test page has no ink")
	}
	if float64(inkAsInk)/float64(ink) < 0.9 {
		t.Errorf("only %d of %d ink pixels stayed black", inkAsInk, ink)
	}
	if float64(paperAsPaper)/float64(paper) < 0.9 {
		t.Errorf("only %d of %d paper pixels became white", paperAsPaper, paper)
	}
}

func TestBinarize_BadParams(t *testing.T) {
	p := imaging.NewPlane(8, 8)
	_, err := Binarize(p, threshold.MethodNiblack, threshold.LocalParams{Window: 4})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for even window, got %v", err)
	}
	if _, err := Binarize(p, "bernsen", threshold.LocalParams{Window: 5}); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestOffsetRegions(t *testing.T) {
	regions := []TextRegion{{Text: "a", Bounds: Bounds{1, 2, 3, 4}}}
	offsetRegions(regions, image.Pt(100, 50))
	want := Bounds{101, 52, 103, 54}
	if regions[0].Bounds != want {
		t.Errorf("got %+v, want %+v", regions[0].Bounds, want)
	}
}

func TestExtractTextFromRegion_InvalidRegion(t *testing.T) {
	img := textImage("AB", 1)
	tests := []struct {
		name string
		r    image.Rectangle
	}{
		{"empty", image.Rect(5, 5, 5, 10)},
		{"outside", image.Rect(0, 0, 1000, 10)},
		{"negative", image.Rect(-5, 0, 10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractTextFromRegion(img, tt.r, Options{})
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestExtractText_RealText(t *testing.T) {
	result, err := ExtractText(textImage("HELLO WORLD", 3), Options{Language: "eng"})
	if err != nil {
		if tesseractMissing(err) {
			t.Skip("Tesseract not available")
		}
		t.Fatalf("ExtractText failed: %v", err)
	}
	t.Logf("Extracted text: %q (%d regions)", result.FullText, len(result.Regions))
	if !strings.Contains(strings.ToUpper(result.FullText), "HELLO") {
		t.Logf("Warning: expected HELLO in %q", result.FullText)
	}
	for _, r := range result.Regions {
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("confidence %g out of range", r.Confidence)
		}
	}
}

func TestExtractTextFromRegion_BoundsAdjustment(t *testing.T) {
	img := textImage("TEST", 4)
	r := image.Rect(40, 20, img.Bounds().Dx(), img.Bounds().Dy())
	result, err := ExtractTextFromRegion(img, r, Options{})
	if err != nil {
		if tesseractMissing(err) {
			t.Skip("Tesseract not available")
		}
		t.Fatalf("ExtractTextFromRegion failed: %v", err)
	}
	for _, reg := range result.Regions {
		if reg.Bounds.X1 < r.Min.X || reg.Bounds.Y1 < r.Min.Y {
			t.Errorf("region %q not offset into image coordinates: %+v", reg.Text, reg.Bounds)
		}
	}
}

func TestExtractBinarized(t *testing.T) {
	res, err := ExtractBinarized(unevenPage("PAGE"), threshold.MethodSauvola,
		threshold.LocalParams{Window: 25, K: 0.2}, Options{})
	if err != nil {
		if tesseractMissing(err) {
			t.Skip("Tesseract not available")
		}
		t.Fatalf("ExtractBinarized failed: %v", err)
	}
	if res.Binary == nil || res.OCR == nil {
		t.Fatal("missing result parts")
	}
	t.Logf("Extracted from binarised page: %q", res.OCR.FullText)
}

func TestVersion(t *testing.T) {
	t.Logf("tesseract %s", Version())
}
