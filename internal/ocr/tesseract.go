package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	dimaging "github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion is a recognised word with its location and confidence.
type TextRegion struct {
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the complete results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognised text with its original line breaks.
	FullText string `json:"full_text"`

	// Regions holds individual words. It is empty when Tesseract cannot
	// report word boxes; FullText is still filled in.
	Regions []TextRegion `json:"regions"`
}

// Options configures a Tesseract run.
type Options struct {
	// Language is a Tesseract language code; empty means "eng".
	Language string
	// TessdataPrefix overrides the language data directory.
	TessdataPrefix string
}

// ExtractText runs OCR over the whole image.
func ExtractText(img image.Image, opts Options) (*OCRResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, apperr.Processing("tesseract OCR failed", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{FullText: text, Regions: []TextRegion{}}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}
	return &OCRResult{FullText: text, Regions: regions}, nil
}

// ExtractTextFromRegion runs OCR on r only. Word boxes are reported in the
// coordinates of the full image.
func ExtractTextFromRegion(img image.Image, r image.Rectangle, opts Options) (*OCRResult, error) {
	b := img.Bounds()
	r = r.Canon()
	if r.Empty() || !r.In(b.Sub(b.Min)) {
		return nil, apperr.Validation("region %v is empty or outside image bounds %dx%d", r, b.Dx(), b.Dy())
	}
	cropped := dimaging.Crop(img, r.Add(b.Min))

	result, err := ExtractText(cropped, opts)
	if err != nil {
		return nil, err
	}
	offsetRegions(result.Regions, r.Min)
	return result, nil
}

func offsetRegions(regions []TextRegion, d image.Point) {
	for i := range regions {
		regions[i].Bounds.X1 += d.X
		regions[i].Bounds.Y1 += d.Y
		regions[i].Bounds.X2 += d.X
		regions[i].Bounds.Y2 += d.Y
	}
}

// Version reports the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}
