package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// ImageResult is a rendered image returned by a tool.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// OutputPath is set when the PNG was also written to disk.
	OutputPath string `json:"output_path,omitempty"`
}

// EncodeImage PNG-encodes img and, when outputPath is not empty, also writes
// the PNG to that path (creating parent directories).
func EncodeImage(img image.Image, outputPath string) (*ImageResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	if outputPath != "" {
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("failed to write output image: %w", err)
		}
	}

	b := img.Bounds()
	return &ImageResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		OutputPath:  outputPath,
	}, nil
}

// EncodePlane renders a plane as 16-bit grayscale PNG.
func EncodePlane(p *Plane, s Scaling, outputPath string) (*ImageResult, error) {
	return EncodeImage(p.ToGray16(s), outputPath)
}

// EncodeMask renders a mask as black and white PNG.
func EncodeMask(m *Mask, outputPath string) (*ImageResult, error) {
	return EncodeImage(m.ToGray(), outputPath)
}
