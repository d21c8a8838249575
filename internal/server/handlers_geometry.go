package server

import (
	"encoding/json"
	"image"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/transform"
)

// Transform operations accepted by image_transform.
const (
	opTranslate = "translate"
	opMovePatch = "move_patch"
	opRotate    = "rotate"
	opRescale   = "rescale"
	opResize    = "resize"
	opShear     = "shear"
	opFlip      = "flip"
	opAffine    = "affine"
)

type transformArgs struct {
	source
	output
	Op     string    `json:"op"`
	DX     int       `json:"dx"`
	DY     int       `json:"dy"`
	X      int       `json:"x"`
	Y      int       `json:"y"`
	Size   int       `json:"size"`
	Angle  float64   `json:"angle"`
	Scale  float64   `json:"scale"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Axis   string    `json:"axis"`
	Matrix []float64 `json:"matrix"`
}

func (s *Server) handleTransform(args json.RawMessage) (interface{}, error) {
	var a transformArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}

	var out image.Image
	switch a.Op {
	case opTranslate:
		out = transform.Translate(img, a.DX, a.DY)
	case opMovePatch:
		out, err = transform.MovePatch(img, transform.Patch{X: a.X, Y: a.Y, Size: a.Size}, a.DX, a.DY)
	case opRotate:
		out = transform.Rotate(img, a.Angle)
	case opRescale:
		out, err = transform.Rescale(img, a.Scale)
	case opResize:
		out, err = transform.Resize(img, a.Width, a.Height)
	case opShear:
		out, err = transform.Shear(img, a.Angle, a.Axis)
	case opFlip:
		out, err = transform.Flip(img, a.Axis)
	case opAffine:
		var rgb *imaging.RGB
		rgb, err = transform.Affine(imaging.RGBFromImage(img), a.Matrix)
		if err == nil {
			out = rgb.ToNRGBA()
		}
	case "":
		return nil, apperr.Validation("op is required")
	default:
		return nil, apperr.Validation("unknown transform %q", a.Op)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.encodeImage(out, a.OutputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"op":    a.Op,
		"image": res,
	}, nil
}

type swirlArgs struct {
	source
	output
	Strength *float64 `json:"strength"`
	Radius   float64  `json:"radius"`
	Rotation float64  `json:"rotation"`
	CenterX  *float64 `json:"center_x"`
	CenterY  *float64 `json:"center_y"`
}

func (s *Server) handleSwirl(args json.RawMessage) (interface{}, error) {
	var a swirlArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if (a.CenterX == nil) != (a.CenterY == nil) {
		return nil, apperr.Validation("center_x and center_y must be given together")
	}
	sp := transform.SwirlParams{
		Strength: 5,
		Radius:   orDefault(a.Radius, 150),
		Rotation: a.Rotation,
	}
	if a.Strength != nil {
		sp.Strength = *a.Strength
	}
	if a.CenterX != nil {
		sp.Centered = true
		sp.CenterX, sp.CenterY = *a.CenterX, *a.CenterY
	}

	img, err := s.loadImage(a.source)
	if err != nil {
		return nil, err
	}
	out, err := transform.Swirl(imaging.RGBFromImage(img), sp)
	if err != nil {
		return nil, err
	}
	res, err := s.encodeImage(out.ToNRGBA(), a.OutputPath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"strength": sp.Strength,
		"radius":   sp.Radius,
		"rotation": sp.Rotation,
		"image":    res,
	}, nil
}
