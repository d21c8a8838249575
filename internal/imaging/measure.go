package imaging

import (
	"image"
	"math"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
)

// Point represents a 2D point
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DistanceResult contains measurement information
type DistanceResult struct {
	DistancePixels        float64 `json:"distance_pixels"`
	DeltaX                int     `json:"delta_x"`
	DeltaY                int     `json:"delta_y"`
	AngleDegrees          float64 `json:"angle_degrees"`
	DistancePercentWidth  float64 `json:"distance_percent_width"`
	DistancePercentHeight float64 `json:"distance_percent_height"`
}

// MeasureDistance calculates the distance between two points
func MeasureDistance(img image.Image, x1, y1, x2, y2 int) (*DistanceResult, error) {
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	deltaX := x2 - x1
	deltaY := y2 - y1

	distance := math.Sqrt(float64(deltaX*deltaX + deltaY*deltaY))

	// 0 = horizontal right, 90 = down
	angle := math.Atan2(float64(deltaY), float64(deltaX)) * 180 / math.Pi

	return &DistanceResult{
		DistancePixels:        math.Round(distance*100) / 100,
		DeltaX:                deltaX,
		DeltaY:                deltaY,
		AngleDegrees:          math.Round(angle*10) / 10,
		DistancePercentWidth:  math.Round(distance/width*1000) / 10,
		DistancePercentHeight: math.Round(distance/height*1000) / 10,
	}, nil
}

// ProfileResult is the intensity along a row or column.
type ProfileResult struct {
	Axis   string    `json:"axis"`
	Index  int       `json:"index"`
	Values []float64 `json:"values"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
	Mean   float64   `json:"mean"`
}

// IntensityProfile returns the plane values along row or column index.
// axis is "row" or "column".
func IntensityProfile(p *Plane, axis string, index int) (*ProfileResult, error) {
	var values []float64
	switch axis {
	case "", "row":
		axis = "row"
		if index < 0 || index >= p.Height {
			return nil, apperr.Validation("row %d outside 0..%d", index, p.Height-1)
		}
		values = p.Row(index)
	case "column", "col":
		axis = "column"
		if index < 0 || index >= p.Width {
			return nil, apperr.Validation("column %d outside 0..%d", index, p.Width-1)
		}
		values = p.Column(index)
	default:
		return nil, apperr.Validation("axis must be row or column, got %q", axis)
	}

	lo, hi := values[0], values[0]
	var sum float64
	for i, v := range values {
		values[i] = round4(v)
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	return &ProfileResult{
		Axis:   axis,
		Index:  index,
		Values: values,
		Min:    round4(lo),
		Max:    round4(hi),
		Mean:   round4(sum / float64(len(values))),
	}, nil
}
