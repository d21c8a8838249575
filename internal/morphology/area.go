package morphology

import (
	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
	"github.com/ironsheep/bioimage-lab-mcp/internal/measure"
)

// RemoveSmallObjects drops foreground components with fewer than minSize
// pixels.
func RemoveSmallObjects(m *imaging.Mask, minSize, conn int) (*imaging.Mask, error) {
	if minSize < 0 {
		return nil, apperr.Validation("minimum size must be non-negative, got %d", minSize)
	}
	labels, err := measure.Label(m, conn)
	if err != nil {
		return nil, err
	}
	areas := labels.Areas()
	out := imaging.NewMask(m.Width, m.Height)
	for i, k := range labels.Pix {
		out.Pix[i] = k > 0 && areas[k] >= minSize
	}
	return out, nil
}

// RemoveSmallHoles fills background components with fewer than
// areaThreshold pixels. A small background region touching the border is
// filled as well.
func RemoveSmallHoles(m *imaging.Mask, areaThreshold, conn int) (*imaging.Mask, error) {
	inv, err := RemoveSmallObjects(m.Invert(), areaThreshold, conn)
	if err != nil {
		return nil, err
	}
	return inv.Invert(), nil
}

// AreaOpening removes bright components smaller than areaThreshold. On a
// binary mask this is RemoveSmallObjects.
func AreaOpening(m *imaging.Mask, areaThreshold, conn int) (*imaging.Mask, error) {
	return RemoveSmallObjects(m, areaThreshold, conn)
}

// AreaClosing fills dark components smaller than areaThreshold. On a binary
// mask this is RemoveSmallHoles.
func AreaClosing(m *imaging.Mask, areaThreshold, conn int) (*imaging.Mask, error) {
	return RemoveSmallHoles(m, areaThreshold, conn)
}

// ConvexHullObjects replaces each connected object by its convex hull.
func ConvexHullObjects(m *imaging.Mask, conn int) (*imaging.Mask, error) {
	labels, err := measure.Label(m, conn)
	if err != nil {
		return nil, err
	}
	out := m.Clone()
	if labels.Count == 0 {
		return out, nil
	}
	for k := 1; k <= labels.Count; k++ {
		hull := measure.ConvexHullMask(labels.Mask(k))
		for i, v := range hull.Pix {
			if v {
				out.Pix[i] = true
			}
		}
	}
	return out, nil
}
