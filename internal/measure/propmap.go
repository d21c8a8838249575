package measure

import (
	"sort"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

var propertyGetters = map[string]func(r *Region) (float64, bool){
	"label":               func(r *Region) (float64, bool) { return float64(r.Label), true },
	"area":                func(r *Region) (float64, bool) { return float64(r.Area), true },
	"centroid_x":          func(r *Region) (float64, bool) { return r.CentroidCol, true },
	"centroid_y":          func(r *Region) (float64, bool) { return r.CentroidRow, true },
	"perimeter":           func(r *Region) (float64, bool) { return r.Perimeter, true },
	"equivalent_diameter": func(r *Region) (float64, bool) { return r.EquivalentDiameter, true },
	"major_axis_length":   func(r *Region) (float64, bool) { return r.MajorAxisLength, true },
	"minor_axis_length":   func(r *Region) (float64, bool) { return r.MinorAxisLength, true },
	"eccentricity":        func(r *Region) (float64, bool) { return r.Eccentricity, true },
	"orientation":         func(r *Region) (float64, bool) { return r.Orientation, true },
	"solidity":            func(r *Region) (float64, bool) { return r.Solidity, true },
	"extent":              func(r *Region) (float64, bool) { return r.Extent, true },
	"mean_intensity":      optional(func(r *Region) *float64 { return r.MeanIntensity }),
	"min_intensity":       optional(func(r *Region) *float64 { return r.MinIntensity }),
	"max_intensity":       optional(func(r *Region) *float64 { return r.MaxIntensity }),
}

func optional(get func(r *Region) *float64) func(r *Region) (float64, bool) {
	return func(r *Region) (float64, bool) {
		v := get(r)
		if v == nil {
			return 0, false
		}
		return *v, true
	}
}

// PropertyNames lists the properties PropertyMap accepts.
func PropertyNames() []string {
	names := make([]string, 0, len(propertyGetters))
	for n := range propertyGetters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Property returns the named property of a region.
func Property(r *Region, name string) (float64, error) {
	get, ok := propertyGetters[name]
	if !ok {
		return 0, apperr.Validation("unknown region property %q", name)
	}
	v, ok := get(r)
	if !ok {
		return 0, apperr.Validation("property %q needs an intensity image", name)
	}
	return v, nil
}

// PropertyMap paints every object with the value of one property; the
// background stays 0.
func PropertyMap(l *Labels, regions []Region, name string) (*imaging.Plane, error) {
	values := make([]float64, l.Count+1)
	for i := range regions {
		r := &regions[i]
		if r.Label < 1 || r.Label > l.Count {
			return nil, apperr.Validation("region label %d outside label image (count %d)", r.Label, l.Count)
		}
		v, err := Property(r, name)
		if err != nil {
			return nil, err
		}
		values[r.Label] = v
	}
	out := imaging.NewPlane(l.Width, l.Height)
	for i, k := range l.Pix {
		out.Pix[i] = values[k]
	}
	return out, nil
}
