// Package colormap renders scalar planes through lookup tables.
//
// A lookup table (LUT) maps a normalised intensity in [0, 1] to a colour.
// Tables are built from a handful of control colours blended in CIE Lab space
// so that perceived lightness changes smoothly between stops.
package colormap

import (
	"image"
	"image/color"
	"math"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// Size is the number of entries in every LUT.
const Size = 256

// LUT is a 256-entry colour table.
type LUT struct {
	Name    string
	Entries [Size]color.NRGBA
}

// stops lists the control colours of each built-in map, low to high.
var stops = map[string][]string{
	"gray":          {"#000000", "#ffffff"},
	"viridis":       {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	"magma":         {"#000004", "#1c1044", "#4f127b", "#812581", "#b5367a", "#e55064", "#fb8761", "#fec287", "#fcfdbf"},
	"inferno":       {"#000004", "#1f0c48", "#550f6d", "#88226a", "#ba3655", "#e35933", "#f98e09", "#f9cb35", "#fcffa4"},
	"plasma":        {"#0d0887", "#41049d", "#6a00a8", "#8f0da4", "#b12a90", "#cc4778", "#e16462", "#f2844b", "#fca636", "#f0f921"},
	"hot":           {"#0b0000", "#ff0000", "#ffff00", "#ffffff"},
	"jet":           {"#00007f", "#0000ff", "#007fff", "#00ffff", "#7fff7f", "#ffff00", "#ff7f00", "#ff0000", "#7f0000"},
	"cool":          {"#00ffff", "#ff00ff"},
	"greens":        {"#f7fcf5", "#c7e9c0", "#74c476", "#238b45", "#00441b"},
	"reds":          {"#fff5f0", "#fcbba1", "#fb6a4a", "#cb181d", "#67000d"},
	"blues":         {"#f7fbff", "#c6dbef", "#6baed6", "#2171b5", "#08306b"},
	"nipy_spectral": {"#000000", "#770088", "#0000dd", "#0099dd", "#00aa88", "#00bb00", "#00ff00", "#ddee00", "#ff9900", "#dd0000", "#cccccc"},
	"green":         {"#000000", "#00ff00"},
	"magenta":       {"#000000", "#ff00ff"},
}

// Names returns every available map name, reversed variants excluded.
func Names() []string {
	out := make([]string, 0, len(stops))
	for n := range stops {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Get builds the named LUT. A "_r" suffix reverses any map.
func Get(name string) (*LUT, error) {
	base := name
	reversed := strings.HasSuffix(name, "_r")
	if reversed {
		base = strings.TrimSuffix(name, "_r")
	}
	hexes, ok := stops[base]
	if !ok {
		return nil, apperr.Validation("unknown colormap %q", name)
	}

	cols := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, apperr.Internal("bad colormap stop "+h, err)
		}
		cols[i] = c
	}

	lut := &LUT{Name: name}
	for i := 0; i < Size; i++ {
		t := float64(i) / (Size - 1)
		if reversed {
			t = 1 - t
		}
		c := sample(cols, t)
		r, g, b := c.Clamped().RGB255()
		lut.Entries[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return lut, nil
}

// FromHex builds a two-stop LUT from black to the given colour.
func FromHex(hex string) (*LUT, error) {
	end, err := colorful.Hex(hex)
	if err != nil {
		return nil, apperr.Validation("invalid colour %q", hex)
	}
	black := colorful.Color{}
	lut := &LUT{Name: hex}
	for i := 0; i < Size; i++ {
		r, g, b := black.BlendRgb(end, float64(i)/(Size-1)).Clamped().RGB255()
		lut.Entries[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return lut, nil
}

func sample(cols []colorful.Color, t float64) colorful.Color {
	if len(cols) == 1 {
		return cols[0]
	}
	pos := t * float64(len(cols)-1)
	i := int(math.Floor(pos))
	if i >= len(cols)-1 {
		return cols[len(cols)-1]
	}
	return cols[i].BlendLab(cols[i+1], pos-float64(i))
}

// Lookup returns the colour for a normalised value; values are clipped.
func (l *LUT) Lookup(v float64) color.NRGBA {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return l.Entries[int(math.Round(v*(Size-1)))]
}

// Reversed returns a copy with the table order flipped.
func (l *LUT) Reversed() *LUT {
	out := &LUT{Name: l.Name + "_r"}
	for i := range l.Entries {
		out.Entries[i] = l.Entries[Size-1-i]
	}
	return out
}

// Apply renders p through the LUT, mapping [vmin, vmax] to the table range.
// When vmin == vmax the plane's own range is used.
func (l *LUT) Apply(p *imaging.Plane, vmin, vmax float64) (*image.NRGBA, float64, float64) {
	if vmin == vmax {
		vmin, vmax = p.MinMax()
	}
	span := vmax - vmin
	out := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := 0.0
			if span != 0 {
				v = (p.At(x, y) - vmin) / span
			}
			out.SetNRGBA(x, y, l.Lookup(v))
		}
	}
	return out, vmin, vmax
}

// Colorbar renders a vertical bar, high values at the top.
func (l *LUT) Colorbar(width, height int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		v := 1.0
		if height > 1 {
			v = 1 - float64(y)/float64(height-1)
		}
		c := l.Lookup(v)
		for x := 0; x < width; x++ {
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

// WithColorbar renders the plane and appends a colorbar on the right.
func (l *LUT) WithColorbar(p *imaging.Plane, vmin, vmax float64) (*image.NRGBA, float64, float64) {
	body, lo, hi := l.Apply(p, vmin, vmax)
	barW := max(4, p.Width/16)
	gap := max(2, barW/2)
	out := image.NewNRGBA(image.Rect(0, 0, p.Width+gap+barW, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < out.Bounds().Dx(); x++ {
			out.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	copyInto(out, body, 0)
	copyInto(out, l.Colorbar(barW, p.Height), p.Width+gap)
	return out, lo, hi
}

func copyInto(dst, src *image.NRGBA, offsetX int) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetNRGBA(x+offsetX, y, src.NRGBAAt(x, y))
		}
	}
}

// Overlay tints mask pixels of a gray rendering with c at the given opacity.
func Overlay(p *imaging.Plane, m *imaging.Mask, c color.NRGBA, alpha float64) (*image.NRGBA, error) {
	if p.Width != m.Width || p.Height != m.Height {
		return nil, apperr.Validation("overlay shape mismatch: %dx%d vs %dx%d", p.Width, p.Height, m.Width, m.Height)
	}
	gray, err := Get("gray")
	if err != nil {
		return nil, err
	}
	out, _, _ := gray.Apply(p, 0, 0)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			if !m.At(x, y) {
				continue
			}
			base := out.NRGBAAt(x, y)
			out.SetNRGBA(x, y, color.NRGBA{
				R: mix(base.R, c.R, alpha),
				G: mix(base.G, c.G, alpha),
				B: mix(base.B, c.B, alpha),
				A: 255,
			})
		}
	}
	return out, nil
}

func mix(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a)*(1-t) + float64(b)*t))
}
