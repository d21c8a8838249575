package colormap

import (
	"image/color"
	"testing"

	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

func TestGet_AllNames(t *testing.T) {
	for _, name := range Names() {
		for _, n := range []string{name, name + "_r"} {
			t.Run(n, func(t *testing.T) {
				lut, err := Get(n)
				if err != nil {
					t.Fatalf("Get(%q) failed: %v", n, err)
				}
				if lut.Entries[0] == lut.Entries[Size-1] {
					t.Errorf("first and last entries identical: %v", lut.Entries[0])
				}
			})
		}
	}
}

func TestGet_Gray(t *testing.T) {
	lut, err := Get("gray")
	if err != nil {
		t.Fatal(err)
	}
	if lut.Entries[0] != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("gray[0] = %v", lut.Entries[0])
	}
	if lut.Entries[255] != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("gray[255] = %v", lut.Entries[255])
	}
	// gray must be monotonic
	for i := 1; i < Size; i++ {
		if lut.Entries[i].R < lut.Entries[i-1].R {
			t.Fatalf("gray not monotonic at %d", i)
		}
	}
}

func TestGet_ReversedMatchesReversed(t *testing.T) {
	fwd, _ := Get("viridis")
	rev, _ := Get("viridis_r")
	flipped := fwd.Reversed()
	for i := 0; i < Size; i++ {
		if rev.Entries[i] != flipped.Entries[i] {
			t.Fatalf("entry %d: %v vs %v", i, rev.Entries[i], flipped.Entries[i])
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	if _, err := Get("rainbow-unicorn"); err == nil {
		t.Error("expected error for unknown map")
	}
}

func TestFromHex(t *testing.T) {
	lut, err := FromHex("#00ff00")
	if err != nil {
		t.Fatal(err)
	}
	if lut.Entries[255] != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("top entry = %v", lut.Entries[255])
	}
	if _, err := FromHex("green"); err == nil {
		t.Error("expected error for non-hex colour")
	}
}

func TestApply_RangeAndClipping(t *testing.T) {
	p, _ := imaging.PlaneFromValues(3, 1, []float64{0, 0.5, 1})
	lut, _ := Get("gray")

	img, lo, hi := lut.Apply(p, 0, 0)
	if lo != 0 || hi != 1 {
		t.Errorf("auto range: %g..%g", lo, hi)
	}
	if img.NRGBAAt(0, 0).R != 0 || img.NRGBAAt(2, 0).R != 255 {
		t.Error("auto range endpoints wrong")
	}

	img, _, _ = lut.Apply(p, 0, 0.5)
	if img.NRGBAAt(1, 0).R != 255 || img.NRGBAAt(2, 0).R != 255 {
		t.Error("values above vmax should clip to the top entry")
	}

	flat := imaging.NewPlane(2, 2)
	img, _, _ = lut.Apply(flat, 0, 0)
	if img.NRGBAAt(0, 0).R != 0 {
		t.Error("flat plane should render the lowest entry")
	}
}

func TestWithColorbar(t *testing.T) {
	p := imaging.NewPlane(64, 32)
	lut, _ := Get("hot")
	img, _, _ := lut.WithColorbar(p, 0, 1)
	if img.Bounds().Dx() <= 64 || img.Bounds().Dy() != 32 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	// top of the bar is the max colour
	right := img.Bounds().Dx() - 1
	if img.NRGBAAt(right, 0) != lut.Entries[Size-1] {
		t.Errorf("colorbar top = %v, want %v", img.NRGBAAt(right, 0), lut.Entries[Size-1])
	}
}

func TestOverlay(t *testing.T) {
	p := imaging.NewPlane(2, 1)
	m := imaging.NewMask(2, 1)
	m.Set(1, 0, true)

	img, err := Overlay(p, m, color.NRGBA{255, 0, 0, 255}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if img.NRGBAAt(1, 0).R != 255 || img.NRGBAAt(0, 0).R != 0 {
		t.Errorf("overlay pixels: %v %v", img.NRGBAAt(0, 0), img.NRGBAAt(1, 0))
	}

	if _, err := Overlay(p, imaging.NewMask(3, 1), color.NRGBA{}, 0.5); err == nil {
		t.Error("expected shape error")
	}
}

func TestColorizeLabels(t *testing.T) {
	labels := []int{0, 1, 2, 2}
	img := ColorizeLabels(2, 2, labels, 2)
	if img.NRGBAAt(0, 0) != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("background = %v", img.NRGBAAt(0, 0))
	}
	if img.NRGBAAt(1, 0) == img.NRGBAAt(0, 1) {
		t.Error("labels 1 and 2 should differ")
	}
	if img.NRGBAAt(0, 1) != img.NRGBAAt(1, 1) {
		t.Error("same label must share a colour")
	}
	if len(LabelColors(0)) != 0 {
		t.Error("LabelColors(0) should be empty")
	}
}
