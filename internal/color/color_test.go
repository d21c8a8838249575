package color

import (
	"image"
	stdcolor "image/color"
	"math"
	"testing"

	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

func createSolidImage(w, h int, c stdcolor.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestSplitChannels(t *testing.T) {
	img := createSolidImage(4, 4, stdcolor.NRGBA{200, 100, 50, 255})
	ch := SplitChannels(img)
	want := [3]uint8{200, 100, 50}
	for i := 0; i < 3; i++ {
		if got := ch[i].GrayAt(1, 1).Y; got != want[i] {
			t.Errorf("%s channel = %d, want %d", ChannelNames[i], got, want[i])
		}
	}
}

func TestTint(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 1, 1))
	g.SetGray(0, 0, stdcolor.Gray{Y: 90})
	out, err := Tint(g, 1)
	if err != nil {
		t.Fatal(err)
	}
	if px := out.NRGBAAt(0, 0); px != (stdcolor.NRGBA{0, 90, 0, 255}) {
		t.Errorf("tinted pixel = %v", px)
	}
	if _, err := Tint(g, 3); err == nil {
		t.Error("expected error for channel 3")
	}
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"red", 0, true},
		{"g", 1, true},
		{"2", 2, true},
		{"alpha", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseChannel(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("ParseChannel(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestRGBToGray_Weights(t *testing.T) {
	rgb := imaging.RGBFromImage(createSolidImage(1, 1, stdcolor.NRGBA{255, 0, 0, 255}))
	if got := RGBToGray(rgb).Pix[0]; math.Abs(got-0.2125) > 1e-9 {
		t.Errorf("pure red gray = %g, want 0.2125", got)
	}
}

func TestScaleChannels(t *testing.T) {
	rgb := imaging.RGBFromImage(createSolidImage(2, 2, stdcolor.NRGBA{102, 102, 102, 255}))
	out := ScaleChannels(rgb, [3]float64{3, 1, 0})
	if out.R.Pix[0] != 1 {
		t.Errorf("red should clip to 1, got %g", out.R.Pix[0])
	}
	if math.Abs(out.G.Pix[0]-0.4) > 1e-9 {
		t.Errorf("green unchanged expected 0.4, got %g", out.G.Pix[0])
	}
	if out.B.Pix[0] != 0 {
		t.Errorf("blue removed expected 0, got %g", out.B.Pix[0])
	}
}

func TestBlend(t *testing.T) {
	a := imaging.RGBFromImage(createSolidImage(2, 2, stdcolor.NRGBA{0, 0, 0, 255}))
	b := imaging.RGBFromImage(createSolidImage(2, 2, stdcolor.NRGBA{255, 255, 255, 255}))
	out, err := Blend(a, b, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out.G.Pix[3]-0.25) > 1e-9 {
		t.Errorf("blend = %g, want 0.25", out.G.Pix[3])
	}
	if _, err := Blend(a, b, 1.5); err == nil {
		t.Error("expected error for weight > 1")
	}
	c := imaging.RGBFromImage(createSolidImage(3, 2, stdcolor.NRGBA{}))
	if _, err := Blend(a, c, 0.5); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestHED_RoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, stdcolor.NRGBA{120, 80, 160, 255})
	img.SetNRGBA(1, 0, stdcolor.NRGBA{200, 150, 100, 255})
	img.SetNRGBA(2, 0, stdcolor.NRGBA{255, 255, 255, 255})
	rgb := imaging.RGBFromImage(img)

	hed, err := RGBToHED(rgb)
	if err != nil {
		t.Fatal(err)
	}
	back := HEDToRGB(hed)
	for i := 0; i < 3; i++ {
		src, _ := rgb.Channel(i)
		dst, _ := back.Channel(i)
		for k := range src.Pix {
			// concentrations clipped at zero may not invert exactly
			if hed.H.Pix[k] == 0 || hed.E.Pix[k] == 0 || hed.D.Pix[k] == 0 {
				continue
			}
			if math.Abs(src.Pix[k]-dst.Pix[k]) > 1e-6 {
				t.Errorf("channel %d pixel %d: %g -> %g", i, k, src.Pix[k], dst.Pix[k])
			}
		}
	}

	// white carries no stain
	if hed.H.Pix[2] != 0 || hed.E.Pix[2] != 0 || hed.D.Pix[2] != 0 {
		t.Errorf("white pixel has stain: %g %g %g", hed.H.Pix[2], hed.E.Pix[2], hed.D.Pix[2])
	}
}

func TestIsolateStain_Hematoxylin(t *testing.T) {
	// a purely haematoxylin-coloured pixel: transmission 10^-(c * vector)
	c := 0.5
	px := stdcolor.NRGBA{
		R: uint8(math.Round(255 * math.Pow(10, -c*0.65))),
		G: uint8(math.Round(255 * math.Pow(10, -c*0.70))),
		B: uint8(math.Round(255 * math.Pow(10, -c*0.29))),
		A: 255,
	}
	rgb := imaging.RGBFromImage(createSolidImage(1, 1, px))
	hed, err := RGBToHED(rgb)
	if err != nil {
		t.Fatal(err)
	}
	if hed.H.Pix[0] <= hed.D.Pix[0] || hed.H.Pix[0] <= hed.E.Pix[0] {
		t.Errorf("expected haematoxylin to dominate: %g %g %g", hed.H.Pix[0], hed.E.Pix[0], hed.D.Pix[0])
	}

	only, err := IsolateStain(hed, 0)
	if err != nil {
		t.Fatal(err)
	}
	// blue is absorbed least by haematoxylin
	if only.B.Pix[0] <= only.R.Pix[0] {
		t.Errorf("isolated haematoxylin should be bluish: %v %v %v", only.R.Pix[0], only.G.Pix[0], only.B.Pix[0])
	}
	if _, err := IsolateStain(hed, 5); err == nil {
		t.Error("expected error for stain 5")
	}
}

func TestParseStain(t *testing.T) {
	for in, want := range map[string]int{"h": 0, "eosin": 1, "dab": 2} {
		got, err := ParseStain(in)
		if err != nil || got != want {
			t.Errorf("ParseStain(%q) = %d, %v", in, got, err)
		}
	}
	if _, err := ParseStain("x"); err == nil {
		t.Error("expected error")
	}
}
