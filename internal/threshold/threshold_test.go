package threshold

import (
	"image"
	"image/color"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ironsheep/bioimage-lab-mcp/internal/apperr"
	"github.com/ironsheep/bioimage-lab-mcp/internal/imaging"
)

// createBimodalPlane fills the left half with a normal population around 0.3
// and the right half with one around 0.7. Values are drawn from evenly spaced
// quantiles so the histogram tapers off towards both ends of the data range.
func createBimodalPlane(w, h int) *imaging.Plane {
	p := imaging.NewPlane(w, h)
	half := w / 2
	n := float64(half * h)
	dark := distuv.Normal{Mu: 0.3, Sigma: 0.05}
	bright := distuv.Normal{Mu: 0.7, Sigma: 0.05}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*half + x%half
			q := (float64(i) + 0.5) / n
			if x < half {
				p.Set(x, y, dark.Quantile(q))
			} else {
				p.Set(x, y, bright.Quantile(q))
			}
		}
	}
	return p
}

func TestGlobal_BimodalSeparation(t *testing.T) {
	p := createBimodalPlane(40, 40)
	lo, hi := p.MinMax()
	for _, m := range Methods {
		t.Run(m, func(t *testing.T) {
			th, err := Global(p, m)
			if err != nil {
				t.Fatalf("%s failed: %v", m, err)
			}
			if th < lo || th > hi {
				t.Errorf("%s threshold %g outside data range [%g, %g]", m, th, lo, hi)
			}
		})
	}

	// these methods must split the two populations
	for _, m := range []string{MethodOtsu, MethodMean, MethodLi, MethodIsodata, MethodMinimum} {
		th, _ := Global(p, m)
		if th < 0.4 || th > 0.6 {
			t.Errorf("%s threshold %g does not separate the classes", m, th)
		}
		f := p.Threshold(th).Fraction()
		if f < 0.45 || f > 0.55 {
			t.Errorf("%s foreground fraction %g", m, f)
		}
	}
}

func TestGlobal_Constant(t *testing.T) {
	p := imaging.NewPlane(4, 4)
	for i := range p.Pix {
		p.Pix[i] = 0.3
	}
	for _, m := range []string{MethodOtsu, MethodYen, MethodLi, MethodIsodata, MethodTriangle, MethodMean} {
		th, err := Global(p, m)
		if err != nil {
			t.Fatalf("%s failed: %v", m, err)
		}
		if math.Abs(th-0.3) > 1e-12 {
			t.Errorf("%s on constant plane = %g, want 0.3", m, th)
		}
	}
}

func TestGlobal_Unknown(t *testing.T) {
	_, err := Global(imaging.NewPlane(2, 2), "kittler")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestMinimum_FailsOnConstant(t *testing.T) {
	_, err := Minimum(imaging.NewPlane(8, 8))
	if !apperr.IsKind(err, apperr.KindProcessing) {
		t.Errorf("constant plane should fail with processing error, got %v", err)
	}
}

func TestTriangle_SkewedHistogram(t *testing.T) {
	// a large dark background with a thin bright tail
	p := imaging.NewPlane(50, 50)
	for i := range p.Pix {
		p.Pix[i] = 0.1
	}
	for i := 0; i < 250; i++ {
		p.Pix[i] = 0.1 + float64(i)/250*0.8
	}
	th, err := Triangle(p)
	if err != nil {
		t.Fatal(err)
	}
	if th <= 0.1 || th >= 0.9 {
		t.Errorf("triangle threshold %g should lie in the tail", th)
	}
}

func TestCompare(t *testing.T) {
	res := Compare(createBimodalPlane(20, 20))
	if len(res) != len(Methods) {
		t.Fatalf("got %d results", len(res))
	}
	for _, r := range res {
		if r.Error != "" {
			t.Errorf("%s failed: %s", r.Method, r.Error)
		}
	}

	flat := Compare(imaging.NewPlane(4, 4))
	var failed int
	for _, r := range flat {
		if r.Error != "" {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("only minimum should fail on a flat plane, %d failed", failed)
	}
}

func TestUniform3AndLocalMaxima(t *testing.T) {
	got := uniform3([]float64{3, 0, 0})
	want := []float64{2, 1, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("uniform3[%d] = %g, want %g", i, got[i], want[i])
		}
	}
	idx := localMaxima([]float64{0, 2, 1, 1, 3, 0})
	if len(idx) != 2 || idx[0] != 1 || idx[1] != 4 {
		t.Errorf("localMaxima = %v, want [1 4]", idx)
	}
}

func TestMeanStd_MatchesBruteForce(t *testing.T) {
	p := imaging.NewPlane(7, 5)
	for i := range p.Pix {
		p.Pix[i] = float64((i*37)%11) / 10
	}
	w := 3
	mean, std := meanStd(p, w)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			var s, sq float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					v := p.At(reflect101(x+dx, p.Width), reflect101(y+dy, p.Height))
					s += v
					sq += v * v
				}
			}
			m := s / 9
			sd := math.Sqrt(math.Max(sq/9-m*m, 0))
			if math.Abs(mean.At(x, y)-m) > 1e-9 || math.Abs(std.At(x, y)-sd) > 1e-6 {
				t.Fatalf("(%d,%d): got %g/%g, want %g/%g", x, y, mean.At(x, y), std.At(x, y), m, sd)
			}
		}
	}
}

func TestReflect101(t *testing.T) {
	tests := []struct{ i, n, want int }{
		{-1, 5, 1},
		{-2, 5, 2},
		{5, 5, 3},
		{6, 5, 2},
		{2, 5, 2},
		{-3, 2, 1},
		{4, 1, 0},
	}
	for _, tt := range tests {
		if got := reflect101(tt.i, tt.n); got != tt.want {
			t.Errorf("reflect101(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestLocal(t *testing.T) {
	flat := imaging.NewPlane(9, 9)
	for i := range flat.Pix {
		flat.Pix[i] = 0.4
	}
	// zero local deviation: Niblack keeps the mean, Sauvola scales it by 1-k
	flatWant := map[string]float64{MethodNiblack: 0.4, MethodSauvola: 0.4 * (1 - DefaultK)}
	for m, want := range flatWant {
		th, err := Local(flat, m, LocalParams{Window: 5, K: DefaultK})
		if err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		for _, v := range th.Pix {
			if math.Abs(v-want) > 1e-6 {
				t.Fatalf("%s on flat plane gave %g, want %g", m, v, want)
			}
		}
	}

	for _, w := range []int{1, 4} {
		if _, err := Niblack(flat, LocalParams{Window: w}); err == nil {
			t.Errorf("expected error for window %d", w)
		}
	}
	if _, err := Local(flat, "bernsen", LocalParams{Window: 3}); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestSauvola_TextOnGradient(t *testing.T) {
	// dark strokes on an unevenly lit page
	p := imaging.NewPlane(40, 20)
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			v := 0.4 + 0.5*float64(x)/40
			if x%8 == 3 {
				v -= 0.3
			}
			p.Set(x, y, v)
		}
	}
	th, err := Sauvola(p, LocalParams{Window: 7, K: DefaultK})
	if err != nil {
		t.Fatal(err)
	}
	m, err := p.ThresholdPlane(th)
	if err != nil {
		t.Fatal(err)
	}
	// strokes are below threshold everywhere, paper above
	for x := 0; x < 40; x++ {
		stroke := x%8 == 3
		if m.At(x, 10) == stroke {
			t.Errorf("column %d classified wrongly (stroke=%v)", x, stroke)
		}
	}
}

func TestSauvola_DefaultDynamicRange(t *testing.T) {
	p := imaging.NewPlane(9, 9)
	for i := range p.Pix {
		p.Pix[i] = float64(i%3) * 0.3
	}
	def, err := Sauvola(p, LocalParams{Window: 3, K: DefaultK})
	if err != nil {
		t.Fatal(err)
	}
	explicit, _ := Sauvola(p, LocalParams{Window: 3, K: DefaultK, R: DefaultR})
	narrow, _ := Sauvola(p, LocalParams{Window: 3, K: DefaultK, R: 0.25})
	differs := false
	for i := range def.Pix {
		if def.Pix[i] != explicit.Pix[i] {
			t.Fatalf("default R differs from R=%g at %d: %g vs %g", DefaultR, i, def.Pix[i], explicit.Pix[i])
		}
		if math.Abs(def.Pix[i]-narrow.Pix[i]) > 1e-9 {
			differs = true
		}
	}
	if !differs {
		t.Error("R should change the threshold where the window varies")
	}
	if _, err := Sauvola(p, LocalParams{Window: 3, R: -1}); err == nil {
		t.Error("expected error for negative R")
	}
}

func TestPreview8(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 50})
	img.SetGray(1, 0, color.Gray{Y: 200})
	out, err := Preview8(img, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if out.GrayAt(0, 0).Y != 0 || out.GrayAt(1, 0).Y != 255 {
		t.Errorf("preview = %v", out.Pix)
	}
	if _, err := Preview8(img, 2); err == nil {
		t.Error("expected error for level > 1")
	}
}
