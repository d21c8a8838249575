package samples

import (
	"image"
	"math"
)

type nucleus struct {
	x, y, rx, ry, angle, amp float64
}

// scatterNuclei places non-overlapping nuclei on a w x h field.
func scatterNuclei(w, h, n int, seed uint64) []nucleus {
	rng := newRand(seed)
	out := make([]nucleus, 0, n)
	for tries := 0; len(out) < n && tries < n*200; tries++ {
		rx := 6 + rng.Float64()*5
		ry := rx * (0.7 + rng.Float64()*0.3)
		nu := nucleus{
			x:     rx + 2 + rng.Float64()*(float64(w)-2*rx-4),
			y:     rx + 2 + rng.Float64()*(float64(h)-2*rx-4),
			rx:    rx,
			ry:    ry,
			angle: rng.Float64() * math.Pi,
			amp:   0.18 + rng.Float64()*0.15,
		}
		ok := true
		for _, o := range out {
			if math.Hypot(nu.x-o.x, nu.y-o.y) < nu.rx+o.rx+4 {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, nu)
		}
	}
	return out
}

func nuclei(w, h int, seed uint64) image.Image {
	c := newCanvas(w, h, 0.03)
	ns := scatterNuclei(w, h, 40, seed)
	for i, n := range ns {
		amp := n.amp
		// every seventh nucleus is a bright, compact mitotic figure
		if i%7 == 3 {
			amp = 0.65
			n.rx *= 0.7
			n.ry *= 0.5
		}
		c.blob(n.x, n.y, n.rx, n.ry, n.angle, amp)
		// darker nucleoli give the masks holes to fill
		if i%3 == 0 && i%7 != 3 {
			c.gauss(n.x+n.rx*0.2, n.y, 1.5, -amp*0.6)
		}
	}
	c.noise(newRand(seed+1), 0.01)
	return c.gray16()
}

func cell(w, h int) image.Image {
	c := newCanvas(w, h, 0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c.pix[y*w+x] = 0.25 + 0.2*float64(x)/float64(w)
		}
	}
	c.blob(float64(w)*0.5, float64(h)*0.5, float64(w)*0.28, float64(h)*0.2, 0.4, 0.35)
	c.blob(float64(w)*0.52, float64(h)*0.48, float64(w)*0.09, float64(h)*0.08, 0, 0.25)
	return c.gray8()
}

func ihc(w, h int, seed uint64) image.Image {
	// optical densities per stain, accumulated then converted with Beer-Lambert
	hema := newCanvas(w, h, 0)
	dab := newCanvas(w, h, 0)
	for _, n := range scatterNuclei(w, h, 30, seed) {
		hema.blob(n.x, n.y, n.rx*0.8, n.ry*0.8, n.angle, 0.8)
	}
	rng := newRand(seed + 1)
	for i := 0; i < 8; i++ {
		dab.gauss(rng.Float64()*float64(w), rng.Float64()*float64(h), 6+rng.Float64()*6, 0.9)
	}

	// stain absorption vectors (haematoxylin, DAB)
	hv := [3]float64{0.65, 0.70, 0.29}
	dv := [3]float64{0.27, 0.57, 0.78}
	r, g, b := newCanvas(w, h, 0), newCanvas(w, h, 0), newCanvas(w, h, 0)
	for i := range r.pix {
		od := [3]float64{}
		for k := 0; k < 3; k++ {
			od[k] = hema.pix[i]*hv[k] + dab.pix[i]*dv[k] + 0.05
		}
		r.pix[i] = math.Pow(10, -od[0])
		g.pix[i] = math.Pow(10, -od[1])
		b.pix[i] = math.Pow(10, -od[2])
	}
	return rgb8(r, g, b)
}

func page(w, h int, seed uint64) image.Image {
	c := newCanvas(w, h, 0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// illumination falls off towards the bottom-right corner
			c.pix[y*w+x] = 0.85 - 0.45*(float64(x)/float64(w))*(float64(y)/float64(h)) - 0.1*float64(y)/float64(h)
		}
	}
	rng := newRand(seed)
	for line := 0; line < 6; line++ {
		y := 12 + float64(line)*17
		x := 10.0
		for x < float64(w)-16 {
			wordLen := 3 + rng.Intn(6)
			for ch := 0; ch < wordLen && x < float64(w)-12; ch++ {
				height := 6 + rng.Float64()*4
				c.line(x, y, x, y+height, 0.6, -0.45)
				if rng.Intn(2) == 0 {
					c.line(x, y+height/2, x+4, y+height/2, 0.5, -0.4)
				}
				x += 6
			}
			x += 8
		}
	}
	c.noise(newRand(seed+1), 0.015)
	return c.gray8()
}

func retina(w, h int, seed uint64) image.Image {
	r := newCanvas(w, h, 0)
	g := newCanvas(w, h, 0)
	b := newCanvas(w, h, 0)
	cx, cy := float64(w)/2, float64(h)/2
	radius := float64(w) * 0.47
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			if d > radius {
				continue
			}
			fall := 1 - 0.4*d/radius
			i := y*w + x
			r.pix[i] = 0.85 * fall
			g.pix[i] = 0.45 * fall
			b.pix[i] = 0.2 * fall
		}
	}

	vessels := newCanvas(w, h, 0)
	rng := newRand(seed)
	var grow func(x, y, angle, width float64, depth int)
	grow = func(x, y, angle, width float64, depth int) {
		if depth == 0 || width < 0.4 {
			return
		}
		length := 18 + rng.Float64()*14
		nx := x + length*math.Cos(angle)
		ny := y + length*math.Sin(angle)
		vessels.line(x, y, nx, ny, width, 1)
		spread := 0.35 + rng.Float64()*0.3
		grow(nx, ny, angle+spread, width*0.75, depth-1)
		grow(nx, ny, angle-spread, width*0.75, depth-1)
	}
	disc := [2]float64{cx + radius*0.35, cy}
	for k := 0; k < 4; k++ {
		grow(disc[0], disc[1], math.Pi*0.6+float64(k)*math.Pi/3, 2.2, 5)
	}

	for i, v := range vessels.pix {
		v = math.Min(v, 1)
		r.pix[i] *= 1 - 0.45*v
		g.pix[i] *= 1 - 0.6*v
		b.pix[i] *= 1 - 0.5*v
	}
	// optic disc
	r.gauss(disc[0], disc[1], 8, 0.15)
	g.gauss(disc[0], disc[1], 8, 0.3)
	b.gauss(disc[0], disc[1], 8, 0.2)
	return rgb8(r, g, b)
}

func hubble(w, h int, seed uint64) image.Image {
	r := newCanvas(w, h, 0.01)
	g := newCanvas(w, h, 0.01)
	b := newCanvas(w, h, 0.02)
	rng := newRand(seed)
	for i := 0; i < 120; i++ {
		x, y := rng.Float64()*float64(w), rng.Float64()*float64(h)
		sigma := 0.6 + rng.ExpFloat64()*0.6
		amp := 0.2 + rng.Float64()*0.8
		tint := rng.Float64()
		r.gauss(x, y, sigma, amp*(0.6+0.4*tint))
		g.gauss(x, y, sigma, amp*0.8)
		b.gauss(x, y, sigma, amp*(1-0.4*tint))
	}
	for i := 0; i < 6; i++ {
		x, y := rng.Float64()*float64(w), rng.Float64()*float64(h)
		r.blob(x, y, 6+rng.Float64()*6, 3+rng.Float64()*3, rng.Float64()*math.Pi, 0.15)
		g.blob(x, y, 6, 3, 0, 0.1)
	}
	r.noise(newRand(seed+1), 0.01)
	return rgb8(r, g, b)
}

func faces(w, h int) image.Image {
	c := newCanvas(w, h, 0.2)
	c.blob(float64(w)/2, float64(h)/2, float64(w)*0.38, float64(h)*0.46, 0, 0.5)
	c.gauss(float64(w)*0.35, float64(h)*0.4, 1.2, -0.35)
	c.gauss(float64(w)*0.65, float64(h)*0.4, 1.2, -0.35)
	c.line(float64(w)*0.38, float64(h)*0.72, float64(w)*0.62, float64(h)*0.72, 0.5, -0.3)
	return c.gray8()
}

func cells3d(w, h, depth int, seed uint64) [][]image.Image {
	type sphere struct {
		x, y, z, r, amp float64
	}
	rng := newRand(seed)
	flat := scatterNuclei(w, h, 14, seed)
	spheres := make([]sphere, len(flat))
	for i, n := range flat {
		spheres[i] = sphere{
			x:   n.x,
			y:   n.y,
			z:   float64(depth)*0.3 + rng.Float64()*float64(depth)*0.4,
			r:   n.rx,
			amp: 0.3 + rng.Float64()*0.2,
		}
	}

	frames := make([][]image.Image, depth)
	for z := 0; z < depth; z++ {
		membrane := newCanvas(w, h, 0.04)
		nuc := newCanvas(w, h, 0.02)
		for _, s := range spheres {
			dz := (float64(z) - s.z) * 1.5
			if math.Abs(dz) >= s.r*1.8 {
				continue
			}
			rn := math.Sqrt(math.Max(0, s.r*s.r-dz*dz))
			if rn > 0.5 {
				nuc.blob(s.x, s.y, rn, rn*0.9, 0, s.amp)
			}
			rc := math.Sqrt(math.Max(0, (s.r*1.8)*(s.r*1.8)-dz*dz))
			for a := 0.0; a < 2*math.Pi; a += 0.05 {
				membrane.gauss(s.x+rc*math.Cos(a), s.y+rc*math.Sin(a), 0.8, 0.05)
			}
		}
		membrane.noise(newRand(seed+uint64(z)*2+1), 0.01)
		nuc.noise(newRand(seed+uint64(z)*2+2), 0.01)
		frames[z] = []image.Image{membrane.gray16(), nuc.gray16()}
	}
	return frames
}
