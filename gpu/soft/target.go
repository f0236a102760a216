package soft

import (
	"math"

	"github.com/pthm-cable/fluidfx/gpu"
)

// target stores four float32 channels per texel, row 0 at the bottom.
type target struct {
	w, h     int
	format   gpu.Format
	filter   gpu.Filter
	pix      []float32
	released bool
}

func newTarget(w, h int, f gpu.Format, filter gpu.Filter) *target {
	return &target{
		w:      w,
		h:      h,
		format: f,
		filter: filter,
		pix:    make([]float32, w*h*4),
	}
}

func (t *target) Width() int         { return t.w }
func (t *target) Height() int        { return t.h }
func (t *target) Format() gpu.Format { return t.format }
func (t *target) Filter() gpu.Filter { return t.filter }

func (t *target) Release() {
	t.released = true
	t.pix = nil
}

// store writes one texel, dropping channels the format lacks and
// quantizing the 8-bit baseline.
func (t *target) store(x, y int, c vec4) {
	i := (y*t.w + x) * 4
	n := t.format.Channels()
	for k := 0; k < 4; k++ {
		v := c[k]
		if k >= n {
			v = 0
		} else if !t.format.Float() {
			v = quantize(v)
		}
		t.pix[i+k] = v
	}
}

func (t *target) load(x, y int) vec4 {
	i := (y*t.w + x) * 4
	return vec4{t.pix[i], t.pix[i+1], t.pix[i+2], t.pix[i+3]}
}

// texel returns the stored texel with missing channels filled the way GL
// expands them: zero color, alpha one.
func (t *target) texel(x, y int) vec4 {
	x = min(max(x, 0), t.w-1)
	y = min(max(y, 0), t.h-1)
	c := t.load(x, y)
	switch t.format.Channels() {
	case 1:
		c[1], c[2], c[3] = 0, 0, 1
	case 2:
		c[2], c[3] = 0, 1
	}
	return c
}

// sample filters at normalized coordinates with clamp-to-edge wrapping.
func (t *target) sample(uv vec2) vec4 {
	if t.pix == nil {
		return vec4{0, 0, 0, 1}
	}
	if t.filter == gpu.Nearest {
		return t.texel(int(floor(uv[0]*float32(t.w))), int(floor(uv[1]*float32(t.h))))
	}
	ix, fx := filterCoord(uv[0], t.w)
	iy, fy := filterCoord(uv[1], t.h)
	a := t.texel(ix, iy)
	b := t.texel(ix+1, iy)
	c := t.texel(ix, iy+1)
	d := t.texel(ix+1, iy+1)
	return mix(mix(a, b, fx), mix(c, d, fx), fy)
}

// filterWeightSteps is the sub-texel precision of the bilinear weights,
// matching the 8 fractional bits common filtering hardware uses.
const filterWeightSteps = 256

// filterCoord returns the lower texel index and the quantized weight of
// the upper one along one axis.
func filterCoord(u float32, n int) (int, float32) {
	x := float64(u)*float64(n) - 0.5
	i := math.Floor(x)
	w := math.Round((x-i)*filterWeightSteps) / filterWeightSteps
	if w >= 1 {
		i++
		w = 0
	}
	return int(i), float32(w)
}

func quantize(v float32) float32 {
	v = clamp(v, 0, 1)
	return float32(math.Round(float64(v)*255)) / 255
}
