package soft

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/shaders"
)

func near(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

func TestLinearSampleTexelCenters(t *testing.T) {
	tg := newTarget(2, 1, gpu.RGBA16F, gpu.Linear)
	tg.store(0, 0, vec4{0, 0, 0, 1})
	tg.store(1, 0, vec4{1, 0, 0, 1})

	tests := []struct {
		u    float32
		want float32
	}{
		{0.25, 0},   // first texel center
		{0.75, 1},   // second texel center
		{0.5, 0.5},  // halfway
		{0.0, 0},    // clamp-to-edge
		{1.0, 1},    // clamp-to-edge
		{0.375, 0.25},
	}
	for _, tt := range tests {
		got := tg.sample(vec2{tt.u, 0.5})[0]
		if !near(got, tt.want, 1e-6) {
			t.Errorf("sample(%v) = %v, want %v", tt.u, got, tt.want)
		}
	}
}

func TestNearestSample(t *testing.T) {
	tg := newTarget(4, 1, gpu.R16F, gpu.Nearest)
	for x := 0; x < 4; x++ {
		tg.store(x, 0, vec4{float32(x), 9, 9, 9})
	}
	if got := tg.sample(vec2{0.6, 0.5}); got[0] != 2 || got[1] != 0 || got[3] != 1 {
		t.Errorf("sample = %v, want {2 0 0 1}", got)
	}
}

func TestBaselineQuantizes(t *testing.T) {
	tg := newTarget(1, 1, gpu.RGBA8, gpu.Linear)
	tg.store(0, 0, vec4{-1, 0.5, 2, 0.1234})
	c := tg.load(0, 0)
	if c[0] != 0 || c[2] != 1 {
		t.Errorf("expected clamping, got %v", c)
	}
	if c[1] != 128.0/255 {
		t.Errorf("0.5 quantized to %v", c[1])
	}
}

func TestDrawCopy(t *testing.T) {
	d := New(Options{Width: 4, Height: 4})
	src, _ := d.NewTarget(4, 4, gpu.RGBA16F, gpu.Linear)
	dst, _ := d.NewTarget(4, 4, gpu.RGBA16F, gpu.Linear)
	if err := d.Clear(src, 0.25, 0.5, 0.75, 1); err != nil {
		t.Fatal(err)
	}
	p, err := d.Compile(shaders.MustSource(shaders.Copy), nil)
	if err != nil {
		t.Fatal(err)
	}
	d.Bind(3, src)
	p.SetSampler(p.Location("uTexture"), 3)
	if err := d.Draw(p, dst, gpu.BlendNone); err != nil {
		t.Fatal(err)
	}
	pix, _ := d.ReadPixels(dst)
	for i := 0; i < len(pix); i += 4 {
		if pix[i] != 0.25 || pix[i+1] != 0.5 || pix[i+2] != 0.75 {
			t.Fatalf("texel %d = %v", i/4, pix[i:i+4])
		}
	}
}

func TestDrawPackedRoundTrip(t *testing.T) {
	d := New(Options{Width: 2, Height: 2, NoHalfFloat: true})
	src, _ := d.NewTarget(2, 2, gpu.RGBA8, gpu.Linear)
	dst, _ := d.NewTarget(2, 2, gpu.RGBA8, gpu.Linear)
	z := gpu.PackedZero()
	d.Clear(src, gpu.Pack(3), gpu.Pack(-3), z[2], z[3])

	p, _ := d.Compile(shaders.MustSource(shaders.Clear), []string{shaders.KeywordPacked})
	d.Bind(0, src)
	p.SetSampler(p.Location("uTexture"), 0)
	p.SetFloat(p.Location("value"), 0.5)
	if err := d.Draw(p, dst, gpu.BlendNone); err != nil {
		t.Fatal(err)
	}
	pix, _ := d.ReadPixels(dst)
	if v := gpu.Unpack(pix[0]); !near(v, 1.5, 0.2) {
		t.Errorf("decoded r = %v, want ~1.5", v)
	}
	if v := gpu.Unpack(pix[1]); !near(v, -1.5, 0.2) {
		t.Errorf("decoded g = %v, want ~-1.5", v)
	}
	if v := gpu.Unpack(pix[2]); v != 0 {
		t.Errorf("decoded b = %v, want 0", v)
	}
}

func TestPremultipliedBlend(t *testing.T) {
	d := New(Options{Width: 1, Height: 1})
	d.Clear(nil, 0.2, 0.2, 0.2, 1)
	src, _ := d.NewTarget(1, 1, gpu.RGBA16F, gpu.Linear)
	d.Clear(src, 0.5, 0, 0, 1)

	p, _ := d.Compile(shaders.MustSource(shaders.Display), nil)
	d.Bind(0, src)
	p.SetSampler(p.Location("uTexture"), 0)
	if err := d.Draw(p, nil, gpu.BlendPremultiplied); err != nil {
		t.Fatal(err)
	}
	pix, _ := d.ReadPixels(nil)
	// alpha = max(rgb) = 0.5, so dst contributes half.
	if !near(pix[0], 0.6, 1.0/255) || !near(pix[1], 0.1, 1.0/255) {
		t.Errorf("blended = %v, want ~{0.6 0.1 0.1}", pix[:4])
	}
}

func TestCompileHook(t *testing.T) {
	boom := errors.New("boom")
	d := New(Options{CompileHook: func(name string, kw []string) error {
		if name == shaders.Display {
			return boom
		}
		return nil
	}})
	if _, err := d.Compile(shaders.MustSource(shaders.Display), nil); !errors.Is(err, boom) {
		t.Errorf("Compile(display) err = %v, want boom", err)
	}
	if _, err := d.Compile(shaders.MustSource(shaders.Copy), nil); err != nil {
		t.Errorf("Compile(copy) err = %v", err)
	}
}

func TestContextLost(t *testing.T) {
	d := New(Options{Width: 2, Height: 2})
	p, _ := d.Compile(shaders.MustSource(shaders.Copy), nil)
	d.LoseContext()
	if err := d.Draw(p, nil, gpu.BlendNone); !errors.Is(err, gpu.ErrContextLost) {
		t.Errorf("Draw after loss = %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	d := New(Options{Disable: []gpu.Format{gpu.R16F}, NoLinearFloat: true})
	f, err := gpu.Resolve(d, gpu.R16F)
	if err != nil || f != gpu.RG16F {
		t.Errorf("Resolve(R16F) = %s, %v; want rg16f", f, err)
	}
	tg, _ := d.NewTarget(2, 2, gpu.RG16F, gpu.Linear)
	if tg.Filter() != gpu.Nearest {
		t.Error("linear filter should be downgraded without float filtering")
	}
	if _, err := d.NewTarget(0, 2, gpu.RGBA8, gpu.Linear); !errors.Is(err, gpu.ErrInvalidSize) {
		t.Errorf("zero width err = %v", err)
	}
}
