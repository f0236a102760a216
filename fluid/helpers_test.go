package fluid

import (
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/fluidfx/config"
	"github.com/pthm-cable/fluidfx/gpu/soft"
)

const frameStep = time.Second / 60

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Fluid.SimResolution = 16
	cfg.Fluid.DyeResolution = 32
	return cfg
}

func newTestEngine(t *testing.T, opts soft.Options, mutate func(*config.FluidConfig)) (*Engine, *soft.Device) {
	t.Helper()
	if opts.Width == 0 {
		opts.Width, opts.Height = 32, 32
	}
	dev := soft.New(opts)
	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg.Fluid)
	}
	e, err := New(dev, Options{
		Config:     cfg.Fluid,
		Theme:      cfg.Theme,
		Background: cfg.Background,
		Seed:       1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Release)
	return e, dev
}

// runFrames advances the engine n ticks of 1/60 s starting after *now.
func runFrames(t *testing.T, e *Engine, now *time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		*now = now.Add(frameStep)
		if err := e.Frame(*now); err != nil {
			t.Fatalf("Frame: %v", err)
		}
	}
}

func fieldValues(t *testing.T, e *Engine, f *Field, channels int) []float64 {
	t.Helper()
	vals, err := FieldValues(e.dev, f, channels, e.formats.Packed)
	if err != nil {
		t.Fatalf("FieldValues: %v", err)
	}
	return vals
}

// texelAt returns the first n channels of one texel.
func texelAt(t *testing.T, e *Engine, f *Field, x, y, channels int) []float64 {
	t.Helper()
	vals := fieldValues(t, e, f, channels)
	i := (y*f.Width() + x) * channels
	return vals[i : i+channels]
}

func norm(t *testing.T, e *Engine, f *Field, channels int) float64 {
	t.Helper()
	n, err := FieldNorm(e.dev, f, channels, e.formats.Packed)
	if err != nil {
		t.Fatalf("FieldNorm: %v", err)
	}
	return n
}

func hasNaN(vals []float32) bool {
	for _, v := range vals {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return true
		}
	}
	return false
}
