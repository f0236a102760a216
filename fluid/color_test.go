package fluid

import (
	"math"
	"testing"

	"github.com/pthm-cable/fluidfx/config"
)

func TestPaletteDeterministic(t *testing.T) {
	theme := config.PaletteConfig{ColorIntensity: 0.5}
	a, b := NewPalette(7), NewPalette(7)
	for i := 0; i < 10; i++ {
		ca, cb := a.Next(theme), b.Next(theme)
		if ca != cb {
			t.Fatalf("color %d differs for the same seed: %v vs %v", i, ca, cb)
		}
		if max(ca.R, ca.G, ca.B) > 0.5+1e-9 || min(ca.R, ca.G, ca.B) < 0 {
			t.Errorf("color %v outside [0, intensity]", ca)
		}
	}
}

func TestBackgroundHueWraps(t *testing.T) {
	bg := NewBackground(config.BackgroundConfig{HueSpeed: 100, Saturation: 0.5})
	bg.Advance(5)
	if math.Abs(bg.hue-140) > 1e-9 {
		t.Errorf("hue = %v, want 140", bg.hue)
	}
	c := bg.Color(config.PaletteConfig{BackgroundLightness: 0.94})
	if _, _, v := c.Hsv(); math.Abs(v-0.94) > 1e-6 {
		t.Errorf("value = %v, want 0.94", v)
	}
}
