package fluid

import (
	"math"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/colorgrad"

	"github.com/pthm-cable/fluidfx/config"
)

// Palette generates splat colors: a random hue from a cyclic gradient,
// scaled by the theme's color intensity.
type Palette struct {
	grad colorgrad.Gradient
	rng  *rand.Rand
}

// NewPalette seeds a palette. A fixed seed gives reproducible colors.
func NewPalette(seed uint64) *Palette {
	return &Palette{
		grad: colorgrad.Sinebow(),
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns a new splat color for the given theme palette.
func (p *Palette) Next(theme config.PaletteConfig) colorful.Color {
	c := p.grad.At(p.rng.Float64())
	return scaleColor(c, theme.ColorIntensity)
}

// Float64 exposes the palette's random stream for click jitter.
func (p *Palette) Float64() float64 { return p.rng.Float64() }

func scaleColor(c colorful.Color, k float64) colorful.Color {
	return colorful.Color{R: c.R * k, G: c.G * k, B: c.B * k}
}

// Background is a slowly drifting backdrop color.
type Background struct {
	hue        float64
	speed      float64
	saturation float64
}

// NewBackground starts at hue 0.
func NewBackground(cfg config.BackgroundConfig) *Background {
	return &Background{speed: cfg.HueSpeed, saturation: cfg.Saturation}
}

// Advance moves the hue by dt seconds.
func (b *Background) Advance(dt float64) {
	b.hue = math.Mod(b.hue+b.speed*dt, 360)
}

// Color returns the backdrop at the theme's lightness.
func (b *Background) Color(theme config.PaletteConfig) colorful.Color {
	return colorful.Hsv(b.hue, b.saturation, theme.BackgroundLightness).Clamped()
}
