package fluid

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/fluidfx/config"
	"github.com/pthm-cable/fluidfx/gpu"
)

// Splatter adds Gaussian impulses of velocity and dye.
type Splatter struct {
	mat      *Material
	velocity *DoubleField
	dye      *DoubleField
	count    int
}

// Splat adds exp(-|p|²/r)·(dx,dy) to velocity and exp(-|p|²/r)·color to dye
// around texture point (x,y). p.x is scaled by the surface aspect so the
// footprint is round on screen.
func (s *Splatter) Splat(x, y, dx, dy float64, color colorful.Color, radius, aspect float64) error {
	m := s.mat
	m.Set("aspectRatio", float32(aspect))
	m.Set("point", float32(x), float32(y))
	m.Set("radius", float32(correctRadius(radius, aspect)))

	m.SetSampler("uTarget", s.velocity.Read().Attach(0))
	m.Set("color", float32(dx), float32(dy), 0)
	if err := m.Draw(s.velocity.Write().target, gpu.BlendNone); err != nil {
		return err
	}
	s.velocity.Swap()

	m.SetSampler("uTarget", s.dye.Read().Attach(0))
	m.Set("color", float32(color.R), float32(color.G), float32(color.B))
	if err := m.Draw(s.dye.Write().target, gpu.BlendNone); err != nil {
		return err
	}
	s.dye.Swap()
	s.count++
	return nil
}

// Count returns the number of splats applied.
func (s *Splatter) Count() int { return s.count }

// correctRadius widens the footprint on landscape surfaces so it covers
// the same on-screen extent along the long axis.
func correctRadius(r, aspect float64) float64 {
	if aspect > 1 {
		r *= aspect
	}
	return r
}

// splatPointer turns a moved pointer into one splat. The dye contribution
// scales with the delta magnitude, so a pointer that moved nowhere leaves
// both fields unchanged.
func (s *Splatter) splatPointer(p *Pointer, cfg config.FluidConfig, aspect float64) error {
	dx := p.DeltaX * cfg.SplatForce
	dy := p.DeltaY * cfg.SplatForce
	gain := math.Min(1, math.Hypot(p.DeltaX, p.DeltaY)*cfg.DyeGain)
	return s.Splat(p.TexX, p.TexY, dx, dy, scaleColor(p.Color, gain), cfg.SplatRadius/100, aspect)
}

// clickSplat is the burst on press: a brighter color and a small random
// kick.
func (s *Splatter) clickSplat(p *Pointer, cfg config.FluidConfig, theme config.PaletteConfig, pal *Palette, aspect float64) error {
	color := scaleColor(p.Color, theme.ClickIntensity)
	dx := 10 * (pal.Float64() - 0.5)
	dy := 30 * (pal.Float64() - 0.5)
	return s.Splat(p.TexX, p.TexY, dx, dy, color, cfg.SplatRadius/100, aspect)
}
