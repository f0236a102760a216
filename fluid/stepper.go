package fluid

import (
	"github.com/pthm-cable/fluidfx/config"
	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/shaders"
	"github.com/pthm-cable/fluidfx/telemetry"
)

// Fields are the grids one step reads and writes.
type Fields struct {
	Velocity   *DoubleField
	Dye        *DoubleField
	Pressure   *DoubleField
	Curl       *Field
	Divergence *Field
}

func (f *Fields) release() {
	f.Velocity.release()
	f.Dye.release()
	f.Pressure.release()
	f.Curl.release()
	f.Divergence.release()
}

// Stepper runs the operator-split solver. Every stage samples read buffers
// and renders into write buffers, then swaps.
type Stepper struct {
	fields *Fields
	perf   *telemetry.PerfCollector
	manual bool

	curl       *Material
	vorticity  *Material
	divergence *Material
	clear      *Material
	pressure   *Material
	gradient   *Material
	advection  *Material
}

// NewStepper compiles the stage programs. Advection uses manual bilinear
// filtering when native filtering is missing or the fields are packed,
// since filtering encoded values is not filtering the values.
func NewStepper(reg *Registry, formats Formats, fields *Fields, perf *telemetry.PerfCollector) (*Stepper, error) {
	var base []string
	if formats.Packed {
		base = append(base, shaders.KeywordPacked)
	}
	s := &Stepper{fields: fields, perf: perf, manual: !formats.Linear || formats.Packed}

	mats := []struct {
		dst  **Material
		name string
	}{
		{&s.curl, shaders.Curl},
		{&s.vorticity, shaders.Vorticity},
		{&s.divergence, shaders.Divergence},
		{&s.clear, shaders.Clear},
		{&s.pressure, shaders.Pressure},
		{&s.gradient, shaders.Gradient},
		{&s.advection, shaders.Advection},
	}
	for _, m := range mats {
		mat, err := reg.Material(m.name, base...)
		if err != nil {
			return nil, err
		}
		*m.dst = mat
	}
	if s.manual {
		s.advection.SetKeywords(shaders.KeywordManualFiltering)
	}
	return s, nil
}

// ClampDT bounds a step size to [0, max].
func ClampDT(dt, maxDT float64) float64 {
	return min(max(dt, 0), maxDT)
}

// Step advances the fluid by dt seconds, clamped to cfg.MaxDT.
func (s *Stepper) Step(cfg config.FluidConfig, dt float64) error {
	dt = ClampDT(dt, cfg.MaxDT)
	f := s.fields
	vel := f.Velocity
	tx, ty := vel.TexelSize()
	fdt := float32(dt)

	// Curl of velocity.
	s.perf.StartPhase(telemetry.PhaseCurl)
	s.curl.Set("texelSize", tx, ty)
	s.curl.SetSampler("uVelocity", vel.Read().Attach(0))
	if err := s.curl.Draw(f.Curl.target, gpu.BlendNone); err != nil {
		return err
	}

	// Vorticity confinement.
	s.perf.StartPhase(telemetry.PhaseVorticity)
	s.vorticity.Set("texelSize", tx, ty)
	s.vorticity.SetSampler("uVelocity", vel.Read().Attach(0))
	s.vorticity.SetSampler("uCurl", f.Curl.Attach(1))
	s.vorticity.Set("curl", float32(cfg.Curl))
	s.vorticity.Set("dt", fdt)
	if err := s.drawSwap(s.vorticity, vel); err != nil {
		return err
	}

	// Divergence with mirrored boundaries.
	s.perf.StartPhase(telemetry.PhaseDivergence)
	s.divergence.Set("texelSize", tx, ty)
	s.divergence.SetSampler("uVelocity", vel.Read().Attach(0))
	if err := s.divergence.Draw(f.Divergence.target, gpu.BlendNone); err != nil {
		return err
	}

	// Warm start from the previous pressure.
	s.perf.StartPhase(telemetry.PhasePressureInit)
	s.clear.SetSampler("uTexture", f.Pressure.Read().Attach(0))
	s.clear.Set("value", float32(cfg.Pressure))
	if err := s.drawSwap(s.clear, f.Pressure); err != nil {
		return err
	}

	// Jacobi relaxation.
	s.perf.StartPhase(telemetry.PhasePressure)
	s.pressure.Set("texelSize", tx, ty)
	s.pressure.SetSampler("uDivergence", f.Divergence.Attach(0))
	for i := 0; i < cfg.PressureIterations; i++ {
		s.pressure.SetSampler("uPressure", f.Pressure.Read().Attach(1))
		if err := s.drawSwap(s.pressure, f.Pressure); err != nil {
			return err
		}
	}

	// Subtract the pressure gradient.
	s.perf.StartPhase(telemetry.PhaseGradient)
	s.gradient.Set("texelSize", tx, ty)
	s.gradient.SetSampler("uPressure", f.Pressure.Read().Attach(0))
	s.gradient.SetSampler("uVelocity", vel.Read().Attach(1))
	if err := s.drawSwap(s.gradient, vel); err != nil {
		return err
	}

	// Self-advect velocity.
	s.perf.StartPhase(telemetry.PhaseAdvectVelocity)
	adv := s.advection
	adv.Set("texelSize", tx, ty)
	adv.Set("dyeTexelSize", tx, ty)
	unit := vel.Read().Attach(0)
	adv.SetSampler("uVelocity", unit)
	adv.SetSampler("uSource", unit)
	adv.Set("dt", fdt)
	adv.Set("dissipation", float32(cfg.VelocityDissipation))
	if err := s.drawSwap(adv, vel); err != nil {
		return err
	}

	// Advect dye by the advected velocity.
	s.perf.StartPhase(telemetry.PhaseAdvectDye)
	dx, dy := f.Dye.TexelSize()
	adv.Set("dyeTexelSize", dx, dy)
	adv.SetSampler("uVelocity", vel.Read().Attach(0))
	adv.SetSampler("uSource", f.Dye.Read().Attach(1))
	adv.Set("dissipation", float32(cfg.DensityDissipation))
	return s.drawSwap(adv, f.Dye)
}

func (s *Stepper) drawSwap(m *Material, d *DoubleField) error {
	if err := m.Draw(d.Write().target, gpu.BlendNone); err != nil {
		return err
	}
	d.Swap()
	return nil
}
