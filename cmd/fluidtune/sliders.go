package main

import (
	"fmt"
	"math"

	"github.com/pthm-cable/fluidfx/config"
)

// slider edits one numeric fluid parameter.
type slider struct {
	label    string
	min, max float32
	integer  bool
	get      func(*config.FluidConfig) float64
	set      func(*config.FluidConfig, float64)
}

var sliders = []slider{
	{
		label: "Curl (vorticity confinement)", min: 0, max: 50,
		get: func(c *config.FluidConfig) float64 { return c.Curl },
		set: func(c *config.FluidConfig, v float64) { c.Curl = v },
	},
	{
		label: "Pressure (warm start)", min: 0, max: 1,
		get: func(c *config.FluidConfig) float64 { return c.Pressure },
		set: func(c *config.FluidConfig, v float64) { c.Pressure = v },
	},
	{
		label: "Pressure iterations", min: 1, max: 60, integer: true,
		get: func(c *config.FluidConfig) float64 { return float64(c.PressureIterations) },
		set: func(c *config.FluidConfig, v float64) { c.PressureIterations = int(v) },
	},
	{
		label: "Density dissipation", min: 0, max: 4,
		get: func(c *config.FluidConfig) float64 { return c.DensityDissipation },
		set: func(c *config.FluidConfig, v float64) { c.DensityDissipation = v },
	},
	{
		label: "Velocity dissipation", min: 0, max: 4,
		get: func(c *config.FluidConfig) float64 { return c.VelocityDissipation },
		set: func(c *config.FluidConfig, v float64) { c.VelocityDissipation = v },
	},
	{
		label: "Splat radius", min: 0.01, max: 1,
		get: func(c *config.FluidConfig) float64 { return c.SplatRadius },
		set: func(c *config.FluidConfig, v float64) { c.SplatRadius = v },
	},
	{
		label: "Splat force", min: 0, max: 12000,
		get: func(c *config.FluidConfig) float64 { return c.SplatForce },
		set: func(c *config.FluidConfig, v float64) { c.SplatForce = v },
	},
	{
		label: "Color update speed", min: 0, max: 30,
		get: func(c *config.FluidConfig) float64 { return c.ColorUpdateSpeed },
		set: func(c *config.FluidConfig, v float64) { c.ColorUpdateSpeed = v },
	},
}

// apply clamps v into the slider range, rounds integer parameters and
// stores the result. It reports whether the value changed.
func (s slider) apply(c *config.FluidConfig, v float32) bool {
	v = min(max(v, s.min), s.max)
	nv := float64(v)
	if s.integer {
		nv = math.Round(nv)
	}
	if nv == s.get(c) {
		return false
	}
	s.set(c, nv)
	return true
}

func (s slider) text(c *config.FluidConfig) string {
	if s.integer {
		return fmt.Sprintf("%d", int(s.get(c)))
	}
	return fmt.Sprintf("%.2f", s.get(c))
}
