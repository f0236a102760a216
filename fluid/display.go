package fluid

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/shaders"
)

// Compositor draws the dye field over the background with premultiplied
// blending.
type Compositor struct {
	dev     gpu.Device
	mat     *Material
	linear  bool
	shading bool
}

// NewCompositor prepares the display program. Shading needs linear
// filtering and stays off without it.
func NewCompositor(dev gpu.Device, reg *Registry, formats Formats) (*Compositor, error) {
	var base []string
	if formats.Packed {
		base = append(base, shaders.KeywordPacked)
	}
	mat, err := reg.Material(shaders.Display, base...)
	if err != nil {
		return nil, err
	}
	return &Compositor{dev: dev, mat: mat, linear: formats.Linear}, nil
}

// Shading reports whether the last draw used the shading variant.
func (c *Compositor) Shading() bool { return c.shading }

// Draw clears the surface to bg and composites the dye read buffer.
func (c *Compositor) Draw(dye *DoubleField, bg colorful.Color, shading bool) error {
	if err := c.dev.Clear(nil, float32(bg.R), float32(bg.G), float32(bg.B), 1); err != nil {
		return err
	}
	c.shading = shading && c.linear
	if c.shading {
		c.mat.SetKeywords(shaders.KeywordShading)
	} else {
		c.mat.SetKeywords()
	}
	w, h := c.dev.SurfaceSize()
	c.mat.Set("texelSize", 1/float32(w), 1/float32(h))
	c.mat.SetSampler("uTexture", dye.Read().Attach(0))
	return c.mat.Draw(nil, gpu.BlendPremultiplied)
}
