package soft

import (
	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/shaders"
)

// frag carries the interpolated coordinates the shared prelude computes.
type frag struct {
	uv, l, r, t, b vec2
}

type fragment func(f *frag) vec4

// builder resolves a program's uniforms for one draw and returns the
// per-pixel function. Each builder mirrors the GLSL of the same name.
type builder func(p *pass) fragment

var kernels = map[string]builder{
	shaders.Copy:       buildCopy,
	shaders.Clear:      buildClear,
	shaders.Splat:      buildSplat,
	shaders.Curl:       buildCurl,
	shaders.Vorticity:  buildVorticity,
	shaders.Divergence: buildDivergence,
	shaders.Pressure:   buildPressure,
	shaders.Gradient:   buildGradient,
	shaders.Advection:  buildAdvection,
	shaders.Display:    buildDisplay,
}

// pass is the uniform and texture state captured at draw time.
type pass struct {
	prog  *program
	units map[int]*target
}

func (p *pass) float(name string) float32 {
	v, ok := p.prog.Float(name)
	if !ok {
		return 0
	}
	return v[0]
}

func (p *pass) vec2(name string) vec2 {
	v, ok := p.prog.Float(name)
	if !ok || len(v) < 2 {
		return vec2{}
	}
	return vec2{v[0], v[1]}
}

func (p *pass) vec3(name string) vec3 {
	v, ok := p.prog.Float(name)
	if !ok || len(v) < 3 {
		return vec3{}
	}
	return vec3{v[0], v[1], v[2]}
}

// sampler returns the texture bound to the unit a sampler uniform points
// at. Unassigned samplers read unit 0 as in GL.
func (p *pass) sampler(name string) sampler {
	unit, _ := p.prog.Sampler(name)
	return sampler{t: p.units[unit], packed: p.prog.has(shaders.KeywordPacked)}
}

type sampler struct {
	t      *target
	packed bool
}

func (s sampler) fetch(uv vec2) vec4 {
	if s.t == nil {
		return vec4{0, 0, 0, 1}
	}
	c := s.t.sample(uv)
	if s.packed {
		for i := range c {
			c[i] = gpu.Unpack(c[i])
		}
	}
	return c
}

// bilerp filters by hand from four texel-center fetches.
func (s sampler) bilerp(uv, tsize vec2) vec4 {
	st := vec2{uv[0]/tsize[0] - 0.5, uv[1]/tsize[1] - 0.5}
	iuv := vec2{floor(st[0]), floor(st[1])}
	fuv := st.sub(iuv)
	a := s.fetch(iuv.add(vec2{0.5, 0.5}).mul(tsize))
	b := s.fetch(iuv.add(vec2{1.5, 0.5}).mul(tsize))
	c := s.fetch(iuv.add(vec2{0.5, 1.5}).mul(tsize))
	d := s.fetch(iuv.add(vec2{1.5, 1.5}).mul(tsize))
	return mix(mix(a, b, fuv[0]), mix(c, d, fuv[0]), fuv[1])
}

func buildCopy(p *pass) fragment {
	src := p.sampler("uTexture")
	return func(f *frag) vec4 { return src.fetch(f.uv) }
}

func buildClear(p *pass) fragment {
	src := p.sampler("uTexture")
	value := p.float("value")
	return func(f *frag) vec4 { return src.fetch(f.uv).scale(value) }
}

func buildSplat(p *pass) fragment {
	dst := p.sampler("uTarget")
	aspect := p.float("aspectRatio")
	color := p.vec3("color")
	point := p.vec2("point")
	radius := p.float("radius")
	return func(f *frag) vec4 {
		d := f.uv.sub(point)
		d[0] *= aspect
		splat := color.scale(exp(-d.dot(d) / radius))
		base := dst.fetch(f.uv)
		c := base.rgb().add(splat)
		return vec4{c[0], c[1], c[2], base[3]}
	}
}

func buildCurl(p *pass) fragment {
	vel := p.sampler("uVelocity")
	return func(f *frag) vec4 {
		l := vel.fetch(f.l)[1]
		r := vel.fetch(f.r)[1]
		t := vel.fetch(f.t)[0]
		b := vel.fetch(f.b)[0]
		return vec4{0.5 * (r - l - t + b), 0, 0, 1}
	}
}

func buildVorticity(p *pass) fragment {
	vel := p.sampler("uVelocity")
	curlTex := p.sampler("uCurl")
	strength := p.float("curl")
	dt := p.float("dt")
	return func(f *frag) vec4 {
		l := curlTex.fetch(f.l)[0]
		r := curlTex.fetch(f.r)[0]
		t := curlTex.fetch(f.t)[0]
		b := curlTex.fetch(f.b)[0]
		c := curlTex.fetch(f.uv)[0]

		force := vec2{abs(t) - abs(b), abs(r) - abs(l)}.scale(0.5)
		force = force.scale(1 / (force.length() + 0.0001))
		force = force.scale(strength * c)
		force[1] = -force[1]

		v := vel.fetch(f.uv).xy().add(force.scale(dt))
		return vec4{clamp(v[0], -1000, 1000), clamp(v[1], -1000, 1000), 0, 1}
	}
}

func buildDivergence(p *pass) fragment {
	vel := p.sampler("uVelocity")
	return func(f *frag) vec4 {
		l := vel.fetch(f.l)[0]
		r := vel.fetch(f.r)[0]
		t := vel.fetch(f.t)[1]
		b := vel.fetch(f.b)[1]

		c := vel.fetch(f.uv).xy()
		if f.l[0] < 0 {
			l = -c[0]
		}
		if f.r[0] > 1 {
			r = -c[0]
		}
		if f.t[1] > 1 {
			t = -c[1]
		}
		if f.b[1] < 0 {
			b = -c[1]
		}
		return vec4{0.5 * (r - l + t - b), 0, 0, 1}
	}
}

func buildPressure(p *pass) fragment {
	pr := p.sampler("uPressure")
	div := p.sampler("uDivergence")
	return func(f *frag) vec4 {
		l := pr.fetch(f.l)[0]
		r := pr.fetch(f.r)[0]
		t := pr.fetch(f.t)[0]
		b := pr.fetch(f.b)[0]
		d := div.fetch(f.uv)[0]
		return vec4{(l + r + b + t - d) * 0.25, 0, 0, 1}
	}
}

func buildGradient(p *pass) fragment {
	pr := p.sampler("uPressure")
	vel := p.sampler("uVelocity")
	return func(f *frag) vec4 {
		l := pr.fetch(f.l)[0]
		r := pr.fetch(f.r)[0]
		t := pr.fetch(f.t)[0]
		b := pr.fetch(f.b)[0]
		v := vel.fetch(f.uv).xy().sub(vec2{r - l, t - b})
		return vec4{v[0], v[1], 0, 1}
	}
}

func buildAdvection(p *pass) fragment {
	vel := p.sampler("uVelocity")
	src := p.sampler("uSource")
	texel := p.vec2("texelSize")
	dyeTexel := p.vec2("dyeTexelSize")
	dt := p.float("dt")
	decay := 1 + p.float("dissipation")*dt
	manual := p.prog.has(shaders.KeywordManualFiltering)
	return func(f *frag) vec4 {
		var result vec4
		if manual {
			coord := f.uv.sub(vel.bilerp(f.uv, texel).xy().mul(texel).scale(dt))
			result = src.bilerp(coord, dyeTexel)
		} else {
			coord := f.uv.sub(vel.fetch(f.uv).xy().mul(texel).scale(dt))
			result = src.fetch(coord)
		}
		return result.scale(1 / decay)
	}
}

func buildDisplay(p *pass) fragment {
	src := p.sampler("uTexture")
	texel := p.vec2("texelSize")
	shading := p.prog.has(shaders.KeywordShading)
	return func(f *frag) vec4 {
		c := src.fetch(f.uv).rgb()
		if shading {
			lc := src.fetch(f.l).rgb()
			rc := src.fetch(f.r).rgb()
			tc := src.fetch(f.t).rgb()
			bc := src.fetch(f.b).rgb()
			dx := rc.length() - lc.length()
			dy := tc.length() - bc.length()
			n := vec3{dx, dy, texel.length()}.normalize()
			diffuse := clamp(n.dot(vec3{0, 0, 1})+0.7, 0.7, 1)
			c = c.scale(diffuse)
		}
		a := max(c[0], c[1], c[2])
		return vec4{c[0], c[1], c[2], a}
	}
}
