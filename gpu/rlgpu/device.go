// Package rlgpu implements gpu.Device on raylib. Every call must happen on
// the thread that owns the window.
package rlgpu

import (
	"fmt"
	"image/color"
	"slices"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/shaders"
)

// GL enums used for the overwrite blend.
const (
	glZero    = 0
	glOne     = 1
	glFuncAdd = 0x8006
)

// Device draws into raylib render textures and the window backbuffer.
type Device struct {
	units map[int]*target
	draws int64
}

// New returns a device bound to the current window.
func New() *Device {
	return &Device{units: make(map[int]*target)}
}

// Supports implements gpu.Device. Render textures created through raylib
// are RGBA8 only.
// TODO: allocate half-float color attachments through rlgl framebuffers so
// the unpacked pipeline runs on hardware too.
func (d *Device) Supports(f gpu.Format) bool { return f == gpu.RGBA8 }

// Filterable implements gpu.Device.
func (d *Device) Filterable(f gpu.Format) bool { return f == gpu.RGBA8 }

// NewTarget implements gpu.Device.
func (d *Device) NewTarget(w, h int, f gpu.Format, filter gpu.Filter) (gpu.Target, error) {
	if err := gpu.CheckSize(w, h); err != nil {
		return nil, err
	}
	if !d.Supports(f) {
		return nil, fmt.Errorf("creating %s target: unsupported", f)
	}
	rt := rl.LoadRenderTexture(int32(w), int32(h))
	if rt.ID == 0 {
		return nil, fmt.Errorf("creating %dx%d target: framebuffer incomplete", w, h)
	}
	if filter == gpu.Linear {
		rl.SetTextureFilter(rt.Texture, rl.FilterBilinear)
	} else {
		rl.SetTextureFilter(rt.Texture, rl.FilterPoint)
	}
	rl.SetTextureWrap(rt.Texture, rl.WrapClamp)
	return &target{rt: rt, w: w, h: h, format: f, filter: filter}, nil
}

// Compile implements gpu.Device.
func (d *Device) Compile(src gpu.ProgramSource, keywords []string) (gpu.Program, error) {
	shader := rl.LoadShaderFromMemory(src.Vertex, shaders.Assemble(src.Fragment, keywords))
	if shader.ID == 0 {
		return nil, fmt.Errorf("compiling %s [%s]: rejected by driver", src.Name, strings.Join(keywords, ","))
	}
	locs := make(map[string]int32, len(src.Uniforms))
	for _, name := range src.Uniforms {
		locs[name] = rl.GetShaderLocation(shader, name)
	}
	return &program{
		Uniforms: gpu.NewUniformsAt(locs),
		shader:   shader,
		name:     src.Name,
		keywords: slices.Clone(keywords),
		res:      locs["uResolution"],
	}, nil
}

// Bind implements gpu.Device.
func (d *Device) Bind(unit int, t gpu.Target) {
	if t == nil {
		delete(d.units, unit)
		return
	}
	d.units[unit] = t.(*target)
}

// Draw implements gpu.Device. With a nil dst the pass lands on the
// backbuffer, so the caller must be inside BeginDrawing.
func (d *Device) Draw(p gpu.Program, dst gpu.Target, blend gpu.Blend) error {
	if d.ContextLost() {
		return gpu.ErrContextLost
	}
	prog, ok := p.(*program)
	if !ok {
		return fmt.Errorf("draw: foreign program %T", p)
	}
	out, _ := dst.(*target)
	if dst != nil && out.released {
		return fmt.Errorf("draw %s: target released", prog.name)
	}

	w, h := d.SurfaceSize()
	rw, rh := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	if out != nil {
		w, h = out.w, out.h
		rw, rh = int32(w), int32(h)
		rl.BeginTextureMode(out.rt)
		defer rl.EndTextureMode()
	}

	if blend == gpu.BlendPremultiplied {
		rl.BeginBlendMode(rl.BlendAlphaPremultiply)
	} else {
		rl.SetBlendFactors(glOne, glZero, glFuncAdd)
		rl.BeginBlendMode(rl.BlendCustom)
	}
	defer rl.EndBlendMode()

	rl.BeginShaderMode(prog.shader)
	if prog.res >= 0 {
		rl.SetShaderValue(prog.shader, prog.res, []float32{float32(w), float32(h)}, rl.ShaderUniformVec2)
	}
	prog.Each(func(loc int32, v []float32) {
		rl.SetShaderValue(prog.shader, loc, v, uniformType(len(v)))
	})
	var missing error
	prog.EachSampler(func(loc int32, unit int) {
		t, ok := d.units[unit]
		if !ok || t.released {
			missing = fmt.Errorf("draw %s: nothing bound to unit %d", prog.name, unit)
			return
		}
		rl.SetShaderValueTexture(prog.shader, loc, t.rt.Texture)
	})
	rl.DrawRectangle(0, 0, rw, rh, rl.White)
	rl.EndShaderMode()
	d.draws++
	return missing
}

// Clear implements gpu.Device. Values are quantized to 8 bits.
func (d *Device) Clear(dst gpu.Target, r, g, b, a float32) error {
	if d.ContextLost() {
		return gpu.ErrContextLost
	}
	c := quantize(r, g, b, a)
	if dst == nil {
		rl.ClearBackground(c)
		return nil
	}
	t := dst.(*target)
	rl.BeginTextureMode(t.rt)
	rl.ClearBackground(c)
	rl.EndTextureMode()
	return nil
}

// ReadPixels implements gpu.Device. A nil target reads the backbuffer.
func (d *Device) ReadPixels(t gpu.Target) ([]float32, error) {
	if d.ContextLost() {
		return nil, gpu.ErrContextLost
	}
	var img *rl.Image
	fromScreen := t == nil
	if fromScreen {
		img = rl.LoadImageFromScreen()
	} else {
		tt := t.(*target)
		if tt.released {
			return nil, fmt.Errorf("read pixels: target released")
		}
		img = rl.LoadImageFromTexture(tt.rt.Texture)
	}
	defer rl.UnloadImage(img)

	colors := rl.LoadImageColors(img)
	defer rl.UnloadImageColors(colors)
	w, h := int(img.Width), int(img.Height)
	if fromScreen {
		// Screen captures come back top row first.
		colors = flipRows(colors, w, h)
	}
	return toFloats(colors), nil
}

// SurfaceSize implements gpu.Device.
func (d *Device) SurfaceSize() (int, int) {
	return rl.GetRenderWidth(), rl.GetRenderHeight()
}

// ResizeSurface implements gpu.Device. The window owns the backbuffer and
// SurfaceSize follows it, so there is nothing to do.
func (d *Device) ResizeSurface(int, int) {}

// ContextLost implements gpu.Device.
func (d *Device) ContextLost() bool { return !rl.IsWindowReady() }

// Draws returns the number of passes drawn so far.
func (d *Device) Draws() int64 { return d.draws }

type target struct {
	rt       rl.RenderTexture2D
	w, h     int
	format   gpu.Format
	filter   gpu.Filter
	released bool
}

func (t *target) Width() int         { return t.w }
func (t *target) Height() int        { return t.h }
func (t *target) Format() gpu.Format { return t.format }
func (t *target) Filter() gpu.Filter { return t.filter }

func (t *target) Release() {
	if t.released {
		return
	}
	t.released = true
	rl.UnloadRenderTexture(t.rt)
}

type program struct {
	*gpu.Uniforms
	shader   rl.Shader
	name     string
	keywords []string
	res      int32
}

func (p *program) Keywords() []string { return slices.Clone(p.keywords) }

func (p *program) Release() {
	if p.shader.ID != 0 {
		rl.UnloadShader(p.shader)
		p.shader.ID = 0
	}
}

func uniformType(n int) rl.ShaderUniformDataType {
	switch n {
	case 2:
		return rl.ShaderUniformVec2
	case 3:
		return rl.ShaderUniformVec3
	case 4:
		return rl.ShaderUniformVec4
	}
	return rl.ShaderUniformFloat
}

func quantize(r, g, b, a float32) color.RGBA {
	q := func(v float32) uint8 {
		v = min(max(v, 0), 1)
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{R: q(r), G: q(g), B: q(b), A: q(a)}
}

func flipRows(c []color.RGBA, w, h int) []color.RGBA {
	out := make([]color.RGBA, len(c))
	for y := 0; y < h; y++ {
		copy(out[y*w:(y+1)*w], c[(h-1-y)*w:(h-y)*w])
	}
	return out
}

func toFloats(c []color.RGBA) []float32 {
	out := make([]float32, 0, len(c)*4)
	for _, px := range c {
		out = append(out,
			float32(px.R)/255, float32(px.G)/255, float32(px.B)/255, float32(px.A)/255)
	}
	return out
}
