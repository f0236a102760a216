// Package soft is a software implementation of gpu.Device. It rasterizes
// full-screen passes on the CPU with GL sampling conventions: texel centers
// at half-integer coordinates, clamp-to-edge wrapping and bilinear or
// nearest filtering. Every kernel mirrors the GLSL program of the same name.
package soft

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/shaders"
)

// Options configures device capabilities.
type Options struct {
	Width, Height int
	// NoHalfFloat makes every half-float format unrenderable so pipelines
	// fall back to the 8-bit baseline.
	NoHalfFloat bool
	// NoLinearFloat disables linear filtering of half-float formats.
	NoLinearFloat bool
	// Disable lists further formats to report as unsupported.
	Disable []gpu.Format
	// Workers bounds the row bands drawn in parallel. Zero uses GOMAXPROCS.
	Workers int
	// CompileHook may reject a variant before it is built.
	CompileHook func(name string, keywords []string) error
}

// Device is the software gpu.Device.
type Device struct {
	opts    Options
	mu      sync.Mutex
	surface *target
	units   map[int]*target
	lost    atomic.Bool
	draws   atomic.Int64
}

// New creates a device with a surface of the given size.
func New(opts Options) *Device {
	if opts.Width <= 0 {
		opts.Width = 1
	}
	if opts.Height <= 0 {
		opts.Height = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Device{
		opts:    opts,
		surface: newTarget(opts.Width, opts.Height, gpu.RGBA8, gpu.Linear),
		units:   make(map[int]*target),
	}
}

// Supports implements gpu.Device.
func (d *Device) Supports(f gpu.Format) bool {
	if slices.Contains(d.opts.Disable, f) {
		return false
	}
	if f.Float() && d.opts.NoHalfFloat {
		return false
	}
	return f.Channels() > 0
}

// Filterable implements gpu.Device.
func (d *Device) Filterable(f gpu.Format) bool {
	if f.Float() {
		return !d.opts.NoLinearFloat
	}
	return true
}

// NewTarget implements gpu.Device.
func (d *Device) NewTarget(w, h int, f gpu.Format, filter gpu.Filter) (gpu.Target, error) {
	if err := gpu.CheckSize(w, h); err != nil {
		return nil, err
	}
	if !d.Supports(f) {
		return nil, fmt.Errorf("creating %s target: unsupported", f)
	}
	if filter == gpu.Linear && !d.Filterable(f) {
		filter = gpu.Nearest
	}
	return newTarget(w, h, f, filter), nil
}

// Compile implements gpu.Device.
func (d *Device) Compile(src gpu.ProgramSource, keywords []string) (gpu.Program, error) {
	build, ok := kernels[src.Name]
	if !ok {
		return nil, fmt.Errorf("compiling %s: no kernel", src.Name)
	}
	if d.opts.CompileHook != nil {
		if err := d.opts.CompileHook(src.Name, keywords); err != nil {
			return nil, fmt.Errorf("compiling %s: %w", src.Name, err)
		}
	}
	return newProgram(src, keywords, build), nil
}

// Bind implements gpu.Device.
func (d *Device) Bind(unit int, t gpu.Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == nil {
		delete(d.units, unit)
		return
	}
	d.units[unit] = t.(*target)
}

// Draw implements gpu.Device.
func (d *Device) Draw(p gpu.Program, dst gpu.Target, blend gpu.Blend) error {
	if d.lost.Load() {
		return gpu.ErrContextLost
	}
	prog, ok := p.(*program)
	if !ok {
		return fmt.Errorf("draw: foreign program %T", p)
	}
	out := d.resolve(dst)
	if out.pix == nil {
		return fmt.Errorf("draw %s: target released", prog.name)
	}

	d.mu.Lock()
	units := make(map[int]*target, len(d.units))
	for k, v := range d.units {
		units[k] = v
	}
	d.mu.Unlock()

	shade := prog.build(&pass{prog: prog, units: units})
	texel := vec2{}
	if v, ok := prog.Float("texelSize"); ok && len(v) >= 2 {
		texel = vec2{v[0], v[1]}
	}
	encode := dst != nil && prog.has(shaders.KeywordPacked)

	var g errgroup.Group
	band := (out.h + d.opts.Workers - 1) / d.opts.Workers
	for y0 := 0; y0 < out.h; y0 += band {
		y1 := min(y0+band, out.h)
		g.Go(func() error {
			var f frag
			for y := y0; y < y1; y++ {
				for x := 0; x < out.w; x++ {
					f.uv = vec2{(float32(x) + 0.5) / float32(out.w), (float32(y) + 0.5) / float32(out.h)}
					f.l = vec2{f.uv[0] - texel[0], f.uv[1]}
					f.r = vec2{f.uv[0] + texel[0], f.uv[1]}
					f.t = vec2{f.uv[0], f.uv[1] + texel[1]}
					f.b = vec2{f.uv[0], f.uv[1] - texel[1]}
					c := shade(&f)
					if encode {
						for i := range c {
							c[i] = gpu.Pack(c[i])
						}
					}
					if blend == gpu.BlendPremultiplied {
						prev := out.load(x, y)
						k := 1 - c[3]
						c = vec4{c[0] + prev[0]*k, c[1] + prev[1]*k, c[2] + prev[2]*k, c[3] + prev[3]*k}
					}
					out.store(x, y, c)
				}
			}
			return nil
		})
	}
	d.draws.Add(1)
	return g.Wait()
}

// Clear implements gpu.Device.
func (d *Device) Clear(dst gpu.Target, r, g, b, a float32) error {
	if d.lost.Load() {
		return gpu.ErrContextLost
	}
	out := d.resolve(dst)
	c := vec4{r, g, b, a}
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			out.store(x, y, c)
		}
	}
	return nil
}

// ReadPixels implements gpu.Device. A nil target reads the surface.
func (d *Device) ReadPixels(t gpu.Target) ([]float32, error) {
	if d.lost.Load() {
		return nil, gpu.ErrContextLost
	}
	src := d.resolve(t)
	if src.pix == nil {
		return nil, fmt.Errorf("read pixels: target released")
	}
	return slices.Clone(src.pix), nil
}

// SurfaceSize implements gpu.Device.
func (d *Device) SurfaceSize() (int, int) {
	return d.surface.w, d.surface.h
}

// ResizeSurface implements gpu.Device. The surface is cleared.
func (d *Device) ResizeSurface(w, h int) {
	if w <= 0 || h <= 0 || (w == d.surface.w && h == d.surface.h) {
		return
	}
	d.surface = newTarget(w, h, gpu.RGBA8, gpu.Linear)
}

// ContextLost implements gpu.Device.
func (d *Device) ContextLost() bool { return d.lost.Load() }

// LoseContext simulates the host dropping the graphics context.
func (d *Device) LoseContext() { d.lost.Store(true) }

// Draws returns the number of passes drawn so far.
func (d *Device) Draws() int64 { return d.draws.Load() }

func (d *Device) resolve(t gpu.Target) *target {
	if t == nil {
		return d.surface
	}
	return t.(*target)
}
