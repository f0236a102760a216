// Package gpu defines the small device surface the fluid pipeline draws
// through: render targets, keyword-compiled programs and full-screen passes.
//
// Two backends implement it: gpu/rlgpu on top of raylib, and gpu/soft, a
// software rasterizer used headless and in tests.
package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFormat is returned when no candidate texture format is renderable.
	ErrNoFormat = errors.New("gpu: no renderable texture format")
	// ErrContextLost is returned by draws issued after the device went away.
	ErrContextLost = errors.New("gpu: context lost")
	// ErrInvalidSize is returned for targets with a non-positive dimension.
	ErrInvalidSize = errors.New("gpu: invalid target size")
)

// Filter selects how a target is sampled.
type Filter int

const (
	Nearest Filter = iota
	Linear
)

func (f Filter) String() string {
	if f == Linear {
		return "linear"
	}
	return "nearest"
}

// Blend selects how a pass combines with the destination.
type Blend int

const (
	// BlendNone overwrites the destination.
	BlendNone Blend = iota
	// BlendPremultiplied computes src + dst*(1-src.a).
	BlendPremultiplied
)

// Target is an off-screen texture that can be rendered into and sampled.
type Target interface {
	Width() int
	Height() int
	Format() Format
	Filter() Filter
	Release()
}

// ProgramSource names a program and carries its GLSL. The software device
// selects its kernel by Name and ignores the sources.
type ProgramSource struct {
	Name     string
	Vertex   string
	Fragment string
	// Uniforms lists every uniform and sampler name the program reads.
	Uniforms []string
}

// Program is a compiled keyword variant.
type Program interface {
	// Location returns the uniform location for name, or -1 when the
	// program has no such uniform.
	Location(name string) int32
	// SetFloat stores a 1..4 component float uniform for the next draw.
	SetFloat(loc int32, v ...float32)
	// SetSampler points a sampler uniform at a texture unit.
	SetSampler(loc int32, unit int)
	Keywords() []string
	Release()
}

// Device is the backend a pipeline draws through.
type Device interface {
	// Supports reports whether targets of format f can be rendered into.
	Supports(f Format) bool
	// Filterable reports whether format f supports linear sampling.
	Filterable(f Format) bool

	NewTarget(w, h int, f Format, filter Filter) (Target, error)
	Compile(src ProgramSource, keywords []string) (Program, error)

	// Bind attaches t to a texture unit for subsequent draws.
	Bind(unit int, t Target)
	// Draw runs p over every pixel of dst. A nil dst is the surface.
	Draw(p Program, dst Target, blend Blend) error
	// Clear fills dst (or the surface when nil) with a constant color.
	Clear(dst Target, r, g, b, a float32) error
	// ReadPixels returns RGBA channel values, row 0 at the bottom.
	ReadPixels(t Target) ([]float32, error)

	SurfaceSize() (w, h int)
	ResizeSurface(w, h int)
	ContextLost() bool
}

// Uniforms stores pending uniform values for a program between draws.
// Backends embed it to share location bookkeeping.
type Uniforms struct {
	names    map[string]int32
	values   map[int32][]float32
	samplers map[int32]int
}

// NewUniforms assigns sequential locations to the given uniform names.
func NewUniforms(names []string) *Uniforms {
	locs := make(map[string]int32, len(names))
	for i, n := range names {
		locs[n] = int32(i)
	}
	return NewUniformsAt(locs)
}

// NewUniformsAt uses locations resolved by a driver. Negative entries are
// treated as absent.
func NewUniformsAt(locs map[string]int32) *Uniforms {
	u := &Uniforms{
		names:    make(map[string]int32, len(locs)),
		values:   make(map[int32][]float32),
		samplers: make(map[int32]int),
	}
	for n, loc := range locs {
		if loc >= 0 {
			u.names[n] = loc
		}
	}
	return u
}

// Location implements Program.Location.
func (u *Uniforms) Location(name string) int32 {
	if loc, ok := u.names[name]; ok {
		return loc
	}
	return -1
}

// SetFloat implements Program.SetFloat. Writes to location -1 are dropped
// the way GL drops them.
func (u *Uniforms) SetFloat(loc int32, v ...float32) {
	if loc < 0 || len(v) == 0 || len(v) > 4 {
		return
	}
	u.values[loc] = append(u.values[loc][:0], v...)
}

// SetSampler implements Program.SetSampler.
func (u *Uniforms) SetSampler(loc int32, unit int) {
	if loc < 0 {
		return
	}
	u.samplers[loc] = unit
}

// Float returns the stored value of a named uniform.
func (u *Uniforms) Float(name string) ([]float32, bool) {
	loc := u.Location(name)
	if loc < 0 {
		return nil, false
	}
	v, ok := u.values[loc]
	return v, ok
}

// Sampler returns the unit assigned to a named sampler uniform.
func (u *Uniforms) Sampler(name string) (int, bool) {
	loc := u.Location(name)
	if loc < 0 {
		return 0, false
	}
	unit, ok := u.samplers[loc]
	return unit, ok
}

// Each visits every stored float uniform.
func (u *Uniforms) Each(fn func(loc int32, v []float32)) {
	for loc, v := range u.values {
		fn(loc, v)
	}
}

// EachSampler visits every sampler assignment.
func (u *Uniforms) EachSampler(fn func(loc int32, unit int)) {
	for loc, unit := range u.samplers {
		fn(loc, unit)
	}
}

// CheckSize validates target dimensions.
func CheckSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	return nil
}
