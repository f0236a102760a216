package fluid

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/shaders"
)

// ErrProgramUnusable is returned for variants whose compile failed.
var ErrProgramUnusable = errors.New("fluid: program unusable")

// KeywordKey normalizes a keyword set into a cache key: empty entries are
// dropped, duplicates removed and the rest sorted, so order never matters.
func KeywordKey(keywords []string) string {
	set := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			set = append(set, kw)
		}
	}
	slices.Sort(set)
	return strings.Join(slices.Compact(set), ",")
}

func splitKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, ",")
}

// variant is a cached compile result. A failed compile is cached too so it
// is logged once and never retried.
type variant struct {
	prog gpu.Program
	err  error
}

// Registry compiles and caches program variants by name and keyword set.
type Registry struct {
	dev      gpu.Device
	variants map[string]*variant

	// OnCompileFailed is called once per failing variant.
	OnCompileFailed func(program, keywords string, err error)
	// OnDrawSkipped is called for every draw through an unusable variant.
	OnDrawSkipped func(program string)
}

// NewRegistry creates an empty registry for dev.
func NewRegistry(dev gpu.Device) *Registry {
	return &Registry{
		dev:      dev,
		variants: make(map[string]*variant),
	}
}

// Program returns the compiled variant of src for a normalized keyword key.
func (r *Registry) Program(src gpu.ProgramSource, key string) (gpu.Program, error) {
	id := src.Name + "|" + key
	if v, ok := r.variants[id]; ok {
		return v.prog, v.err
	}
	prog, err := r.dev.Compile(src, splitKey(key))
	v := &variant{prog: prog}
	if err != nil {
		v.prog = nil
		v.err = fmt.Errorf("%w: %s [%s]: %v", ErrProgramUnusable, src.Name, key, err)
		Logger().Error("program_compile_failed", "program", src.Name, "keywords", key, "err", err)
		if r.OnCompileFailed != nil {
			r.OnCompileFailed(src.Name, key, err)
		}
	} else {
		Logger().Debug("program_compiled", "program", src.Name, "keywords", key)
	}
	r.variants[id] = v
	return v.prog, v.err
}

// Failures counts cached variants that failed to compile.
func (r *Registry) Failures() int {
	n := 0
	for _, v := range r.variants {
		if v.err != nil {
			n++
		}
	}
	return n
}

// Release frees every compiled variant and empties the cache.
func (r *Registry) Release() {
	for id, v := range r.variants {
		if v.prog != nil {
			v.prog.Release()
		}
		delete(r.variants, id)
	}
}

// Material binds one program source to a family of keyword variants.
type Material struct {
	reg    *Registry
	src    gpu.ProgramSource
	base   []string
	key    string
	active gpu.Program
	err    error
	bound  bool
}

// Material creates a material for a named program. Base keywords are
// merged into every SetKeywords call.
func (r *Registry) Material(name string, base ...string) (*Material, error) {
	src, err := shaders.Source(name)
	if err != nil {
		return nil, err
	}
	m := &Material{reg: r, src: src, base: base}
	m.SetKeywords()
	return m, nil
}

// SetKeywords activates the variant for base+kw, compiling it on first use.
func (m *Material) SetKeywords(kw ...string) {
	key := KeywordKey(append(slices.Clone(m.base), kw...))
	if m.bound && key == m.key {
		return
	}
	m.key = key
	m.active, m.err = m.reg.Program(m.src, key)
	m.bound = true
}

// Key returns the active normalized keyword set.
func (m *Material) Key() string { return m.key }

// Usable reports whether the active variant compiled.
func (m *Material) Usable() bool { return m.active != nil }

// Err returns the compile error of the active variant.
func (m *Material) Err() error { return m.err }

// Bind returns the active program, or false when the variant is unusable.
func (m *Material) Bind() (gpu.Program, bool) {
	return m.active, m.active != nil
}

// Set stores a float uniform on the active variant.
func (m *Material) Set(name string, v ...float32) {
	if m.active == nil {
		return
	}
	m.active.SetFloat(m.active.Location(name), v...)
}

// SetSampler points a sampler uniform at a texture unit.
func (m *Material) SetSampler(name string, unit int) {
	if m.active == nil {
		return
	}
	m.active.SetSampler(m.active.Location(name), unit)
}

// Draw runs the active variant into dst. Draws through an unusable variant
// are skipped and reported, never fatal.
func (m *Material) Draw(dst gpu.Target, blend gpu.Blend) error {
	prog, ok := m.Bind()
	if !ok {
		if m.reg.OnDrawSkipped != nil {
			m.reg.OnDrawSkipped(m.src.Name)
		}
		return nil
	}
	if err := m.reg.dev.Draw(prog, dst, blend); err != nil {
		return fmt.Errorf("draw %s: %w", m.src.Name, err)
	}
	return nil
}
