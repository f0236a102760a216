package fluid

import (
	"fmt"

	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/shaders"
)

// Field is one off-screen grid.
type Field struct {
	dev    gpu.Device
	target gpu.Target
	width  int
	height int
	texel  [2]float32
}

// Width returns the grid width in texels.
func (f *Field) Width() int { return f.width }

// Height returns the grid height in texels.
func (f *Field) Height() int { return f.height }

// TexelSize returns (1/width, 1/height).
func (f *Field) TexelSize() (float32, float32) { return f.texel[0], f.texel[1] }

// Format returns the storage format.
func (f *Field) Format() gpu.Format { return f.target.Format() }

// Filter returns the sampling filter.
func (f *Field) Filter() gpu.Filter { return f.target.Filter() }

// Target exposes the backing render target.
func (f *Field) Target() gpu.Target { return f.target }

// Attach binds the field to a texture unit and returns the unit.
func (f *Field) Attach(unit int) int {
	f.dev.Bind(unit, f.target)
	return unit
}

func (f *Field) release() {
	if f != nil && f.target != nil {
		f.target.Release()
		f.target = nil
	}
}

// DoubleField is a ping-pong pair. Exactly one buffer is the read buffer
// and the other the write buffer; Swap exchanges them in O(1).
type DoubleField struct {
	buf   [2]*Field
	swaps int
}

// Read returns the buffer stages sample from.
func (d *DoubleField) Read() *Field { return d.buf[d.swaps&1] }

// Write returns the buffer stages render into.
func (d *DoubleField) Write() *Field { return d.buf[(d.swaps+1)&1] }

// Swap exchanges the read and write roles.
func (d *DoubleField) Swap() { d.swaps++ }

// Swaps returns the number of swaps since allocation.
func (d *DoubleField) Swaps() int { return d.swaps }

// Width returns the grid width in texels.
func (d *DoubleField) Width() int { return d.buf[0].width }

// Height returns the grid height in texels.
func (d *DoubleField) Height() int { return d.buf[0].height }

// TexelSize returns (1/width, 1/height).
func (d *DoubleField) TexelSize() (float32, float32) { return d.buf[0].TexelSize() }

func (d *DoubleField) release() {
	if d == nil {
		return
	}
	d.buf[0].release()
	d.buf[1].release()
}

// Formats is the result of capability negotiation.
type Formats struct {
	Scalar gpu.Format // curl, divergence, pressure
	Vector gpu.Format // velocity
	Color  gpu.Format // dye
	// Packed is set when any role fell back to the 8-bit baseline; then
	// every role uses it and programs compile with the PACKED keyword.
	Packed bool
	// Linear reports native linear filtering for the chosen formats.
	Linear bool
}

// Filter returns the filter every field is created with.
func (f Formats) Filter() gpu.Filter {
	if f.Linear {
		return gpu.Linear
	}
	return gpu.Nearest
}

// NegotiateFormats walks each role's fallback chain.
func NegotiateFormats(dev gpu.Device) (Formats, error) {
	var out Formats
	roles := []struct {
		want gpu.Format
		dst  *gpu.Format
	}{
		{gpu.R16F, &out.Scalar},
		{gpu.RG16F, &out.Vector},
		{gpu.RGBA16F, &out.Color},
	}
	for _, r := range roles {
		f, err := gpu.Resolve(dev, r.want)
		if err != nil {
			return Formats{}, err
		}
		*r.dst = f
		if f == gpu.RGBA8 {
			out.Packed = true
		}
	}
	if out.Packed {
		out.Scalar, out.Vector, out.Color = gpu.RGBA8, gpu.RGBA8, gpu.RGBA8
	}
	out.Linear = dev.Filterable(out.Scalar) && dev.Filterable(out.Vector) && dev.Filterable(out.Color)
	return out, nil
}

// Pool allocates fields and reallocates them on resize.
type Pool struct {
	dev     gpu.Device
	formats Formats
	copy    *Material
}

// NewPool creates a pool. The registry supplies the copy program used to
// carry content across a resize.
func NewPool(dev gpu.Device, reg *Registry, formats Formats) (*Pool, error) {
	var kw []string
	if formats.Packed {
		kw = append(kw, shaders.KeywordPacked)
	}
	cp, err := reg.Material(shaders.Copy, kw...)
	if err != nil {
		return nil, err
	}
	return &Pool{dev: dev, formats: formats, copy: cp}, nil
}

// Formats returns the negotiated formats.
func (p *Pool) Formats() Formats { return p.formats }

// CreateField allocates a zeroed field.
func (p *Pool) CreateField(w, h int, format gpu.Format, filter gpu.Filter) (*Field, error) {
	t, err := p.dev.NewTarget(w, h, format, filter)
	if err != nil {
		return nil, fmt.Errorf("creating %dx%d %s field: %w", w, h, format, err)
	}
	f := &Field{
		dev:    p.dev,
		target: t,
		width:  w,
		height: h,
		texel:  [2]float32{1 / float32(w), 1 / float32(h)},
	}
	if err := p.zero(f); err != nil {
		t.Release()
		return nil, err
	}
	Logger().Debug("field_created", "w", w, "h", h, "format", format.String(), "filter", filter.String())
	return f, nil
}

// CreateDoubleField allocates a zeroed ping-pong pair.
func (p *Pool) CreateDoubleField(w, h int, format gpu.Format, filter gpu.Filter) (*DoubleField, error) {
	a, err := p.CreateField(w, h, format, filter)
	if err != nil {
		return nil, err
	}
	b, err := p.CreateField(w, h, format, filter)
	if err != nil {
		a.release()
		return nil, err
	}
	return &DoubleField{buf: [2]*Field{a, b}}, nil
}

// Resize returns f unchanged when the size matches. Otherwise it releases f
// and returns a zeroed field of the new size; single fields hold per-step
// scratch data that is never carried over.
func (p *Pool) Resize(f *Field, w, h int) (*Field, error) {
	if f.width == w && f.height == h {
		return f, nil
	}
	nf, err := p.CreateField(w, h, f.Format(), f.Filter())
	if err != nil {
		return nil, err
	}
	f.release()
	return nf, nil
}

// ResizeDouble reallocates d in place. The read buffer's content is copied
// into the new read buffer with filtering, the write buffer starts zeroed
// and the roles restart from zero swaps. Resizing to the current size is a
// no-op.
func (p *Pool) ResizeDouble(d *DoubleField, w, h int) error {
	if d.Width() == w && d.Height() == h {
		return nil
	}
	old := d.Read()
	read, err := p.CreateField(w, h, old.Format(), old.Filter())
	if err != nil {
		return err
	}
	p.copy.SetSampler("uTexture", old.Attach(0))
	if err := p.copy.Draw(read.target, gpu.BlendNone); err != nil {
		read.release()
		return fmt.Errorf("copying field on resize: %w", err)
	}
	write, err := p.CreateField(w, h, old.Format(), old.Filter())
	if err != nil {
		read.release()
		return err
	}
	d.release()
	d.buf = [2]*Field{read, write}
	d.swaps = 0
	return nil
}

// zero clears f to the encoding of zero for the negotiated formats.
func (p *Pool) zero(f *Field) error {
	if p.formats.Packed {
		z := gpu.PackedZero()
		return p.dev.Clear(f.target, z[0], z[1], z[2], z[3])
	}
	return p.dev.Clear(f.target, 0, 0, 0, 0)
}
