package fluid

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/gpu/soft"
)

func newTestPool(t *testing.T, opts soft.Options) (*Pool, *soft.Device) {
	t.Helper()
	dev := soft.New(opts)
	formats, err := NegotiateFormats(dev)
	if err != nil {
		t.Fatalf("NegotiateFormats: %v", err)
	}
	pool, err := NewPool(dev, NewRegistry(dev), formats)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	return pool, dev
}

func TestDoubleFieldSwapRoles(t *testing.T) {
	pool, _ := newTestPool(t, soft.Options{Width: 8, Height: 8})
	d, err := pool.CreateDoubleField(4, 4, gpu.RG16F, gpu.Linear)
	if err != nil {
		t.Fatal(err)
	}
	first, second := d.Read(), d.Write()
	for n := 0; n < 7; n++ {
		if d.Read() == d.Write() {
			t.Fatalf("after %d swaps read and write are the same field", n)
		}
		want := first
		if n%2 == 1 {
			want = second
		}
		if d.Read() != want {
			t.Errorf("after %d swaps Read is not buffer %d", n, n%2)
		}
		if d.Swaps() != n {
			t.Errorf("Swaps() = %d, want %d", d.Swaps(), n)
		}
		d.Swap()
	}
}

func TestNegotiateFormats(t *testing.T) {
	tests := []struct {
		name string
		opts soft.Options
		want Formats
	}{
		{
			name: "half float",
			opts: soft.Options{},
			want: Formats{Scalar: gpu.R16F, Vector: gpu.RG16F, Color: gpu.RGBA16F, Linear: true},
		},
		{
			name: "quad channel fallback",
			opts: soft.Options{Disable: []gpu.Format{gpu.R16F, gpu.RG16F}},
			want: Formats{Scalar: gpu.RGBA16F, Vector: gpu.RGBA16F, Color: gpu.RGBA16F, Linear: true},
		},
		{
			name: "no linear float",
			opts: soft.Options{NoLinearFloat: true},
			want: Formats{Scalar: gpu.R16F, Vector: gpu.RG16F, Color: gpu.RGBA16F},
		},
		{
			name: "baseline",
			opts: soft.Options{NoHalfFloat: true},
			want: Formats{Scalar: gpu.RGBA8, Vector: gpu.RGBA8, Color: gpu.RGBA8, Packed: true, Linear: true},
		},
	}
	for _, tt := range tests {
		got, err := NegotiateFormats(soft.New(tt.opts))
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestNegotiateFormatsNoneAvailable(t *testing.T) {
	dev := soft.New(soft.Options{NoHalfFloat: true, Disable: []gpu.Format{gpu.RGBA8}})
	if _, err := NegotiateFormats(dev); !errors.Is(err, gpu.ErrNoFormat) {
		t.Errorf("err = %v, want ErrNoFormat", err)
	}
}

func TestCreateFieldInvalidSize(t *testing.T) {
	pool, _ := newTestPool(t, soft.Options{})
	for _, dims := range [][2]int{{0, 4}, {4, 0}, {-1, -1}} {
		if _, err := pool.CreateField(dims[0], dims[1], gpu.R16F, gpu.Nearest); !errors.Is(err, gpu.ErrInvalidSize) {
			t.Errorf("CreateField(%d, %d) err = %v, want ErrInvalidSize", dims[0], dims[1], err)
		}
	}
}

func TestResizeDoubleIdempotentAndPreserving(t *testing.T) {
	pool, dev := newTestPool(t, soft.Options{Width: 8, Height: 8})
	d, err := pool.CreateDoubleField(4, 4, gpu.RG16F, gpu.Linear)
	if err != nil {
		t.Fatal(err)
	}
	d.Swap()
	d.Swap()
	d.Swap()

	// Only the current read buffer is carried over.
	if err := dev.Clear(d.Read().Target(), 0.25, -0.5, 0, 0); err != nil {
		t.Fatal(err)
	}

	if err := pool.ResizeDouble(d, 8, 6); err != nil {
		t.Fatal(err)
	}
	if d.Width() != 8 || d.Height() != 6 {
		t.Fatalf("size = %dx%d, want 8x6", d.Width(), d.Height())
	}
	if d.Swaps() != 0 {
		t.Errorf("Swaps() = %d after resize, want 0", d.Swaps())
	}
	read, err := FieldValues(dev, d.Read(), 2, false)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(read); i += 2 {
		if read[i] != 0.25 || read[i+1] != -0.5 {
			t.Fatalf("texel %d = (%v, %v), want (0.25, -0.5)", i/2, read[i], read[i+1])
		}
	}
	write, err := FieldValues(dev, d.Write(), 2, false)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range write {
		if v != 0 {
			t.Fatalf("write buffer value %d = %v, want 0", i, v)
		}
	}

	bufs := d.buf
	if err := pool.ResizeDouble(d, 8, 6); err != nil {
		t.Fatal(err)
	}
	if d.buf != bufs {
		t.Error("second resize to the same size reallocated")
	}
}

func TestResizeDoublePacked(t *testing.T) {
	pool, dev := newTestPool(t, soft.Options{Width: 8, Height: 8, NoHalfFloat: true})
	if !pool.Formats().Packed {
		t.Fatal("expected packed formats")
	}
	d, err := pool.CreateDoubleField(4, 4, gpu.RGBA8, gpu.Linear)
	if err != nil {
		t.Fatal(err)
	}
	zero, err := FieldValues(dev, d.Read(), 4, true)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range zero {
		if v != 0 {
			t.Fatalf("new packed field value %d = %v, want 0", i, v)
		}
	}

	if err := dev.Clear(d.Read().Target(), gpu.Pack(0.25), gpu.Pack(-0.5), gpu.PackCenter, gpu.PackCenter); err != nil {
		t.Fatal(err)
	}
	if err := pool.ResizeDouble(d, 6, 6); err != nil {
		t.Fatal(err)
	}
	vals, err := FieldValues(dev, d.Read(), 2, true)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(vals); i += 2 {
		if math.Abs(vals[i]-0.25) > 0.025 || math.Abs(vals[i+1]+0.5) > 0.05 {
			t.Fatalf("texel %d = (%v, %v), want about (0.25, -0.5)", i/2, vals[i], vals[i+1])
		}
	}
}

func TestResizeSingleField(t *testing.T) {
	pool, dev := newTestPool(t, soft.Options{})
	f, err := pool.CreateField(4, 4, gpu.R16F, gpu.Nearest)
	if err != nil {
		t.Fatal(err)
	}
	same, err := pool.Resize(f, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if same != f {
		t.Error("Resize to the same size returned a new field")
	}

	if err := dev.Clear(f.Target(), 3, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	g, err := pool.Resize(f, 5, 3)
	if err != nil {
		t.Fatal(err)
	}
	if g == f || g.Width() != 5 || g.Height() != 3 {
		t.Fatalf("Resize returned %dx%d", g.Width(), g.Height())
	}
	tx, ty := g.TexelSize()
	if tx != 1/float32(5) || ty != 1/float32(3) {
		t.Errorf("TexelSize = (%v, %v)", tx, ty)
	}
	vals, err := FieldValues(dev, g, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vals {
		if v != 0 {
			t.Fatalf("value %d = %v, want 0", i, v)
		}
	}
}
