package gpu

import (
	"math"
	"testing"
)

func TestCandidatesOrder(t *testing.T) {
	tests := []struct {
		want Format
		out  []Format
	}{
		{R16F, []Format{R16F, RG16F, RGBA16F, RGBA8}},
		{RG16F, []Format{RG16F, RGBA16F, RGBA8}},
		{RGBA16F, []Format{RGBA16F, RGBA8}},
		{RGBA8, []Format{RGBA8}},
	}
	for _, tt := range tests {
		got := Candidates(tt.want)
		if len(got) != len(tt.out) {
			t.Fatalf("Candidates(%s) = %v, want %v", tt.want, got, tt.out)
		}
		for i := range got {
			if got[i] != tt.out[i] {
				t.Errorf("Candidates(%s)[%d] = %s, want %s", tt.want, i, got[i], tt.out[i])
			}
		}
	}
}

func TestPackRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 0.01, -0.01, 0.5, -0.5, 1, -3, 42, -1000} {
		got := Unpack(Pack(v))
		tol := 1e-4 + 1e-4*math.Abs(float64(v))
		if math.Abs(float64(got-v)) > tol {
			t.Errorf("Unpack(Pack(%v)) = %v", v, got)
		}
	}
}

func TestPackQuantizedZero(t *testing.T) {
	q := float32(math.Round(float64(PackCenter)*255)) / 255
	if got := Unpack(q); got != 0 {
		t.Errorf("quantized zero decodes to %v, want 0", got)
	}
}

func TestPackMonotone(t *testing.T) {
	prev := Pack(-5000)
	for v := float32(-4999); v < 5000; v += 7.5 {
		p := Pack(v)
		if p < prev {
			t.Fatalf("Pack not monotone at %v: %v < %v", v, p, prev)
		}
		prev = p
	}
}

func TestUniformsDropUnknown(t *testing.T) {
	u := NewUniforms([]string{"a", "b"})
	u.SetFloat(u.Location("missing"), 1)
	u.SetFloat(u.Location("b"), 2, 3)
	if _, ok := u.Float("a"); ok {
		t.Error("unset uniform reported as set")
	}
	v, ok := u.Float("b")
	if !ok || len(v) != 2 || v[1] != 3 {
		t.Errorf("Float(b) = %v, %v", v, ok)
	}
	u.SetSampler(u.Location("a"), 4)
	if unit, ok := u.Sampler("a"); !ok || unit != 4 {
		t.Errorf("Sampler(a) = %d, %v", unit, ok)
	}
}
