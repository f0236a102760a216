package fluid

import (
	"errors"
	"slices"
	"testing"

	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/gpu/soft"
	"github.com/pthm-cable/fluidfx/shaders"
)

func TestKeywordKey(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{""}, ""},
		{[]string{"SHADING"}, "SHADING"},
		{[]string{"SHADING", "PACKED"}, "PACKED,SHADING"},
		{[]string{"PACKED", "SHADING"}, "PACKED,SHADING"},
		{[]string{"SHADING", " SHADING ", "PACKED", "SHADING"}, "PACKED,SHADING"},
		{[]string{"MANUAL_FILTERING", "", "PACKED"}, "MANUAL_FILTERING,PACKED"},
	}
	for _, tt := range tests {
		if got := KeywordKey(tt.in); got != tt.want {
			t.Errorf("KeywordKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaterialCachesVariants(t *testing.T) {
	compiles := 0
	dev := soft.New(soft.Options{CompileHook: func(string, []string) error {
		compiles++
		return nil
	}})
	reg := NewRegistry(dev)
	m, err := reg.Material(shaders.Display)
	if err != nil {
		t.Fatal(err)
	}
	m.SetKeywords(shaders.KeywordShading)
	m.SetKeywords()
	m.SetKeywords(shaders.KeywordShading, shaders.KeywordShading)
	if compiles != 2 {
		t.Errorf("compiled %d times, want 2", compiles)
	}
	if m.Key() != shaders.KeywordShading {
		t.Errorf("Key() = %q", m.Key())
	}
	prog, ok := m.Bind()
	if !ok || !slices.Contains(prog.Keywords(), shaders.KeywordShading) {
		t.Errorf("Bind() = %v, %v", prog, ok)
	}
}

func TestMaterialBaseKeywords(t *testing.T) {
	dev := soft.New(soft.Options{})
	reg := NewRegistry(dev)
	m, err := reg.Material(shaders.Advection, shaders.KeywordPacked)
	if err != nil {
		t.Fatal(err)
	}
	m.SetKeywords(shaders.KeywordManualFiltering)
	if m.Key() != "MANUAL_FILTERING,PACKED" {
		t.Errorf("Key() = %q, want base keyword merged", m.Key())
	}
	m.SetKeywords()
	if m.Key() != shaders.KeywordPacked {
		t.Errorf("Key() = %q, want only the base keyword", m.Key())
	}
}

func TestMaterialUnknownProgram(t *testing.T) {
	reg := NewRegistry(soft.New(soft.Options{}))
	if _, err := reg.Material("nope"); err == nil {
		t.Error("Material(\"nope\") succeeded")
	}
}

func TestCompileFailureIsolated(t *testing.T) {
	attempts := 0
	dev := soft.New(soft.Options{Width: 4, Height: 4, CompileHook: func(name string, kw []string) error {
		if name == shaders.Display && slices.Contains(kw, shaders.KeywordShading) {
			attempts++
			return errors.New("0:12: syntax error")
		}
		return nil
	}})
	reg := NewRegistry(dev)
	var failed []string
	skipped := 0
	reg.OnCompileFailed = func(program, keywords string, err error) {
		failed = append(failed, program+"|"+keywords)
	}
	reg.OnDrawSkipped = func(string) { skipped++ }

	m, err := reg.Material(shaders.Display)
	if err != nil {
		t.Fatal(err)
	}
	m.SetKeywords(shaders.KeywordShading)
	if m.Usable() {
		t.Fatal("failing variant reported usable")
	}
	if !errors.Is(m.Err(), ErrProgramUnusable) {
		t.Errorf("Err() = %v, want ErrProgramUnusable", m.Err())
	}
	if _, ok := m.Bind(); ok {
		t.Error("Bind() succeeded for an unusable variant")
	}
	before := dev.Draws()
	if err := m.Draw(nil, gpu.BlendPremultiplied); err != nil {
		t.Errorf("Draw through unusable variant: %v", err)
	}
	if dev.Draws() != before || skipped != 1 {
		t.Errorf("draw not skipped: draws %d->%d, skipped %d", before, dev.Draws(), skipped)
	}

	// Asking again hits the cached failure.
	m.SetKeywords()
	m.SetKeywords(shaders.KeywordShading)
	if attempts != 1 || len(failed) != 1 || reg.Failures() != 1 {
		t.Errorf("attempts %d, failures reported %v, Failures() %d", attempts, failed, reg.Failures())
	}

	// Other variants and programs keep working.
	m.SetKeywords()
	if !m.Usable() {
		t.Fatal("plain display variant unusable")
	}
	if err := m.Draw(nil, gpu.BlendPremultiplied); err != nil {
		t.Fatal(err)
	}
	if dev.Draws() != before+1 {
		t.Errorf("usable variant did not draw")
	}
	cp, err := reg.Material(shaders.Copy)
	if err != nil || !cp.Usable() {
		t.Errorf("copy material: usable %v, err %v", cp != nil && cp.Usable(), err)
	}
}
