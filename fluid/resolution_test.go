package fluid

import (
	"math"
	"testing"
)

func TestResolution(t *testing.T) {
	tests := []struct {
		target, sw, sh int
		w, h           int
	}{
		{128, 1920, 1080, 228, 128},
		{128, 1080, 1920, 128, 228},
		{128, 800, 800, 128, 128},
		{1024, 1280, 720, 1820, 1024},
		{100, 0, 10, 100, 100},
	}
	for _, tt := range tests {
		w, h := Resolution(tt.target, tt.sw, tt.sh)
		if w != tt.w || h != tt.h {
			t.Errorf("Resolution(%d, %d, %d) = %dx%d, want %dx%d", tt.target, tt.sw, tt.sh, w, h, tt.w, tt.h)
		}
	}
}

func TestResolutionPreservesAspect(t *testing.T) {
	for _, target := range []int{32, 128, 512, 1024} {
		for sw := 100; sw <= 3000; sw += 173 {
			for sh := 100; sh <= 3000; sh += 211 {
				w, h := Resolution(target, sw, sh)
				if min(w, h) != target {
					t.Fatalf("short side %d != %d for %dx%d", min(w, h), target, sw, sh)
				}
				if (sw > sh) != (w > h) && w != h {
					t.Fatalf("orientation flipped for %dx%d -> %dx%d", sw, sh, w, h)
				}
				want := float64(sw) / float64(sh)
				got := float64(w) / float64(h)
				// Rounding the long side moves the ratio by at most half a cell.
				if math.Abs(got-want) > 0.5/float64(target)+1e-9 {
					t.Fatalf("aspect %v vs surface %v for %dx%d at %d", got, want, sw, sh, target)
				}
			}
		}
	}
}

func TestSurfacePixels(t *testing.T) {
	w, h := SurfacePixels(801, 600, 1.5)
	if w != 1201 || h != 900 {
		t.Errorf("SurfacePixels = %dx%d, want 1201x900", w, h)
	}
	if w, h := SurfacePixels(10, 20, 0); w != 10 || h != 20 {
		t.Errorf("zero ratio should mean 1, got %dx%d", w, h)
	}
}

func TestComputeGridsCapsDye(t *testing.T) {
	g := computeGrids(128, 1024, 512, false, 1000, 1000)
	if g.dyeW != 512 || g.dyeH != 512 {
		t.Errorf("dye = %dx%d, want capped 512", g.dyeW, g.dyeH)
	}
	g = computeGrids(128, 1024, 512, true, 1000, 1000)
	if g.dyeW != 1024 {
		t.Errorf("dye = %d, want uncapped 1024", g.dyeW)
	}
}
