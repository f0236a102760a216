package telemetry

import (
	"math"
	"testing"
)

func TestCollector_FlushWindow(t *testing.T) {
	c := NewCollector(3)
	for frame := int64(0); frame < 3; frame++ {
		if c.ShouldFlush(frame) {
			t.Fatalf("ShouldFlush(%d) = true before window end", frame)
		}
		c.RecordStep(0.01)
		c.RecordEvent()
	}
	c.RecordSplat()
	c.RecordSplat()
	c.RecordResize()
	c.RecordSkippedDraw()
	c.RecordCompileFailure()

	if !c.ShouldFlush(3) {
		t.Fatal("ShouldFlush(3) = false at window end")
	}
	stats := c.Flush(3, 2, 1.5, 2.5, Grids{SimWidth: 4, SimHeight: 2, DyeWidth: 8, DyeHeight: 4, Format: "RG16F"})

	if stats.WindowStartFrame != 0 || stats.WindowEndFrame != 3 {
		t.Errorf("window = [%d,%d], want [0,3]", stats.WindowStartFrame, stats.WindowEndFrame)
	}
	if stats.Events != 3 || stats.Splats != 2 || stats.Resizes != 1 {
		t.Errorf("counts = %d events %d splats %d resizes", stats.Events, stats.Splats, stats.Resizes)
	}
	if stats.SkippedDraws != 1 || stats.CompileFailures != 1 {
		t.Errorf("failures = %d skipped %d compile", stats.SkippedDraws, stats.CompileFailures)
	}
	if math.Abs(stats.SimTimeSec-0.03) > 1e-12 {
		t.Errorf("SimTimeSec = %v, want 0.03", stats.SimTimeSec)
	}
	if math.Abs(stats.DTMean-0.01) > 1e-12 {
		t.Errorf("DTMean = %v, want 0.01", stats.DTMean)
	}
	if stats.Pointers != 2 || stats.VelocityNorm != 1.5 || stats.DyeNorm != 2.5 {
		t.Errorf("sampled values not carried: %+v", stats)
	}
	if stats.DyeWidth != 8 || stats.Format != "RG16F" {
		t.Errorf("grids not carried: %+v", stats)
	}

	if c.ShouldFlush(5) {
		t.Error("ShouldFlush(5) = true two frames into the next window")
	}
	next := c.Flush(6, 0, 0, 0, Grids{})
	if next.Events != 0 || next.Splats != 0 || next.WindowStartFrame != 3 {
		t.Errorf("counters not reset: %+v", next)
	}
	if math.Abs(next.SimTimeSec-0.03) > 1e-12 {
		t.Errorf("SimTimeSec = %v, want cumulative 0.03", next.SimTimeSec)
	}
}
