package telemetry

// Collector accumulates frame activity within windows and produces
// WindowStats.
type Collector struct {
	windowFrames int64

	// Current window tracking
	windowStartFrame int64
	simTime          float64
	dts              []float64

	// Event counters for current window
	events          int
	splats          int
	resizes         int
	skippedDraws    int
	compileFailures int
}

// NewCollector creates a collector that flushes every windowFrames frames.
func NewCollector(windowFrames int) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return &Collector{windowFrames: int64(windowFrames)}
}

// RecordStep records one simulation step of dt seconds.
func (c *Collector) RecordStep(dt float64) {
	c.simTime += dt
	c.dts = append(c.dts, dt)
}

// RecordEvent records a drained input event.
func (c *Collector) RecordEvent() { c.events++ }

// RecordSplat records one splat.
func (c *Collector) RecordSplat() { c.splats++ }

// RecordResize records a field reallocation.
func (c *Collector) RecordResize() { c.resizes++ }

// RecordSkippedDraw records a draw through an unusable program.
func (c *Collector) RecordSkippedDraw() { c.skippedDraws++ }

// RecordCompileFailure records a program variant that failed to compile.
func (c *Collector) RecordCompileFailure() { c.compileFailures++ }

// ShouldFlush returns true if enough frames have passed to flush the window.
func (c *Collector) ShouldFlush(frame int64) bool {
	return frame-c.windowStartFrame >= c.windowFrames
}

// Grids describes field sizes at flush time.
type Grids struct {
	SimWidth, SimHeight int
	DyeWidth, DyeHeight int
	Format              string
}

// Flush produces a WindowStats and resets counters for the next window.
// Norms and pointer count are sampled by the caller at window end.
func (c *Collector) Flush(frame int64, pointers int, velocityNorm, dyeNorm float64, grids Grids) WindowStats {
	mean, p50, p90 := DTStats(c.dts)
	stats := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   frame,
		SimTimeSec:       c.simTime,

		Events:   c.events,
		Splats:   c.splats,
		Pointers: pointers,
		Resizes:  c.resizes,

		DTMean: mean,
		DTP50:  p50,
		DTP90:  p90,

		VelocityNorm: velocityNorm,
		DyeNorm:      dyeNorm,

		SimWidth:  grids.SimWidth,
		SimHeight: grids.SimHeight,
		DyeWidth:  grids.DyeWidth,
		DyeHeight: grids.DyeHeight,
		Format:    grids.Format,

		SkippedDraws:    c.skippedDraws,
		CompileFailures: c.compileFailures,
	}

	// Reset for next window; sim time keeps accumulating.
	c.windowStartFrame = frame
	c.dts = c.dts[:0]
	c.events = 0
	c.splats = 0
	c.resizes = 0
	c.skippedDraws = 0
	c.compileFailures = 0

	return stats
}

// WindowFrames returns the number of frames per window.
func (c *Collector) WindowFrames() int64 {
	return c.windowFrames
}
