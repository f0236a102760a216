package fluid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pthm-cable/fluidfx/config"
	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/shaders"
	"github.com/pthm-cable/fluidfx/telemetry"
)

var (
	// ErrContextLost is returned once the device drops its context; the
	// engine stops and never draws again.
	ErrContextLost = gpu.ErrContextLost
	// ErrStopped is returned by Frame after Stop.
	ErrStopped = errors.New("fluid: engine stopped")
)

// Options configures an Engine.
type Options struct {
	Config     config.FluidConfig
	Theme      config.ThemeConfig
	Background config.BackgroundConfig
	// Seed drives splat colors and click jitter.
	Seed uint64
	// StatsWindow is the number of frames per stats window. Zero disables
	// window stats.
	StatsWindow int
	// OnStats receives each flushed stats window.
	OnStats func(telemetry.WindowStats)

	Perf    *telemetry.PerfCollector
	Metrics *telemetry.Metrics
}

type viewport struct {
	clientW, clientH int
	ratio            float64
}

// Engine is the simulation context: it owns the device resources, the
// pointer table and the input queue, and runs one tick per Frame call.
// Frame must be called from a single goroutine; the setters and pointer
// methods are safe from any goroutine.
type Engine struct {
	dev     gpu.Device
	reg     *Registry
	pool    *Pool
	formats Formats
	fields  Fields
	grids   gridSizes

	stepper    *Stepper
	splatter   *Splatter
	compositor *Compositor

	queue    Queue
	events   []Event
	pointers *Pointers
	palette  *Palette
	bg       *Background

	cfg        config.FluidConfig
	themes     config.ThemeConfig
	colorTimer float64

	ctl      sync.Mutex
	pending  *config.FluidConfig
	theme    string
	view     viewport
	viewSet  bool
	stopped  atomic.Bool
	lostOnce sync.Once

	last   time.Time
	frame  int64
	splats int

	perf      *telemetry.PerfCollector
	metrics   *telemetry.Metrics
	collector *telemetry.Collector
	onStats   func(telemetry.WindowStats)
	stats     telemetry.WindowStats
}

// New negotiates formats, compiles programs and allocates fields for the
// device's current surface size.
func New(dev gpu.Device, opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	formats, err := NegotiateFormats(dev)
	if err != nil {
		return nil, err
	}
	log := Logger()
	log.Info("formats_negotiated",
		"scalar", formats.Scalar.String(),
		"vector", formats.Vector.String(),
		"color", formats.Color.String(),
		"packed", formats.Packed,
		"linear", formats.Linear,
	)
	if formats.Packed {
		log.Warn("half_float_unavailable", "fallback", gpu.RGBA8.String())
	}
	if !formats.Linear {
		log.Warn("linear_filtering_unavailable", "dye_cap", opts.Config.MaxDyeNoLinear)
	}

	e := &Engine{
		dev:      dev,
		reg:      NewRegistry(dev),
		formats:  formats,
		pointers: NewPointers(),
		palette:  NewPalette(opts.Seed),
		bg:       NewBackground(opts.Background),
		cfg:      opts.Config,
		themes:   opts.Theme,
		theme:    opts.Theme.Mode,
		perf:     opts.Perf,
		metrics:  opts.Metrics,
		onStats:  opts.OnStats,
	}
	if opts.StatsWindow > 0 {
		e.collector = telemetry.NewCollector(opts.StatsWindow)
	}
	e.reg.OnCompileFailed = func(program, _ string, _ error) {
		e.metrics.CompileFailed(program)
		if e.collector != nil {
			e.collector.RecordCompileFailure()
		}
	}
	e.reg.OnDrawSkipped = func(string) {
		e.metrics.DrawSkipped()
		if e.collector != nil {
			e.collector.RecordSkippedDraw()
		}
	}

	if e.pool, err = NewPool(dev, e.reg, formats); err != nil {
		return nil, err
	}
	sw, sh := dev.SurfaceSize()
	e.grids = computeGrids(e.cfg.SimResolution, e.cfg.DyeResolution, e.cfg.MaxDyeNoLinear, formats.Linear, sw, sh)
	if err := e.allocate(); err != nil {
		e.Release()
		return nil, err
	}
	if e.stepper, err = NewStepper(e.reg, formats, &e.fields, e.perf); err != nil {
		e.Release()
		return nil, err
	}
	splat, err := e.reg.Material(shaders.Splat, e.packedKeywords()...)
	if err != nil {
		e.Release()
		return nil, err
	}
	e.splatter = &Splatter{mat: splat, velocity: e.fields.Velocity, dye: e.fields.Dye}
	if e.compositor, err = NewCompositor(dev, e.reg, formats); err != nil {
		e.Release()
		return nil, err
	}

	e.pointers.Get(PrimaryPointer).Color = e.palette.Next(e.activePalette())
	return e, nil
}

func (e *Engine) packedKeywords() []string {
	if e.formats.Packed {
		return []string{shaders.KeywordPacked}
	}
	return nil
}

// allocate creates every field at the current grid sizes.
func (e *Engine) allocate() error {
	g := e.grids
	filter := e.formats.Filter()
	var err error
	f := &e.fields
	if f.Dye, err = e.pool.CreateDoubleField(g.dyeW, g.dyeH, e.formats.Color, filter); err != nil {
		return err
	}
	if f.Velocity, err = e.pool.CreateDoubleField(g.simW, g.simH, e.formats.Vector, filter); err != nil {
		return err
	}
	if f.Divergence, err = e.pool.CreateField(g.simW, g.simH, e.formats.Scalar, gpu.Nearest); err != nil {
		return err
	}
	if f.Curl, err = e.pool.CreateField(g.simW, g.simH, e.formats.Scalar, gpu.Nearest); err != nil {
		return err
	}
	if f.Pressure, err = e.pool.CreateDoubleField(g.simW, g.simH, e.formats.Scalar, gpu.Nearest); err != nil {
		return err
	}
	Logger().Info("fields_allocated", "sim_w", g.simW, "sim_h", g.simH, "dye_w", g.dyeW, "dye_h", g.dyeH)
	return nil
}

// resize reallocates fields whose grid size changed. Velocity and dye keep
// their content; pressure and the scratch fields start over.
func (e *Engine) resize(g gridSizes) error {
	f := &e.fields
	pool := e.pool
	if err := pool.ResizeDouble(f.Dye, g.dyeW, g.dyeH); err != nil {
		return fmt.Errorf("resizing dye: %w", err)
	}
	if err := pool.ResizeDouble(f.Velocity, g.simW, g.simH); err != nil {
		return fmt.Errorf("resizing velocity: %w", err)
	}
	var err error
	if f.Divergence, err = pool.Resize(f.Divergence, g.simW, g.simH); err != nil {
		return fmt.Errorf("resizing divergence: %w", err)
	}
	if f.Curl, err = pool.Resize(f.Curl, g.simW, g.simH); err != nil {
		return fmt.Errorf("resizing curl: %w", err)
	}
	if f.Pressure.Width() != g.simW || f.Pressure.Height() != g.simH {
		p, err := pool.CreateDoubleField(g.simW, g.simH, e.formats.Scalar, gpu.Nearest)
		if err != nil {
			return fmt.Errorf("resizing pressure: %w", err)
		}
		f.Pressure.release()
		f.Pressure = p
	}
	Logger().Info("fields_resized", "sim_w", g.simW, "sim_h", g.simH, "dye_w", g.dyeW, "dye_h", g.dyeH)
	e.grids = g
	e.metrics.Resized(g.simW, g.simH, g.dyeW, g.dyeH)
	if e.collector != nil {
		e.collector.RecordResize()
	}
	return nil
}

// SetConfig schedules a configuration for the start of the next tick.
func (e *Engine) SetConfig(cfg config.FluidConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.ctl.Lock()
	e.pending = &cfg
	e.ctl.Unlock()
	return nil
}

// Config returns the configuration the last tick ran with.
func (e *Engine) Config() config.FluidConfig { return e.cfg }

// SetTheme selects the light or dark palette.
func (e *Engine) SetTheme(mode string) {
	e.ctl.Lock()
	e.theme = mode
	e.ctl.Unlock()
}

// Theme returns the active theme mode.
func (e *Engine) Theme() string {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	return e.theme
}

func (e *Engine) activePalette() config.PaletteConfig {
	return e.themes.Palette(e.Theme())
}

// SetViewport records the host's client size and pixel ratio. The surface
// and fields follow at the start of the next tick.
func (e *Engine) SetViewport(clientW, clientH int, ratio float64) {
	if ratio <= 0 {
		ratio = 1
	}
	e.ctl.Lock()
	e.view = viewport{clientW: clientW, clientH: clientH, ratio: ratio}
	e.viewSet = true
	e.ctl.Unlock()
}

// PointerDown queues a press at client pixel coordinates.
func (e *Engine) PointerDown(id int, x, y float64) {
	e.queue.Push(Event{Kind: PointerDown, ID: id, X: x, Y: y})
}

// PointerMove queues motion at client pixel coordinates.
func (e *Engine) PointerMove(id int, x, y float64) {
	e.queue.Push(Event{Kind: PointerMove, ID: id, X: x, Y: y})
}

// PointerUp queues a release.
func (e *Engine) PointerUp(id int) {
	e.queue.Push(Event{Kind: PointerUp, ID: id})
}

// Stop makes the next Frame return ErrStopped.
func (e *Engine) Stop() { e.stopped.Store(true) }

// Stopped reports whether the engine has stopped.
func (e *Engine) Stopped() bool { return e.stopped.Load() }

// Frame runs one tick: resize, colors, input, splats, step, composite.
func (e *Engine) Frame(now time.Time) error {
	if e.stopped.Load() {
		return ErrStopped
	}
	if e.dev.ContextLost() {
		return e.lose()
	}
	err := e.tick(now)
	if errors.Is(err, gpu.ErrContextLost) {
		return e.lose()
	}
	return err
}

func (e *Engine) tick(now time.Time) error {
	start := time.Now()
	e.perf.StartTick()
	defer e.perf.EndTick()
	e.perf.RecordFrame()

	e.ctl.Lock()
	if e.pending != nil {
		e.cfg = *e.pending
		e.pending = nil
	}
	view, viewSet := e.view, e.viewSet
	e.ctl.Unlock()
	cfg := e.cfg
	pal := e.activePalette()

	dt := 0.0
	if !e.last.IsZero() {
		dt = ClampDT(now.Sub(e.last).Seconds(), cfg.MaxDT)
	}
	e.last = now

	e.perf.StartPhase(telemetry.PhaseResize)
	if viewSet {
		e.dev.ResizeSurface(SurfacePixels(view.clientW, view.clientH, view.ratio))
	} else {
		view.ratio = 1
	}
	sw, sh := e.dev.SurfaceSize()
	if sw <= 0 || sh <= 0 {
		// Minimised window. Events stay queued until the surface returns.
		return nil
	}
	if g := computeGrids(cfg.SimResolution, cfg.DyeResolution, cfg.MaxDyeNoLinear, e.formats.Linear, sw, sh); g != e.grids {
		if err := e.resize(g); err != nil {
			return err
		}
	}
	aspect := float64(sw) / float64(sh)

	e.updateColors(cfg, pal, dt)
	e.bg.Advance(dt)

	e.perf.StartPhase(telemetry.PhaseInput)
	before := e.splatter.Count()
	if err := e.applyInputs(cfg, pal, view.ratio, sw, sh, aspect); err != nil {
		return err
	}

	e.perf.StartPhase(telemetry.PhaseSplats)
	for _, p := range e.pointers.All() {
		if !p.Moved {
			continue
		}
		p.Moved = false
		if err := e.splatter.splatPointer(p, cfg, aspect); err != nil {
			return err
		}
	}
	splats := e.splatter.Count() - before
	e.splats += splats

	if err := e.stepper.Step(cfg, dt); err != nil {
		return err
	}

	e.perf.StartPhase(telemetry.PhaseDisplay)
	if err := e.compositor.Draw(e.fields.Dye, e.bg.Color(pal), cfg.Shading); err != nil {
		return err
	}

	e.frame++
	e.metrics.ObserveFrame(time.Since(start), splats)
	if e.collector != nil {
		e.collector.RecordStep(dt)
		for range splats {
			e.collector.RecordSplat()
		}
		if e.collector.ShouldFlush(e.frame) {
			return e.flushStats()
		}
	}
	return nil
}

// updateColors regenerates pointer colors on the color timer.
func (e *Engine) updateColors(cfg config.FluidConfig, pal config.PaletteConfig, dt float64) {
	if !cfg.Colorful {
		return
	}
	e.colorTimer += dt * cfg.ColorUpdateSpeed
	if e.colorTimer < 1 {
		return
	}
	e.colorTimer = math.Mod(e.colorTimer, 1)
	for _, p := range e.pointers.All() {
		p.Color = e.palette.Next(pal)
	}
}

// applyInputs drains the queue in arrival order. Client pixels map to
// texture space with y flipped.
func (e *Engine) applyInputs(cfg config.FluidConfig, pal config.PaletteConfig, ratio float64, sw, sh int, aspect float64) error {
	e.events = e.queue.Drain(e.events[:0])
	for _, ev := range e.events {
		e.metrics.CountEvent(ev.Kind.String())
		if e.collector != nil {
			e.collector.RecordEvent()
		}
		x := ev.X * ratio / float64(sw)
		y := 1 - ev.Y*ratio/float64(sh)
		switch ev.Kind {
		case PointerDown:
			p := e.pointers.Down(ev.ID, x, y, e.palette.Next(pal))
			if err := e.splatter.clickSplat(p, cfg, pal, e.palette, aspect); err != nil {
				return err
			}
		case PointerMove:
			if !e.pointers.Move(ev.ID, x, y, aspect) {
				Logger().Debug("pointer_unknown", "id", ev.ID, "kind", ev.Kind.String())
			}
		case PointerUp:
			if !e.pointers.Up(ev.ID) {
				Logger().Debug("pointer_unknown", "id", ev.ID, "kind", ev.Kind.String())
			}
		}
	}
	return nil
}

func (e *Engine) flushStats() error {
	packed := e.formats.Packed
	vel, err := FieldNorm(e.dev, e.fields.Velocity.Read(), 2, packed)
	if err != nil {
		return err
	}
	dye, err := FieldNorm(e.dev, e.fields.Dye.Read(), 3, packed)
	if err != nil {
		return err
	}
	g := e.grids
	e.stats = e.collector.Flush(e.frame, e.pointers.Len(), vel, dye, telemetry.Grids{
		SimWidth:  g.simW,
		SimHeight: g.simH,
		DyeWidth:  g.dyeW,
		DyeHeight: g.dyeH,
		Format:    e.formats.Color.String(),
	})
	e.metrics.ObserveStats(e.stats)
	if e.onStats != nil {
		e.onStats(e.stats)
	}
	return nil
}

// lose stops the engine after a context loss, logging it once.
func (e *Engine) lose() error {
	e.stopped.Store(true)
	e.lostOnce.Do(func() {
		Logger().Error("context_lost", "frame", e.frame)
	})
	return ErrContextLost
}

// Run calls Frame for every tick until ctx ends, the ticks channel closes,
// the engine stops or a frame fails. A stop is not an error.
func (e *Engine) Run(ctx context.Context, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			if err := e.Frame(now); err != nil {
				if errors.Is(err, ErrStopped) {
					return nil
				}
				return err
			}
		}
	}
}

// Release frees every field and program.
func (e *Engine) Release() {
	e.fields.release()
	e.reg.Release()
}

// Device returns the device the engine draws through.
func (e *Engine) Device() gpu.Device { return e.dev }

// Formats returns the negotiated field formats.
func (e *Engine) Formats() Formats { return e.formats }

// Velocity returns the velocity field.
func (e *Engine) Velocity() *DoubleField { return e.fields.Velocity }

// Dye returns the dye field.
func (e *Engine) Dye() *DoubleField { return e.fields.Dye }

// Pressure returns the pressure field.
func (e *Engine) Pressure() *DoubleField { return e.fields.Pressure }

// Pointers returns the pointer table. Only the frame goroutine may use it.
func (e *Engine) Pointers() *Pointers { return e.pointers }

// Registry returns the program registry.
func (e *Engine) Registry() *Registry { return e.reg }

// Frames returns the number of completed ticks.
func (e *Engine) Frames() int64 { return e.frame }

// Splats returns the number of splats applied so far.
func (e *Engine) Splats() int { return e.splats }

// Stats returns the last flushed stats window.
func (e *Engine) Stats() telemetry.WindowStats { return e.stats }

// QueueLen returns the number of events waiting for the next tick.
func (e *Engine) QueueLen() int { return e.queue.Len() }
