// Package app hosts the fluid engine: a raylib window fed by mouse and
// touch input, or a headless run on the software device driven by
// scripted strokes.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/fluidfx/config"
	"github.com/pthm-cable/fluidfx/fluid"
	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/gpu/rlgpu"
	"github.com/pthm-cable/fluidfx/gpu/soft"
	"github.com/pthm-cable/fluidfx/telemetry"
)

// Options configures a run.
type Options struct {
	Seed      uint64
	LogStats  bool
	OutputDir string
	// SnapshotPath receives a PNG of the surface when the run ends.
	SnapshotPath string
	// MaxFrames stops the run after that many frames. Zero runs until the
	// window closes or the context ends.
	MaxFrames int
	// Realtime paces a headless run with a wall-clock ticker instead of
	// stepping as fast as possible.
	Realtime bool
	// Updates delivers reloaded configs, usually from a config.Watcher.
	Updates <-chan *config.Config
	Metrics *telemetry.Metrics
}

// App ties the engine to a device, its input source and the telemetry sinks.
type App struct {
	cfg  *config.Config
	opts Options

	dev     gpu.Device
	engine  *fluid.Engine
	perf    *telemetry.PerfCollector
	output  *telemetry.OutputManager
	present *presenter

	input   mouseState
	touches touchTracker
	hud     bool
}

// New prepares an app. Nothing touches the device until a Run method.
func New(cfg *config.Config, opts Options) *App {
	return &App{cfg: cfg, opts: opts}
}

// NewDevice picks the device backend. Headless runs always use the
// software device.
func NewDevice(cfg *config.Config, headless bool) gpu.Device {
	if headless || cfg.GPU.Backend == config.BackendSoft {
		return soft.New(soft.Options{
			Width:         cfg.Screen.Width,
			Height:        cfg.Screen.Height,
			NoHalfFloat:   !cfg.GPU.SoftHalfFloat,
			NoLinearFloat: !cfg.GPU.SoftLinearFloat,
			Workers:       cfg.GPU.SoftWorkers,
		})
	}
	return rlgpu.New()
}

// start creates the telemetry sinks and the engine on dev.
func (a *App) start(dev gpu.Device) error {
	output, err := telemetry.NewOutputManager(a.opts.OutputDir)
	if err != nil {
		return err
	}
	if err := output.WriteConfig(a.cfg); err != nil {
		output.Close()
		return fmt.Errorf("writing config snapshot: %w", err)
	}

	a.dev = dev
	a.output = output
	a.perf = telemetry.NewPerfCollector(a.cfg.Telemetry.PerfCollectorWindow)
	engine, err := fluid.New(dev, fluid.Options{
		Config:      a.cfg.Fluid,
		Theme:       a.cfg.Theme,
		Background:  a.cfg.Background,
		Seed:        a.opts.Seed,
		StatsWindow: a.cfg.Derived.StatsTicks,
		OnStats:     a.flushTelemetry,
		Perf:        a.perf,
		Metrics:     a.opts.Metrics,
	})
	if err != nil {
		output.Close()
		return fmt.Errorf("creating engine: %w", err)
	}
	a.engine = engine
	a.touches = newTouchTracker()

	f := engine.Formats()
	slog.Info("engine_started",
		"device", fmt.Sprintf("%T", dev),
		"format", f.Color.String(),
		"packed", f.Packed,
		"linear", f.Linear,
		"seed", a.opts.Seed,
	)
	return nil
}

// applyUpdates hands every pending reloaded config to the engine.
func (a *App) applyUpdates() {
	for {
		select {
		case cfg, ok := <-a.opts.Updates:
			if !ok {
				a.opts.Updates = nil
				return
			}
			if err := a.engine.SetConfig(cfg.Fluid); err != nil {
				slog.Warn("config_rejected", "error", err)
				continue
			}
			a.engine.SetTheme(cfg.Theme.Mode)
			config.Set(cfg)
			a.cfg = cfg
			slog.Info("config_reloaded", "theme", cfg.Theme.Mode)
		default:
			return
		}
	}
}

// done reports whether the frame limit is reached.
func (a *App) done() bool {
	return a.opts.MaxFrames > 0 && a.engine.Frames() >= int64(a.opts.MaxFrames)
}

// finish writes the snapshot and closes the outputs.
func (a *App) finish() error {
	var errs []error
	if a.opts.SnapshotPath != "" && a.engine != nil {
		if err := SaveSnapshot(a.dev, a.opts.SnapshotPath); err != nil {
			errs = append(errs, err)
		} else {
			slog.Info("snapshot_saved", "path", a.opts.SnapshotPath, "frame", a.engine.Frames())
		}
	}
	if err := a.output.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.present != nil {
		a.present.release()
		a.present = nil
	}
	if a.engine != nil {
		a.engine.Release()
	}
	return errors.Join(errs...)
}

// Engine returns the running engine, or nil before a Run method starts it.
func (a *App) Engine() *fluid.Engine { return a.engine }
