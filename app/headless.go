package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pthm-cable/fluidfx/fluid"
)

// RunHeadless runs the effect on the software device with scripted strokes.
// Without Realtime every frame advances a synthetic clock by one frame at
// the target rate, so a run is reproducible for a given seed.
func (a *App) RunHeadless(ctx context.Context) error {
	if err := a.start(NewDevice(a.cfg, true)); err != nil {
		return err
	}
	w, h := a.cfg.Screen.Width, a.cfg.Screen.Height
	a.engine.SetViewport(w, h, 1)
	script := NewScript(w, h, a.opts.Seed)

	slog.Info("starting headless run",
		"width", w,
		"height", h,
		"max_frames", a.opts.MaxFrames,
		"realtime", a.opts.Realtime,
	)

	var err error
	if a.opts.Realtime {
		err = a.runRealtime(ctx, script)
	} else {
		err = a.runStepped(ctx, script)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, a.finish())
}

func (a *App) frameStep() time.Duration {
	fps := a.cfg.Screen.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	return time.Second / time.Duration(fps)
}

func (a *App) runStepped(ctx context.Context, script *Script) error {
	now := time.Unix(0, 0)
	step := a.frameStep()
	for !a.done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.applyUpdates()
		script.Feed(a.engine, int(a.engine.Frames()))
		if err := a.engine.Frame(now); err != nil {
			if errors.Is(err, fluid.ErrStopped) {
				return nil
			}
			return err
		}
		now = now.Add(step)
	}
	slog.Info("max frames reached", "frame", a.engine.Frames())
	return nil
}

// runRealtime feeds wall-clock ticks to Engine.Run. Script events and
// config reloads are queued from the tick goroutine and land on the next
// drained frame.
func (a *App) runRealtime(ctx context.Context, script *Script) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(a.frameStep())
	defer ticker.Stop()
	ticks := make(chan time.Time)
	go func() {
		defer close(ticks)
		for n := 0; a.opts.MaxFrames <= 0 || n < a.opts.MaxFrames; n++ {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				a.applyUpdates()
				script.Feed(a.engine, n)
				select {
				case ticks <- now:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return a.engine.Run(ctx, ticks)
}
