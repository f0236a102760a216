package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluidfx/config"
	"github.com/pthm-cable/fluidfx/fluid"
	"github.com/pthm-cable/fluidfx/gpu"
	"github.com/pthm-cable/fluidfx/gpu/soft"
)

// RunWindow opens a raylib window and runs one engine tick per display
// refresh until the window closes, ctx ends or the context is lost.
func (a *App) RunWindow(ctx context.Context) error {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagWindowHighdpi | rl.FlagVsyncHint)
	rl.InitWindow(int32(a.cfg.Screen.Width), int32(a.cfg.Screen.Height), a.cfg.Screen.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(a.cfg.Screen.TargetFPS))

	dev := NewDevice(a.cfg, false)
	if err := a.start(dev); err != nil {
		return err
	}
	if sd, ok := dev.(*soft.Device); ok {
		a.present = &presenter{dev: sd}
	}
	a.syncViewport()

	err := a.loop(ctx)
	return errors.Join(err, a.finish())
}

func (a *App) loop(ctx context.Context) error {
	for !rl.WindowShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		a.applyUpdates()
		a.handleInput()

		rl.BeginDrawing()
		err := a.engine.Frame(time.Now())
		if err == nil && a.present != nil {
			err = a.present.draw()
		}
		if a.hud {
			a.drawHUD()
		}
		rl.EndDrawing()

		switch {
		case errors.Is(err, fluid.ErrStopped):
			return nil
		case err != nil:
			return err
		case a.done():
			slog.Info("max frames reached", "frame", a.engine.Frames())
			return nil
		}
	}
	return nil
}

// handleInput processes keyboard, mouse and touch input.
func (a *App) handleInput() {
	if rl.IsWindowResized() {
		a.syncViewport()
	}

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
		a.syncViewport()
	}
	if rl.IsKeyPressed(rl.KeyF1) {
		a.hud = !a.hud
	}
	if rl.IsKeyPressed(rl.KeyT) {
		a.toggleTheme()
	}
	if rl.IsKeyPressed(rl.KeyH) {
		cfg := a.engine.Config()
		cfg.Shading = !cfg.Shading
		if err := a.engine.SetConfig(cfg); err != nil {
			slog.Warn("config_rejected", "error", err)
		}
	}

	if a.cfg.Input.Touch && rl.GetTouchPointCount() > 0 {
		n := int(rl.GetTouchPointCount())
		points := make([]touchPoint, 0, n)
		for i := 0; i < n; i++ {
			pos := rl.GetTouchPosition(int32(i))
			points = append(points, touchPoint{
				id: int(rl.GetTouchPointId(int32(i))),
				x:  float64(pos.X),
				y:  float64(pos.Y),
			})
		}
		a.touches.update(a.engine, points)
		return
	}
	a.touches.update(a.engine, nil)

	pos := rl.GetMousePosition()
	a.input.update(a.engine, float64(pos.X), float64(pos.Y),
		rl.IsMouseButtonPressed(rl.MouseButtonLeft),
		rl.IsMouseButtonReleased(rl.MouseButtonLeft))
}

func (a *App) toggleTheme() {
	mode := config.ThemeLight
	if a.engine.Theme() == config.ThemeLight {
		mode = config.ThemeDark
	}
	a.engine.SetTheme(mode)
	slog.Info("theme_changed", "mode", mode)
}

// syncViewport reports the client size and pixel ratio to the engine.
func (a *App) syncViewport() {
	ratio := float64(rl.GetWindowScaleDPI().X)
	if ratio <= 0 {
		ratio = 1
	}
	a.engine.SetViewport(rl.GetScreenWidth(), rl.GetScreenHeight(), ratio)
}

func (a *App) drawHUD() {
	f := a.engine.Formats()
	v := a.engine.Velocity()
	d := a.engine.Dye()
	lines := []string{
		fmt.Sprintf("FPS: %d  frame %d", rl.GetFPS(), a.engine.Frames()),
		fmt.Sprintf("sim %dx%d  dye %dx%d  %s", v.Width(), v.Height(), d.Width(), d.Height(), f.Color),
		fmt.Sprintf("theme %s  [T] theme  [H] shading  [F11] fullscreen", a.engine.Theme()),
	}
	for i, line := range lines {
		rl.DrawText(line, 10, int32(10+i*22), 20, rl.White)
	}
}

// presenter copies the software device's surface into a window texture.
type presenter struct {
	dev    *soft.Device
	tex    rl.Texture2D
	w, h   int
	colors []color.RGBA
	loaded bool
}

func (p *presenter) draw() error {
	w, h := p.dev.SurfaceSize()
	if !p.loaded || w != p.w || h != p.h {
		p.release()
		img := rl.GenImageColor(w, h, rl.Black)
		p.tex = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		rl.SetTextureFilter(p.tex, rl.FilterBilinear)
		p.w, p.h, p.loaded = w, h, true
		p.colors = make([]color.RGBA, w*h)
	}
	if err := p.fill(p.dev); err != nil {
		return err
	}
	rl.UpdateTexture(p.tex, p.colors)
	src := rl.Rectangle{Width: float32(w), Height: float32(h)}
	dst := rl.Rectangle{Width: float32(rl.GetScreenWidth()), Height: float32(rl.GetScreenHeight())}
	rl.DrawTexturePro(p.tex, src, dst, rl.Vector2{}, 0, rl.White)
	return nil
}

// fill converts the surface to top-down 8-bit rows.
func (p *presenter) fill(dev gpu.Device) error {
	img, err := SurfaceImage(dev)
	if err != nil {
		return err
	}
	for i := range p.colors {
		o := i * 4
		p.colors[i] = color.RGBA{R: img.Pix[o], G: img.Pix[o+1], B: img.Pix[o+2], A: 255}
	}
	return nil
}

func (p *presenter) release() {
	if p.loaded {
		rl.UnloadTexture(p.tex)
		p.loaded = false
	}
}
