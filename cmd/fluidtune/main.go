// Fluid tuning tool - live fluid with sliders for the simulation
// parameters. Edits apply on the next frame and can be written out as YAML.
//
// Usage: go run ./cmd/fluidtune -config config.yaml -out tuned.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluidfx/config"
	"github.com/pthm-cable/fluidfx/fluid"
	"github.com/pthm-cable/fluidfx/gpu/rlgpu"
)

const (
	windowWidth  = 1280
	windowHeight = 720
	panelWidth   = 340
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "fluidtune.yaml", "Where Save writes the tuned config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	defaults := cfg.Fluid

	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(windowWidth, windowHeight, "Fluid Tuning")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	engine, err := fluid.New(rlgpu.New(), fluid.Options{
		Config:     cfg.Fluid,
		Theme:      cfg.Theme,
		Background: cfg.Background,
		Seed:       uint64(time.Now().UnixNano()),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Release()

	params := cfg.Fluid
	status := ""
	for !rl.WindowShouldClose() {
		sw, sh := rl.GetScreenWidth(), rl.GetScreenHeight()
		engine.SetViewport(sw, sh, 1)
		panelX := float32(sw - panelWidth)

		// Pointer input outside the panel
		pos := rl.GetMousePosition()
		if pos.X < panelX {
			x, y := float64(pos.X), float64(pos.Y)
			if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
				engine.PointerDown(fluid.PrimaryPointer, x, y)
			} else {
				engine.PointerMove(fluid.PrimaryPointer, x, y)
			}
		}
		if rl.IsMouseButtonReleased(rl.MouseButtonLeft) {
			engine.PointerUp(fluid.PrimaryPointer)
		}

		rl.BeginDrawing()
		if err := engine.Frame(time.Now()); err != nil {
			rl.EndDrawing()
			slog.Error("frame failed", "error", err)
			return
		}

		rl.DrawRectangle(int32(panelX), 0, panelWidth, int32(sh), rl.Fade(rl.RayWhite, 0.9))
		panelY := float32(15)
		x := panelX + 15
		rl.DrawText("Fluid Parameters", int32(x), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		changed := false
		for _, s := range sliders {
			rl.DrawText(s.label, int32(x), int32(panelY), 14, rl.Gray)
			panelY += 18
			v := gui.SliderBar(
				rl.Rectangle{X: x, Y: panelY, Width: panelWidth - 100, Height: 20},
				"", "",
				float32(s.get(&params)), s.min, s.max,
			)
			rl.DrawText(s.text(&params), int32(x+panelWidth-90), int32(panelY+2), 16, rl.DarkGray)
			if s.apply(&params, v) {
				changed = true
			}
			panelY += 32
		}

		shading := gui.CheckBox(rl.Rectangle{X: x, Y: panelY, Width: 20, Height: 20}, "Shading", params.Shading)
		colorful := gui.CheckBox(rl.Rectangle{X: x + 140, Y: panelY, Width: 20, Height: 20}, "Colorful", params.Colorful)
		if shading != params.Shading || colorful != params.Colorful {
			params.Shading, params.Colorful = shading, colorful
			changed = true
		}
		panelY += 40

		if gui.Button(rl.Rectangle{X: x, Y: panelY, Width: 120, Height: 30}, "Save YAML") {
			cfg.Fluid = params
			if err := cfg.WriteYAML(*outPath); err != nil {
				status = err.Error()
			} else {
				status = "wrote " + *outPath
			}
		}
		if gui.Button(rl.Rectangle{X: x + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaults
			changed = true
		}
		panelY += 45

		theme := engine.Theme()
		if gui.Button(rl.Rectangle{X: x, Y: panelY, Width: 250, Height: 30}, "Theme: "+theme) {
			if theme == config.ThemeDark {
				engine.SetTheme(config.ThemeLight)
			} else {
				engine.SetTheme(config.ThemeDark)
			}
		}
		panelY += 45

		if status != "" {
			rl.DrawText(status, int32(x), int32(panelY), 14, rl.DarkGray)
		}
		rl.DrawText(fmt.Sprintf("FPS: %d", rl.GetFPS()), int32(x), int32(sh-25), 16, rl.DarkGray)
		rl.EndDrawing()

		if changed {
			if err := engine.SetConfig(params); err != nil {
				status = err.Error()
				params = engine.Config()
			}
		}
	}
}
