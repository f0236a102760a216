// Shader debug tool - compiles every program variant on the GPU, reports
// failures, then renders a few scripted strokes to a PNG for inspection.
//
// Usage: go run ./cmd/shaderdebug -out debug.png -frames 60
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluidfx/app"
	"github.com/pthm-cable/fluidfx/config"
	"github.com/pthm-cable/fluidfx/fluid"
	"github.com/pthm-cable/fluidfx/gpu/rlgpu"
	"github.com/pthm-cable/fluidfx/shaders"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "debug.png", "Output PNG path")
	width := flag.Int("width", 512, "Render width")
	height := flag.Int("height", 512, "Render height")
	frames := flag.Int("frames", 60, "Frames to simulate before capture")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize raylib with hidden window
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(int32(*width), int32(*height), "Shader Debug")
	defer rl.CloseWindow()

	dev := rlgpu.New()
	failures := compileAll(fluid.NewRegistry(dev))
	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d variant(s) failed to compile\n", failures)
	}

	engine, err := fluid.New(dev, fluid.Options{
		Config:     cfg.Fluid,
		Theme:      cfg.Theme,
		Background: cfg.Background,
		Seed:       1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Release()
	engine.SetViewport(*width, *height, 1)

	script := app.NewScript(*width, *height, 1)
	now := time.Unix(0, 0)
	step := time.Second / 60
	for i := 0; i < *frames; i++ {
		script.Feed(engine, i)
		rl.BeginDrawing()
		err := engine.Frame(now)
		if err == nil && i == *frames-1 {
			err = app.SaveSnapshot(dev, *outPath)
		}
		rl.EndDrawing()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Frame %d: %v\n", i, err)
			os.Exit(1)
		}
		now = now.Add(step)
	}

	fmt.Printf("Rendered %d frames to: %s (%dx%d, %d splats)\n", *frames, *outPath, *width, *height, engine.Splats())
	if failures > 0 {
		os.Exit(1)
	}
}

// compileAll builds every keyword variant of every program and prints one
// line per variant.
func compileAll(reg *fluid.Registry) int {
	defer reg.Release()
	failures := 0
	for _, name := range shaders.Names() {
		m, err := reg.Material(name)
		if err != nil {
			fmt.Printf("FAIL %-12s %v\n", name, err)
			failures++
			continue
		}
		for _, kw := range shaders.Variants(name) {
			m.SetKeywords(kw...)
			label := strings.Join(kw, ",")
			if label == "" {
				label = "-"
			}
			if !m.Usable() {
				fmt.Printf("FAIL %-12s [%s] %v\n", name, label, m.Err())
				failures++
				continue
			}
			fmt.Printf("ok   %-12s [%s]\n", name, label)
		}
	}
	return failures
}
