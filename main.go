package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/fluidfx/app"
	"github.com/pthm-cable/fluidfx/config"
	"github.com/pthm-cable/fluidfx/fluid"
	"github.com/pthm-cable/fluidfx/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	watch := flag.Bool("watch", false, "Reload the config file when it changes")
	headless := flag.Bool("headless", false, "Run on the software device without a window")
	realtime := flag.Bool("realtime", false, "Pace headless runs at the target frame rate")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshot := flag.String("snapshot", "", "Write the final frame to this PNG path")
	metricsAddr := flag.String("metrics-addr", "", "Serve prometheus metrics on this address (overrides config)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	maxFrames := flag.Int("frames", 0, "Stop after N frames (0 = unlimited)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	fluid.SetLogger(logger.With("component", "fluid"))

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	metrics := telemetry.NewMetrics()
	addr := cfg.Metrics.Addr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		go serveMetrics(ctx, addr, metrics)
	}

	opts := app.Options{
		Seed:         rngSeed,
		LogStats:     *logStats,
		OutputDir:    *outputDir,
		SnapshotPath: *snapshot,
		MaxFrames:    *maxFrames,
		Realtime:     *realtime,
		Metrics:      metrics,
	}

	if *watch && *configPath != "" {
		w, err := config.NewWatcher(*configPath, config.DefaultDebounce)
		if err != nil {
			slog.Error("failed to watch config", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
		opts.Updates = w.Updates()
	}

	a := app.New(cfg, opts)
	var err error
	if *headless {
		err = a.RunHeadless(ctx)
	} else {
		err = a.RunWindow(ctx)
	}
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func serveMetrics(ctx context.Context, addr string, m *telemetry.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	slog.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server failed", "error", err)
	}
}
