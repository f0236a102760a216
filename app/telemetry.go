package app

import (
	"log/slog"

	"github.com/pthm-cable/fluidfx/telemetry"
)

// flushTelemetry receives each stats window from the engine.
func (a *App) flushTelemetry(stats telemetry.WindowStats) {
	perfStats := a.perf.Stats()
	a.opts.Metrics.ObservePerf(perfStats)

	if a.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := a.output.WriteStats(stats); err != nil {
		slog.Error("failed to write stats", "error", err)
	}
	if err := a.output.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}
