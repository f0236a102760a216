package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of frames.
type WindowStats struct {
	WindowStartFrame int64   `csv:"-"`
	WindowEndFrame   int64   `csv:"window_end"`
	SimTimeSec       float64 `csv:"sim_time"`

	// Activity during the window
	Events   int `csv:"events"`
	Splats   int `csv:"splats"`
	Pointers int `csv:"pointers"`
	Resizes  int `csv:"resizes"`

	// Step sizes in seconds
	DTMean float64 `csv:"dt_mean"`
	DTP50  float64 `csv:"dt_p50"`
	DTP90  float64 `csv:"dt_p90"`

	// Field magnitudes sampled at window end
	VelocityNorm float64 `csv:"velocity_l2"`
	DyeNorm      float64 `csv:"dye_l2"`

	// Grid configuration at window end
	SimWidth  int    `csv:"sim_w"`
	SimHeight int    `csv:"sim_h"`
	DyeWidth  int    `csv:"dye_w"`
	DyeHeight int    `csv:"dye_h"`
	Format    string `csv:"format"`

	// Failures
	SkippedDraws    int `csv:"skipped_draws"`
	CompileFailures int `csv:"compile_failures"`
}

// DTStats returns the mean, median and 90th percentile of step sizes.
func DTStats(dts []float64) (mean, p50, p90 float64) {
	if len(dts) == 0 {
		return 0, 0, 0
	}
	sorted := slices.Clone(dts)
	slices.Sort(sorted)
	mean = stat.Mean(sorted, nil)
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return mean, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartFrame),
		slog.Int64("window_end", s.WindowEndFrame),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("events", s.Events),
		slog.Int("splats", s.Splats),
		slog.Int("pointers", s.Pointers),
		slog.Int("resizes", s.Resizes),
		slog.Float64("dt_mean", s.DTMean),
		slog.Float64("dt_p90", s.DTP90),
		slog.Float64("velocity_l2", s.VelocityNorm),
		slog.Float64("dye_l2", s.DyeNorm),
		slog.String("format", s.Format),
		slog.Int("skipped_draws", s.SkippedDraws),
		slog.Int("compile_failures", s.CompileFailures),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndFrame,
		"sim_time", s.SimTimeSec,
		"events", s.Events,
		"splats", s.Splats,
		"pointers", s.Pointers,
		"dt_mean", s.DTMean,
		"velocity_l2", s.VelocityNorm,
		"dye_l2", s.DyeNorm,
		"sim", [2]int{s.SimWidth, s.SimHeight},
		"dye", [2]int{s.DyeWidth, s.DyeHeight},
		"format", s.Format,
		"skipped_draws", s.SkippedDraws,
	)
}
