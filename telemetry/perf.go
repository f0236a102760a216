package telemetry

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Phase names for one frame of the fluid pipeline, in execution order.
const (
	PhaseResize         = "resize"
	PhaseInput          = "input"
	PhaseSplats         = "splats"
	PhaseCurl           = "curl"
	PhaseVorticity      = "vorticity"
	PhaseDivergence     = "divergence"
	PhasePressureInit   = "pressure_init"
	PhasePressure       = "pressure"
	PhaseGradient       = "gradient"
	PhaseAdvectVelocity = "advect_velocity"
	PhaseAdvectDye      = "advect_dye"
	PhaseDisplay        = "display"
)

// Phases lists every phase in execution order.
var Phases = []string{
	PhaseResize, PhaseInput, PhaseSplats,
	PhaseCurl, PhaseVorticity, PhaseDivergence,
	PhasePressureInit, PhasePressure, PhaseGradient,
	PhaseAdvectVelocity, PhaseAdvectDye, PhaseDisplay,
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks per-frame phase timings over a rolling window.
// A nil collector ignores every call.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string

	// Frame timing (for graphics mode)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of ticks to average over (e.g., 60 for 1 second at 60fps).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new frame.
func (p *PerfCollector) StartTick() {
	if p == nil {
		return
	}
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase closes the running phase and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	if p == nil {
		return
	}
	p.phaseStart = p.closePhase(time.Now())
	p.lastPhase = phase
}

// EndTick closes the running phase and stores the tick in the ring.
func (p *PerfCollector) EndTick() {
	if p == nil {
		return
	}
	now := p.closePhase(time.Now())
	p.samples[p.writeIndex] = PerfSample{TickDuration: now.Sub(p.tickStart), Phases: p.currentPhases}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	p.sampleCount = min(p.sampleCount+1, p.windowSize)
	p.lastPhase = ""
}

func (p *PerfCollector) closePhase(now time.Time) time.Time {
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	return now
}

// RecordFrame records frame timing for graphics mode.
func (p *PerfCollector) RecordFrame() {
	if p == nil {
		return
	}
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total tick time
	PhasePct map[string]float64

	// Throughput
	TicksPerSecond float64

	// Frame timing (graphics mode)
	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{PhaseAvg: map[string]time.Duration{}, PhasePct: map[string]float64{}}
	if p == nil {
		return out
	}
	out.FrameDuration = p.frameDuration
	if p.frameDuration > 0 {
		out.FPS = float64(time.Second) / float64(p.frameDuration)
	}
	n := time.Duration(p.sampleCount)
	if n == 0 {
		return out
	}

	var total time.Duration
	sums := make(map[string]time.Duration)
	for i, s := range p.samples[:p.sampleCount] {
		total += s.TickDuration
		if i == 0 {
			out.MinTickDuration, out.MaxTickDuration = s.TickDuration, s.TickDuration
		}
		out.MinTickDuration = min(out.MinTickDuration, s.TickDuration)
		out.MaxTickDuration = max(out.MaxTickDuration, s.TickDuration)
		for phase, d := range s.Phases {
			sums[phase] += d
		}
	}
	out.AvgTickDuration = total / n
	for phase, sum := range sums {
		out.PhaseAvg[phase] = sum / n
	}
	if out.AvgTickDuration > 0 {
		out.TicksPerSecond = float64(time.Second) / float64(out.AvgTickDuration)
		for phase, avg := range out.PhaseAvg {
			out.PhasePct[phase] = float64(avg) / float64(out.AvgTickDuration) * 100
		}
	}
	return out
}

// attrs flattens the stats for logging. Pipeline phases come in execution
// order; phases under 0.1% of the tick are left out.
func (s PerfStats) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", math.Round(s.TicksPerSecond)),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", math.Round(s.FPS)))
	}
	for _, phase := range Phases {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", math.Round(pct*10)/10))
		}
	}
	return attrs
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	slog.LogAttrs(context.Background(), slog.LevelInfo, "perf", s.attrs()...)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	return slog.GroupValue(s.attrs()...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd         int64   `csv:"window_end"`
	AvgTickUS         int64   `csv:"avg_tick_us"`
	MinTickUS         int64   `csv:"min_tick_us"`
	MaxTickUS         int64   `csv:"max_tick_us"`
	TicksPerSec       float64 `csv:"ticks_per_sec"`
	FPS               float64 `csv:"fps"`
	ResizePct         float64 `csv:"resize_pct"`
	InputPct          float64 `csv:"input_pct"`
	SplatsPct         float64 `csv:"splats_pct"`
	CurlPct           float64 `csv:"curl_pct"`
	VorticityPct      float64 `csv:"vorticity_pct"`
	DivergencePct     float64 `csv:"divergence_pct"`
	PressureInitPct   float64 `csv:"pressure_init_pct"`
	PressurePct       float64 `csv:"pressure_pct"`
	GradientPct       float64 `csv:"gradient_pct"`
	AdvectVelocityPct float64 `csv:"advect_velocity_pct"`
	AdvectDyePct      float64 `csv:"advect_dye_pct"`
	DisplayPct        float64 `csv:"display_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:         windowEnd,
		AvgTickUS:         s.AvgTickDuration.Microseconds(),
		MinTickUS:         s.MinTickDuration.Microseconds(),
		MaxTickUS:         s.MaxTickDuration.Microseconds(),
		TicksPerSec:       s.TicksPerSecond,
		FPS:               s.FPS,
		ResizePct:         s.PhasePct[PhaseResize],
		InputPct:          s.PhasePct[PhaseInput],
		SplatsPct:         s.PhasePct[PhaseSplats],
		CurlPct:           s.PhasePct[PhaseCurl],
		VorticityPct:      s.PhasePct[PhaseVorticity],
		DivergencePct:     s.PhasePct[PhaseDivergence],
		PressureInitPct:   s.PhasePct[PhasePressureInit],
		PressurePct:       s.PhasePct[PhasePressure],
		GradientPct:       s.PhasePct[PhaseGradient],
		AdvectVelocityPct: s.PhasePct[PhaseAdvectVelocity],
		AdvectDyePct:      s.PhasePct[PhaseAdvectDye],
		DisplayPct:        s.PhasePct[PhaseDisplay],
	}
}
