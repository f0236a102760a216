package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics publishes frame and pipeline counters on a private registry.
// A nil *Metrics ignores every call.
type Metrics struct {
	registry *prometheus.Registry

	frameSeconds    prometheus.Histogram
	phaseSeconds    *prometheus.HistogramVec
	frames          prometheus.Counter
	splats          prometheus.Counter
	events          *prometheus.CounterVec
	compileFailures *prometheus.CounterVec
	skippedDraws    prometheus.Counter
	resizes         prometheus.Counter
	gridCells       *prometheus.GaugeVec
	fieldNorm       *prometheus.GaugeVec
	pointers        prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		frameSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fluid_frame_seconds",
			Help:    "Wall time of one frame of the fluid pipeline",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		phaseSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fluid_phase_seconds",
			Help:    "Average wall time per pipeline phase over a perf window",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}, []string{"phase"}),
		frames: f.NewCounter(prometheus.CounterOpts{
			Name: "fluid_frames_total",
			Help: "Frames rendered",
		}),
		splats: f.NewCounter(prometheus.CounterOpts{
			Name: "fluid_splats_total",
			Help: "Splats injected into the velocity and dye fields",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fluid_input_events_total",
			Help: "Pointer events drained from the input queue by kind",
		}, []string{"kind"}),
		compileFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fluid_program_compile_failures_total",
			Help: "Program variants that failed to compile",
		}, []string{"program"}),
		skippedDraws: f.NewCounter(prometheus.CounterOpts{
			Name: "fluid_skipped_draws_total",
			Help: "Draws skipped because their program is unusable",
		}),
		resizes: f.NewCounter(prometheus.CounterOpts{
			Name: "fluid_resizes_total",
			Help: "Field reallocations caused by surface size changes",
		}),
		gridCells: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fluid_grid_cells",
			Help: "Cell count of each field grid",
		}, []string{"grid"}),
		fieldNorm: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fluid_field_l2",
			Help: "L2 norm of a field at the last stats window",
		}, []string{"field"}),
		pointers: f.NewGauge(prometheus.GaugeOpts{
			Name: "fluid_pointers",
			Help: "Pointers known to the input injector",
		}),
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFrame records one completed frame.
func (m *Metrics) ObserveFrame(d time.Duration, splats int) {
	if m == nil {
		return
	}
	m.frames.Inc()
	m.frameSeconds.Observe(d.Seconds())
	m.splats.Add(float64(splats))
}

// ObservePerf records phase averages from a perf window.
func (m *Metrics) ObservePerf(s PerfStats) {
	if m == nil {
		return
	}
	for phase, avg := range s.PhaseAvg {
		m.phaseSeconds.WithLabelValues(phase).Observe(avg.Seconds())
	}
}

// CountEvent records a drained input event.
func (m *Metrics) CountEvent(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

// CompileFailed records a program variant that failed to compile.
func (m *Metrics) CompileFailed(program string) {
	if m == nil {
		return
	}
	m.compileFailures.WithLabelValues(program).Inc()
}

// DrawSkipped records a draw through an unusable program.
func (m *Metrics) DrawSkipped() {
	if m == nil {
		return
	}
	m.skippedDraws.Inc()
}

// Resized records a field reallocation and the new grid sizes.
func (m *Metrics) Resized(simW, simH, dyeW, dyeH int) {
	if m == nil {
		return
	}
	m.resizes.Inc()
	m.gridCells.WithLabelValues("sim").Set(float64(simW * simH))
	m.gridCells.WithLabelValues("dye").Set(float64(dyeW * dyeH))
}

// ObserveStats publishes window-level gauges.
func (m *Metrics) ObserveStats(s WindowStats) {
	if m == nil {
		return
	}
	m.fieldNorm.WithLabelValues("velocity").Set(s.VelocityNorm)
	m.fieldNorm.WithLabelValues("dye").Set(s.DyeNorm)
	m.pointers.Set(float64(s.Pointers))
}
