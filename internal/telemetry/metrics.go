package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rustyeddy/riskengine/risk"
)

const namespace = "riskengine"

// Recorder counts gate decisions. Each Recorder owns its registry so tests
// and multiple services never collide on the default one.
type Recorder struct {
	Registry *prometheus.Registry

	decisions *prometheus.CounterVec
	flags     *prometheus.CounterVec
	latency   prometheus.Histogram
	errors    *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		Registry: reg,
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "decisions_total",
				Help:      "Risk decisions by outcome and risk level",
			},
			[]string{"allowed", "level"},
		),
		flags: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "flags_total",
				Help:      "Risk flags raised, by flag",
			},
			[]string{"flag"},
		),
		latency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "evaluate_latency_ms",
				Help:      "Time from request to finished plan in milliseconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 100},
			},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "errors_total",
				Help:      "Gate failures by stage",
			},
			[]string{"stage"}, // indicators, plan, journal
		),
	}
}

// Decision records one evaluated signal.
func (r *Recorder) Decision(res risk.Result, took time.Duration) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(strconv.FormatBool(res.Allowed), string(res.Level)).Inc()
	for _, fl := range res.Flags {
		r.flags.WithLabelValues(string(fl)).Inc()
	}
	r.latency.Observe(float64(took) / float64(time.Millisecond))
}

// Error counts a failure in the named stage.
func (r *Recorder) Error(stage string) {
	if r == nil {
		return
	}
	r.errors.WithLabelValues(stage).Inc()
}

// DecisionsCounter returns the decision series for one allowed/level pair.
func (r *Recorder) DecisionsCounter(allowed, level string) prometheus.Counter {
	return r.decisions.WithLabelValues(allowed, level)
}

func (r *Recorder) ErrorsCounter(stage string) prometheus.Counter {
	return r.errors.WithLabelValues(stage)
}
