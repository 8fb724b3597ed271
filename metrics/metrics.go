// Package metrics exports bridge activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaskirat05/graviton-bridge"
)

const namespace = "graviton_bridge"

// Recorder implements bridge.MetricsRecorder on its own registry, so several
// recorders can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	commands       *prometheus.CounterVec
	events         *prometheus.CounterVec
	importAttempts *prometheus.CounterVec
	readinessWait  *prometheus.HistogramVec
	sessions       prometheus.Gauge
}

var _ bridge.MetricsRecorder = (*Recorder)(nil)

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of inbound commands accepted, by type",
		}, []string{"command"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of events posted to the host, by type",
		}, []string{"event"}),
		importAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_attempts_total",
			Help:      "Total number of ingestion attempts, by outcome",
		}, []string{"outcome"}), // outcome: success, transient, fatal
		readinessWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "readiness_wait_seconds",
			Help:      "Time spent waiting for the embedded application to become ready",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"result"}), // result: ready, timeout
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of bridge sessions currently running",
		}),
	}
	r.registry.MustRegister(r.commands, r.events, r.importAttempts, r.readinessWait, r.sessions)
	return r
}

func (r *Recorder) RecordCommand(command string) {
	r.commands.WithLabelValues(command).Inc()
}

func (r *Recorder) RecordEvent(event string) {
	r.events.WithLabelValues(event).Inc()
}

func (r *Recorder) RecordImportAttempt(outcome string) {
	r.importAttempts.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordReadinessWait(d time.Duration, ready bool) {
	result := "timeout"
	if ready {
		result = "ready"
	}
	r.readinessWait.WithLabelValues(result).Observe(d.Seconds())
}

// SessionStarted and SessionEnded track the sessions_active gauge.
func (r *Recorder) SessionStarted() { r.sessions.Inc() }
func (r *Recorder) SessionEnded()   { r.sessions.Dec() }

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
