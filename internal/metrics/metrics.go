// Package metrics records sync counters on a private Prometheus registry.
//
// comfydepot is a short-lived CLI, so metrics are not served over HTTP; they
// are flushed to a node_exporter textfile at the end of a run when a path is
// configured.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "comfydepot"

// Recorder holds the sync metric vectors. A nil *Recorder discards
// observations.
type Recorder struct {
	registry *prometheus.Registry

	actions  *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    prometheus.Counter
	orphans  *prometheus.GaugeVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_actions_total",
			Help:      "Executed sync actions by item kind and outcome",
		}, []string{"kind", "action", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Completed sync runs by item kind and result",
		}, []string{"kind", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of sync runs in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}, []string{"kind"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes written by model downloads",
		}),
		orphans: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphans",
			Help:      "Orphans found by the last scan",
		}, []string{"kind"}),
	}

	reg.MustRegister(r.actions, r.runs, r.duration, r.bytes, r.orphans)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveAction counts one executed action.
func (r *Recorder) ObserveAction(kind, action, outcome string) {
	if r == nil {
		return
	}
	r.actions.WithLabelValues(kind, action, outcome).Inc()
}

// ObserveRun counts a finished run and its duration.
func (r *Recorder) ObserveRun(kind string, ok bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	r.runs.WithLabelValues(kind, result).Inc()
	r.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// AddDownloadBytes adds n downloaded bytes. It is safe to pass as a
// progress callback.
func (r *Recorder) AddDownloadBytes(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.bytes.Add(float64(n))
}

// SetOrphans records the size of the latest orphan scan.
func (r *Recorder) SetOrphans(kind string, n int) {
	if r == nil {
		return
	}
	r.orphans.WithLabelValues(kind).Set(float64(n))
}

// WriteTextfile writes the registry in text exposition format to path,
// atomically. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
