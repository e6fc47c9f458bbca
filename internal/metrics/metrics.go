// Package metrics records validation runs as Prometheus metrics. Each
// Recorder owns a private registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/simonhull/crucible/internal/report"
)

const namespace = "crucible"

// Recorder accumulates metrics across validation runs
type Recorder struct {
	registry *prometheus.Registry
	runs     prometheus.Counter
	issues   *prometheus.GaugeVec
	duration prometheus.Histogram
	valid    prometheus.Gauge
}

// NewRecorder creates a Recorder with its metrics registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "runs_total",
			Help:      "Number of validation runs.",
		}),
		issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "issues",
			Help:      "Issues reported by the last validation run.",
		}, []string{"rule", "severity"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "duration_seconds",
			Help:      "Time spent loading and validating a project.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		valid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "valid",
			Help:      "1 if the last validation run was valid, 0 otherwise.",
		}),
	}

	r.registry.MustRegister(r.runs, r.issues, r.duration, r.valid)
	return r
}

// Registry exposes the recorder's registry for scraping or inspection
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one run. Issue gauges are replaced, not accumulated, so
// they always describe the latest report.
func (r *Recorder) Observe(rep *report.Report, elapsed time.Duration) {
	r.runs.Inc()
	r.duration.Observe(elapsed.Seconds())

	r.issues.Reset()
	counts := make(map[[2]string]int)
	for _, issue := range rep.All() {
		counts[[2]string{issue.RuleID, string(issue.Severity)}]++
	}
	for key, n := range counts {
		r.issues.WithLabelValues(key[0], key[1]).Set(float64(n))
	}

	if rep.Valid {
		r.valid.Set(1)
	} else {
		r.valid.Set(0)
	}
}

// WriteTextfile writes the current metrics in the text exposition format,
// for collection by the node exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
