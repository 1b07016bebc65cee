// Package observability exposes run metrics and health over an optional HTTP server.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records run outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	Runs            *prometheus.CounterVec
	EntriesAdded    prometheus.Counter
	EntriesRemoved  prometheus.Counter
	PublishFailures *prometheus.CounterVec
	LastSuccess     prometheus.Gauge
	RunDuration     prometheus.Histogram
	ListSize        prometheus.Gauge
}

// NewMetrics registers the bot's metrics (plus Go and process collectors) on
// a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctionsbot_runs_total",
			Help: "Completed runs by outcome",
		}, []string{"outcome"}), // bootstrap, no_change, published, partial, failed, skipped

		EntriesAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctionsbot_entries_added_total",
			Help: "Names added to the list across all runs",
		}),
		EntriesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctionsbot_entries_removed_total",
			Help: "Names removed from the list across all runs",
		}),
		PublishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctionsbot_publish_failures_total",
			Help: "Failed publish attempts by platform",
		}, []string{"platform"}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "sanctionsbot_last_success_timestamp_seconds",
			Help: "Unix time of the last run that persisted a snapshot",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanctionsbot_run_duration_seconds",
			Help:    "Duration of a full run including fetch and publish",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		ListSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "sanctionsbot_list_entries",
			Help: "Entries in the most recently fetched list",
		}),
	}
}

// Gatherer exposes the registry for the /metrics handler.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.reg
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(outcome string, added, removed, listSize int, took time.Duration, persisted bool) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.EntriesAdded.Add(float64(added))
	m.EntriesRemoved.Add(float64(removed))
	if listSize > 0 {
		m.ListSize.Set(float64(listSize))
	}
	m.RunDuration.Observe(took.Seconds())
	if persisted {
		m.LastSuccess.SetToCurrentTime()
	}
}

// IncPublishFailure records a failed delivery to platform.
func (m *Metrics) IncPublishFailure(platform string) {
	if m != nil {
		m.PublishFailures.WithLabelValues(platform).Inc()
	}
}
