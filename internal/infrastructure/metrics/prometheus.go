// Package metrics exports reader instrumentation to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kiwix/kiwix-reader/internal/application/port"
)

const namespace = "kiwix_reader"

// Metrics implements port.ReaderMetrics on a Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	OpenTabs          prometheus.Gauge
	PageLoads         *prometheus.CounterVec
	SnapshotSaves     *prometheus.CounterVec
	SnapshotDuration  prometheus.Histogram
	Restores          *prometheus.CounterVec
	RestoredTabs      prometheus.Histogram
	SurfaceInitErrors prometheus.Counter
}

var _ port.ReaderMetrics = (*Metrics)(nil)

// New registers the reader metrics on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OpenTabs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_tabs",
			Help:      "Number of open tabs",
		}),
		PageLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_loads_total",
			Help:      "Page loads by result",
		}, []string{"result"}),
		SnapshotSaves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_saves_total",
			Help:      "Navigation snapshot writes by result",
		}, []string{"result"}),
		SnapshotDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_save_duration_seconds",
			Help:      "Time spent writing navigation snapshots",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		Restores: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restores_total",
			Help:      "Tab restorations by outcome",
		}, []string{"outcome"}),
		RestoredTabs: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "restored_tabs",
			Help:      "Tabs rebuilt per successful restoration",
			Buckets:   []float64{1, 2, 4, 8, 16, 32},
		}),
		SurfaceInitErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surface_init_failures_total",
			Help:      "Render surfaces that could not be created",
		}),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SetOpenTabs(n int) { m.OpenTabs.Set(float64(n)) }

func (m *Metrics) PageLoaded(ok bool) { m.PageLoads.WithLabelValues(result(ok)).Inc() }

func (m *Metrics) SnapshotSaved(d time.Duration, err error) {
	m.SnapshotSaves.WithLabelValues(result(err == nil)).Inc()
	m.SnapshotDuration.Observe(d.Seconds())
}

func (m *Metrics) TabsRestored(outcome port.RestoreOutcome, tabs int) {
	m.Restores.WithLabelValues(string(outcome)).Inc()
	if outcome == port.RestoreOutcomeRestored {
		m.RestoredTabs.Observe(float64(tabs))
	}
}

func (m *Metrics) SurfaceInitFailed() { m.SurfaceInitErrors.Inc() }

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
