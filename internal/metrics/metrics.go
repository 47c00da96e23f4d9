// Package metrics exposes run statistics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"go-casting-scout/internal/pipeline"
	"go-casting-scout/internal/scraper"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "castingscout"

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusDryRun = "dry_run"
)

type Metrics struct {
	registry *prometheus.Registry

	Runs            *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge
	SourceListings  *prometheus.CounterVec
	SourceFailures  *prometheus.CounterVec
	SourceDuration  *prometheus.HistogramVec
	Rejected        *prometheus.CounterVec
	NewListings     *prometheus.CounterVec
	SeenEntries     prometheus.Gauge
	DeliveryFailure *prometheus.CounterVec
}

// New registers every metric on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed scrape cycles by status.",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle that delivered a digest.",
		}),
		SourceListings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_listings_total",
			Help:      "Valid listings returned per source.",
		}, []string{"source"}),
		SourceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Scrape failures per source.",
		}, []string{"source"}),
		SourceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Time spent scraping each source.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_rejected_total",
			Help:      "Listings dropped by the filter, by reason.",
		}, []string{"reason"}),
		NewListings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_new_total",
			Help:      "New listings per career category.",
		}, []string{"category"}),
		SeenEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seen_entries",
			Help:      "Entries currently held in the seen-state store.",
		}),
		DeliveryFailure: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Cycles whose digest could not be delivered.",
		}, []string{"channel"}),
	}
}

func (m *Metrics) ObserveCollection(c *scraper.Collection) {
	for _, o := range c.Outcomes {
		m.SourceDuration.WithLabelValues(o.Source).Observe(o.Duration.Seconds())
		if o.Err != nil {
			m.SourceFailures.WithLabelValues(o.Source).Inc()
			continue
		}
		m.SourceListings.WithLabelValues(o.Source).Add(float64(o.Count))
	}
}

func (m *Metrics) ObserveResult(res *pipeline.Result) {
	for reason, n := range res.Rejected {
		m.Rejected.WithLabelValues(reason.String()).Add(float64(n))
	}
	for _, g := range res.Groups {
		m.NewListings.WithLabelValues(g.Category.String()).Add(float64(len(g.Listings)))
	}
}

// RunFinished records a cycle's status and duration.
func (m *Metrics) RunFinished(status string, took time.Duration, at time.Time) {
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(took.Seconds())
	if status == StatusOK {
		m.LastSuccess.Set(float64(at.Unix()))
	}
}

// Registry is the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
