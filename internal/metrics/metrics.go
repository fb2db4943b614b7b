// Package metrics exposes Prometheus instruments for loads and dashboard views.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Registry owns a private Prometheus registry. A nil *Registry is valid and
// records nothing, so callers never need to guard.
type Registry struct {
	reg *prometheus.Registry

	Loads          *prometheus.CounterVec
	LoadDuration   prometheus.Histogram
	Dropped        *prometheus.CounterVec
	FactRows       prometheus.Gauge
	ViewDuration   prometheus.Histogram
	StaleViews     prometheus.Counter
	LastLoadUnixTS prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salesdash_loads_total",
		Help: "Full dataset loads by result.",
	}, []string{"result"})
	loadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "salesdash_load_duration_seconds",
		Help:    "Wall time of a full load, fetch through snapshot.",
		Buckets: prometheus.DefBuckets,
	})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salesdash_dropped_records_total",
		Help: "Raw records dropped during normalization and merge.",
	}, []string{"kind", "reason"})
	factRows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "salesdash_fact_rows",
		Help: "Fact rows in the current snapshot.",
	})
	viewDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "salesdash_view_duration_seconds",
		Help:    "Time to filter and aggregate one dashboard view.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})
	stale := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "salesdash_stale_views_total",
		Help: "Views superseded by a newer request before they completed.",
	})
	lastLoad := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "salesdash_last_load_timestamp_seconds",
		Help: "Unix time of the last successful load.",
	})

	r.MustRegister(loads, loadDuration, dropped, factRows, viewDuration, stale, lastLoad)

	return &Registry{
		reg:            r,
		Loads:          loads,
		LoadDuration:   loadDuration,
		Dropped:        dropped,
		FactRows:       factRows,
		ViewDuration:   viewDuration,
		StaleViews:     stale,
		LastLoadUnixTS: lastLoad,
	}
}

// ObserveLoad records one load attempt.
func (r *Registry) ObserveLoad(err error, elapsed time.Duration) {
	if r == nil {
		return
	}

	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}

	r.Loads.WithLabelValues(result).Inc()
	r.LoadDuration.Observe(elapsed.Seconds())
}

// ObserveSnapshot records the size of a freshly built snapshot.
func (r *Registry) ObserveSnapshot(factRows int, loadedAt time.Time) {
	if r == nil {
		return
	}

	r.FactRows.Set(float64(factRows))
	r.LastLoadUnixTS.Set(float64(loadedAt.Unix()))
}

// ObserveDrop counts n records of kind dropped for reason.
func (r *Registry) ObserveDrop(kind, reason string, n int) {
	if r == nil || n <= 0 {
		return
	}

	r.Dropped.WithLabelValues(kind, reason).Add(float64(n))
}

// ObserveView records one view computation.
func (r *Registry) ObserveView(elapsed time.Duration, stale bool) {
	if r == nil {
		return
	}

	r.ViewDuration.Observe(elapsed.Seconds())

	if stale {
		r.StaleViews.Inc()
	}
}

// ResetSnapshot zeroes the snapshot gauge after a failed load clears the data.
func (r *Registry) ResetSnapshot() {
	if r == nil {
		return
	}

	r.FactRows.Set(0)
}

func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
