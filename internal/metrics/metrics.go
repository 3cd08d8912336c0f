// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Fetch outcomes reported per upstream source.
const (
	OutcomeOK     = "ok"
	OutcomeNoData = "no_data"
	OutcomeError  = "error"
)

// Collector owns the Prometheus series of the service.
// All methods are no-ops on a nil *Collector so components can run without metrics.
type Collector struct {
	registry *prometheus.Registry

	fetchCounter        *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	aggregationCounter  *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	tokensLoaded        prometheus.Gauge
	tokensRequested     prometheus.Gauge
	solPrice            prometheus.Gauge
	cacheCounter        *prometheus.CounterVec
}

// NewCollector creates a collector backed by its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		fetchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topbags",
			Name:      "upstream_fetch_total",
			Help:      "Upstream fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "topbags",
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Upstream fetch latency by source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		aggregationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topbags",
			Name:      "aggregation_runs_total",
			Help:      "Aggregation runs by status.",
		}, []string{"status"}),
		aggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "topbags",
			Name:      "aggregation_duration_seconds",
			Help:      "Wall time of a full aggregation run.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		tokensLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "topbags",
			Name:      "tokens_loaded",
			Help:      "Tokens with market data in the latest snapshot.",
		}),
		tokensRequested: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "topbags",
			Name:      "tokens_requested",
			Help:      "Tokens requested in the latest aggregation run.",
		}),
		solPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "topbags",
			Name:      "sol_usd_rate",
			Help:      "SOL/USD rate served by the price oracle.",
		}),
		cacheCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topbags",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache name and result.",
		}, []string{"cache", "result"}),
	}

	c.registry.MustRegister(
		c.fetchCounter,
		c.fetchDuration,
		c.aggregationCounter,
		c.aggregationDuration,
		c.tokensLoaded,
		c.tokensRequested,
		c.solPrice,
		c.cacheCounter,
		collectors.NewGoCollector(),
	)

	return c
}

// Registry exposes the underlying registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordFetch records one upstream call.
func (c *Collector) RecordFetch(source, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.fetchCounter.WithLabelValues(source, outcome).Inc()
	c.fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordAggregation records a finished aggregation attempt.
func (c *Collector) RecordAggregation(status string, duration time.Duration, requested, loaded int) {
	if c == nil {
		return
	}
	c.aggregationCounter.WithLabelValues(status).Inc()
	c.aggregationDuration.Observe(duration.Seconds())
	if status == OutcomeOK {
		c.tokensRequested.Set(float64(requested))
		c.tokensLoaded.Set(float64(loaded))
	}
}

// SetSOLPrice updates the exchange-rate gauge.
func (c *Collector) SetSOLPrice(price float64) {
	if c == nil {
		return
	}
	c.solPrice.Set(price)
}

// RecordCache records a cache hit or miss.
func (c *Collector) RecordCache(cache string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheCounter.WithLabelValues(cache, result).Inc()
}
