// Package metrics exposes prometheus metrics for the dashboards.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ctgov"

// Collector holds all metrics of the service on its own registry
type Collector struct {
	registry *prometheus.Registry

	// HTTP
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Query cache
	cacheLookups *prometheus.CounterVec

	// Reporting
	actionItems prometheus.Gauge
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query_cache",
			Name:      "lookups_total",
			Help:      "Query cache lookups by result",
		}, []string{"result"}),
		actionItems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "action_items",
			Help:      "Organizations below full compliance in the last reporting request",
		}),
	}
}

// ObserveRequest records one served HTTP request
func (c *Collector) ObserveRequest(route string, status int, d time.Duration) {
	c.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveCacheLookup records a query cache hit or miss
func (c *Collector) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// SetActionItems records the number of action items last computed
func (c *Collector) SetActionItems(n int) {
	c.actionItems.Set(float64(n))
}

// Registry returns the registry the metrics live on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
