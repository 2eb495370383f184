// Package metrics provides Prometheus metrics for the dev API.
// Metrics are organized by domain: HTTP requests, hub activity, and the
// database connection pool.
//
// Every Server owns its own registry, so tests can build as many servers as
// they like without duplicate registration panics.
package metrics

import (
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "aichub"
)

// Metrics holds every collector the dev API records into.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics - track request volume and latency
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Hub metrics - sign-ins and feed interactions
	LoginsTotal       *prometheus.CounterVec
	InteractionsTotal *prometheus.CounterVec

	// Database metrics - connection pool state
	DBConnections *prometheus.GaugeVec
}

// New creates a registry with the Go runtime collectors and registers the
// dev API metrics on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by method, route, and status code",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		LoginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "logins_total",
				Help:      "Sign-ins by method (password, signup, github) and result",
			},
			[]string{"method", "result"},
		),

		InteractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "interactions_total",
				Help:      "Recorded feed interactions by type and target type",
			},
			[]string{"type", "target_type"},
		),

		DBConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "pool_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLogin counts one sign-in attempt.
func (m *Metrics) ObserveLogin(method string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.LoginsTotal.WithLabelValues(method, result).Inc()
}

// ObserveInteraction counts one recorded interaction.
func (m *Metrics) ObserveInteraction(kind, targetType string) {
	m.InteractionsTotal.WithLabelValues(kind, targetType).Inc()
}

// PoolStatsProvider is satisfied by *sqlite.DB.
type PoolStatsProvider interface {
	Stats() sql.DBStats
}

// PoolStatsCollector copies database pool statistics into DBConnections
// periodically.
type PoolStatsCollector struct {
	metrics  *Metrics
	provider PoolStatsProvider
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoolStatsCollector creates a new pool stats collector.
func NewPoolStatsCollector(m *Metrics, provider PoolStatsProvider) *PoolStatsCollector {
	return &PoolStatsCollector{
		metrics:  m,
		provider: provider,
		stopChan: make(chan struct{}),
	}
}

// Start begins collecting pool stats every interval.
func (c *PoolStatsCollector) Start(interval time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopChan:
				return
			}
		}
	}()
}

func (c *PoolStatsCollector) collect() {
	stats := c.provider.Stats()
	c.metrics.DBConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
	c.metrics.DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
	c.metrics.DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
}

// Stop stops the collector and waits for it to exit. Safe to call twice.
func (c *PoolStatsCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}
