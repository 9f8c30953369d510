// Package metrics exposes Prometheus instruments for the loader service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/file-loader/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "file_loader"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	transitionsTotal *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	catalogSize      prometheus.Gauge
	catalogSlots     prometheus.Gauge
	catalogLoads     *prometheus.CounterVec
	bytesAccepted    prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "transitions_total",
			Help:      "Widget state transitions by kind.",
		}, []string{"kind"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "active_sessions",
			Help:      "Number of live widget sessions.",
		}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "categories",
			Help:      "Categories in the loaded catalog.",
		}),
		catalogSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "slots",
			Help:      "Sum of category quotas in the loaded catalog.",
		}),
		catalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "loads_total",
			Help:      "Catalog load attempts by result.",
		}, []string{"result"}),
		bytesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "bound_bytes_total",
			Help:      "Bytes of files bound to slots.",
		}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.transitionsTotal,
		m.activeSessions,
		m.catalogSize,
		m.catalogSlots,
		m.catalogLoads,
		m.bytesAccepted,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.requestInFlight.Inc()
			defer m.requestInFlight.Dec()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			status := c.Response().Status
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RecordTransition counts a widget transition.
func (m *Metrics) RecordTransition(e models.TransitionEvent) {
	m.transitionsTotal.WithLabelValues(string(e.Kind)).Inc()
	if e.Kind == models.TransitionSlotBound && e.FileSize > 0 {
		m.bytesAccepted.Add(float64(e.FileSize))
	}
}

// SetActiveSessions reports the live session count.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// RecordCatalogLoad reports the catalog shape after a load. An empty
// catalog counts as a failed load.
func (m *Metrics) RecordCatalogLoad(categories, slots int) {
	m.catalogSize.Set(float64(categories))
	m.catalogSlots.Set(float64(slots))
	result := "ok"
	if categories == 0 {
		result = "empty"
	}
	m.catalogLoads.WithLabelValues(result).Inc()
}
