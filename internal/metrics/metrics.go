// Package metrics holds the Prometheus collectors shared by the exporter,
// the runtime server and the dev watcher.
//
// All methods are safe on a nil *Metrics, so components can take an
// optional collector set without guarding every call.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "plowfinder").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors.
	// Default: a fresh private registry.
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "plowfinder",
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics is the collector set.
type Metrics struct {
	registry prometheus.Registerer

	resolutions     *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	routesWritten   *prometheus.CounterVec
	collisions      prometheus.Counter
	exportDuration  prometheus.Histogram
	reloads         *prometheus.CounterVec
	publishedObjs   *prometheus.CounterVec
}

// New registers the collectors and returns them.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resolutions_total",
			Help:        "Paths classified at runtime, by resource kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "HTTP requests served, by handler and status code",
			ConstLabels: config.ConstLabels,
		}, []string{"handler", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"handler"}),

		routesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "export_routes_total",
			Help:        "Route documents written by the exporter, by resource kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		collisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "export_collisions_total",
			Help:        "Provider short URLs skipped because the slug was taken",
			ConstLabels: config.ConstLabels,
		}),

		exportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "export_duration_seconds",
			Help:        "Duration of full static exports in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reloads_total",
			Help:        "Registry reloads, by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		publishedObjs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "publish_objects_total",
			Help:        "Objects written to or deleted from the bucket",
			ConstLabels: config.ConstLabels,
		}, []string{"action"}),
	}
}

// Handler serves the registry in the Prometheus exposition format. It
// falls back to the default gatherer when the configured registry cannot
// be gathered.
func (m *Metrics) Handler() http.Handler {
	if m != nil {
		if g, ok := m.registry.(prometheus.Gatherer); ok {
			return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
	}
	return promhttp.Handler()
}

// ObserveResolution counts one runtime classification.
func (m *Metrics) ObserveResolution(kind string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(kind).Inc()
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(handler string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(handler, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(handler).Observe(d.Seconds())
}

// RouteWritten counts one exported route document.
func (m *Metrics) RouteWritten(kind string) {
	if m == nil {
		return
	}
	m.routesWritten.WithLabelValues(kind).Inc()
}

// CollisionSkipped counts one skipped provider short URL.
func (m *Metrics) CollisionSkipped() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}

// ObserveExport records a completed export.
func (m *Metrics) ObserveExport(d time.Duration) {
	if m == nil {
		return
	}
	m.exportDuration.Observe(d.Seconds())
}

// Reloaded counts a registry reload attempt.
func (m *Metrics) Reloaded(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// Published counts objects affected by a publish. Action is "upload" or
// "delete".
func (m *Metrics) Published(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.publishedObjs.WithLabelValues(action).Add(float64(n))
}
