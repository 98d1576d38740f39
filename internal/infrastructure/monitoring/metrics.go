package monitoring

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Business metrics
	recipesSelectedTotal *prometheus.CounterVec
	selectionFallbacks   prometheus.Counter
	recipesAddedTotal    prometheus.Counter
	importRowsTotal      *prometheus.CounterVec
	tokensIssuedTotal    prometheus.Counter

	uptimeSeconds  prometheus.Counter
	errorRateTotal *prometheus.CounterVec
}

var _ outbound.MetricsRecorder = (*MetricsCollector)(nil)

// NewMetricsCollector creates a collector on its own registry, with the Go
// runtime and process collectors attached.
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsCollector{
		logger:   logger.Named("metrics"),
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		httpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path", "status_code"},
		),

		recipesSelectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_selected_total",
				Help: "Recipes selected for the page, by source",
			},
			[]string{"source"},
		),
		selectionFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recipe_selection_fallbacks_total",
				Help: "Page selections served from the cached recipe",
			},
		),
		recipesAddedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recipes_added_total",
				Help: "Total number of recipes added",
			},
		),
		importRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_import_rows_total",
				Help: "Import rows processed, by result",
			},
			[]string{"result"},
		),
		tokensIssuedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_tokens_issued_total",
				Help: "Total number of tokens issued by registration",
			},
		),

		uptimeSeconds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "uptime_seconds_total",
				Help: "Total uptime in seconds",
			},
		),
		errorRateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "error_rate_total",
				Help: "Total error rate",
			},
			[]string{"service", "error_type"},
		),
	}
}

// RegisterDB exports connection pool statistics for db.
func (m *MetricsCollector) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// HTTPMiddleware creates a Gin middleware for HTTP metrics collection
func (m *MetricsCollector) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.observe(c.Request.Method, path, c.Writer.Status(), c.Writer.Size(), time.Since(start))
	}
}

// Middleware is HTTPMiddleware for net/http handlers. Paths are labelled by
// the route pattern reported by patternFn so ids do not explode cardinality.
func (m *MetricsCollector) Middleware(patternFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := patternFn(r)
			if path == "" {
				path = "unmatched"
			}
			m.observe(r.Method, path, rec.status, rec.size, time.Since(start))
		})
	}
}

func (m *MetricsCollector) observe(method, path string, status, size int, duration time.Duration) {
	statusCode := strconv.Itoa(status)

	m.httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration.Seconds())
	if size > 0 {
		m.httpResponseSize.WithLabelValues(method, path, statusCode).Observe(float64(size))
	}

	if status >= 400 {
		errorType := "client_error"
		if status >= 500 {
			errorType = "server_error"
		}
		m.errorRateTotal.WithLabelValues("http", errorType).Inc()
	}
}

// Business metric methods

func (m *MetricsCollector) RecipeSelected(source string, fallback bool) {
	m.recipesSelectedTotal.WithLabelValues(source).Inc()
	if fallback {
		m.selectionFallbacks.Inc()
	}
}

func (m *MetricsCollector) RecipeAdded() {
	m.recipesAddedTotal.Inc()
}

func (m *MetricsCollector) ImportFinished(imported, failed int) {
	m.importRowsTotal.WithLabelValues("imported").Add(float64(imported))
	m.importRowsTotal.WithLabelValues("failed").Add(float64(failed))
}

func (m *MetricsCollector) TokenIssued() {
	m.tokensIssuedTotal.Inc()
}

// StartUptimeCounter starts the uptime counter
func (m *MetricsCollector) StartUptimeCounter(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.uptimeSeconds.Inc()
		}
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(m.logger),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
