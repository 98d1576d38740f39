// Package server provides the root HTTP server: the recipe page, static
// assets, health probes, metrics and the mounted JSON API
package server

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/http/apiserver"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipe-server/pkg/healthcheck"
	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

//go:embed static/*
var staticFS embed.FS

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  *chi.Mux
	handler http.Handler
	server  *http.Server

	pages   *handlers.FrontendHandlers
	api     http.Handler
	health  *healthcheck.HealthCheck
	metrics *monitoring.MetricsCollector
	tracing *monitoring.TracingProvider
}

// NewServer creates a new HTTP server instance. metrics and tracing may be nil.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	pages *handlers.FrontendHandlers,
	api http.Handler,
	health *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
) *Server {
	s := &Server{
		config:  cfg,
		logger:  logger.Named("server"),
		pages:   pages,
		api:     api,
		health:  health,
		metrics: metrics,
		tracing: tracing,
	}

	s.router = s.setupRouter()
	s.handler = s.wrap(s.router)

	s.server = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	return s
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestIDHeaderEcho)
	r.Use(middleware.Logger(s.logger,
		s.config.Monitoring.HealthCheckPath,
		s.config.Monitoring.ReadinessPath,
		"/metrics",
	))
	r.Use(chimiddleware.Recoverer)

	if s.config.Server.EnableCompression {
		r.Use(newCompressor().Handler)
	}

	// Page and assets
	r.Group(func(r chi.Router) {
		if s.metricsEnabled() {
			r.Use(s.metrics.Middleware(routePattern))
		}
		r.Use(middleware.Security())
		if s.config.Server.WriteTimeout > 0 {
			r.Use(chimiddleware.Timeout(s.config.Server.WriteTimeout))
		}

		r.Get("/", s.pages.Index)

		static, err := fs.Sub(staticFS, "static")
		if err != nil {
			panic(err)
		}
		r.Get("/style.css", serveFile(static, "style.css"))
		r.Get("/favicon.ico", serveFile(static, "favicon.ico"))
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	})

	// Probes
	probes := gin.New()
	probes.GET(s.config.Monitoring.HealthCheckPath, s.health.Handler())
	probes.GET(s.config.Monitoring.ReadinessPath, s.health.ReadinessHandler())
	probes.GET("/live", s.health.LivenessHandler())
	r.Method(http.MethodGet, s.config.Monitoring.HealthCheckPath, probes)
	r.Method(http.MethodGet, s.config.Monitoring.ReadinessPath, probes)
	r.Method(http.MethodGet, "/live", probes)

	if s.metricsEnabled() {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// JSON API
	r.Mount(apiserver.BasePath, s.api)

	return r
}

// wrap adds the transport level handlers around the router
func (s *Server) wrap(h http.Handler) http.Handler {
	if s.tracing != nil && s.tracing.Enabled() {
		h = otelhttp.NewHandler(h, s.config.App.Name,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	if s.config.Server.EnableH2C {
		h = h2c.NewHandler(h, &http2.Server{
			IdleTimeout: s.config.Server.IdleTimeout,
		})
	}

	return h
}

func (s *Server) metricsEnabled() bool {
	return s.metrics != nil && s.config.Monitoring.EnableMetrics
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the configured listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Serve accepts connections on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", ln.Addr().String()),
		zap.String("environment", s.config.App.Environment),
		zap.Bool("h2c", s.config.Server.EnableH2C),
	)

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// newCompressor compresses text responses with brotli, falling back to gzip
// and deflate for clients that do not accept br.
func newCompressor() *chimiddleware.Compressor {
	compressor := chimiddleware.NewCompressor(5,
		"text/html",
		"text/css",
		"text/plain",
		"application/json",
		"application/x-yaml",
		"image/x-icon",
	)
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return compressor
}

func serveFile(fsys fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, fsys, name)
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
