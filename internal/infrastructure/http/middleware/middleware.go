// Package middleware holds the gin middleware of the JSON API and the
// net/http middleware of the page router.
package middleware

import (
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	"github.com/gin-gonic/gin"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// Middleware provides the gin middleware used by the JSON API
type Middleware struct {
	config   *config.Config
	logger   *zap.Logger
	limiters *ipLimiters
}

// New creates a new middleware instance
func New(cfg *config.Config, logger *zap.Logger) *Middleware {
	perSecond := rate.Limit(float64(cfg.RateLimit.RequestsPerMin) / 60)
	return &Middleware{
		config:   cfg,
		logger:   logger.Named("http"),
		limiters: newIPLimiters(perSecond, cfg.RateLimit.BurstSize),
	}
}

// RequestID reuses the caller's X-Request-ID, then chi's id when the engine
// is mounted under the root router, and generates one otherwise.
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = chimw.GetReqID(c.Request.Context())
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Logger writes one entry per API request once the handlers have run.
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.RequestURI()),
			zap.String("route", c.FullPath()),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
		}
		if subject := c.GetString("subject"); subject != "" {
			fields = append(fields, zap.String("subject", subject))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}

		logAtStatus(m.logger, status, "API request", fields...)
	}
}

// logAtStatus logs 5xx as errors, 4xx as warnings and the rest as info.
func logAtStatus(logger *zap.Logger, status int, msg string, fields ...zap.Field) {
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error(msg, fields...)
	case status >= http.StatusBadRequest:
		logger.Warn(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
}

// Recovery recovers from panics and returns 500 error
func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("Panic recovered",
					zap.String("request_id", c.GetString("request_id")),
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError,
					apperrors.ToErrorResponse(apperrors.NewInternalError(""), c.GetString("request_id")))
			}
		}()

		c.Next()
	}
}

// CORS answers preflight requests and echoes allowed origins.
func (m *Middleware) CORS() gin.HandlerFunc {
	allowed := make(map[string]bool, len(m.config.Server.AllowedOrigins))
	for _, origin := range m.config.Server.AllowedOrigins {
		allowed[origin] = true
	}
	anyOrigin := allowed["*"] || m.config.IsDevelopment()

	return func(c *gin.Context) {
		if !m.config.Server.EnableCORS {
			c.Next()
			return
		}

		if origin := c.GetHeader("Origin"); origin != "" && (anyOrigin || allowed[origin]) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+RequestIDHeader)
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.config.RateLimit.Enable {
			c.Next()
			return
		}

		if !m.limiters.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "60")
			_ = c.Error(apperrors.NewTooManyRequestsError())
			c.Abort()
			return
		}

		c.Next()
	}
}

// Security marks API responses as uncacheable and not embeddable.
func (m *Middleware) Security() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "no-store")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		c.Next()
	}
}

// ErrorHandler renders the last error attached with c.Error as an
// ErrorResponse envelope.
func (m *Middleware) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()

		appErr := apperrors.From(err.Err)

		fields := []zap.Field{
			zap.String("request_id", c.GetString("request_id")),
			zap.String("code", string(appErr.Code)),
			zap.String("message", appErr.Message),
			zap.String("details", appErr.Details),
		}
		if appErr.Cause != nil {
			fields = append(fields, zap.NamedError("cause", appErr.Cause))
		}
		if appErr.StatusCode() >= 500 {
			m.logger.Error("Request error", fields...)
		} else {
			m.logger.Debug("Request error", fields...)
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(appErr.StatusCode(), apperrors.ToErrorResponse(appErr, c.GetString("request_id")))
	}
}

// ipLimiters hands out one token bucket per client address.
type ipLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newIPLimiters(limit rate.Limit, burst int) *ipLimiters {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiters{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}
