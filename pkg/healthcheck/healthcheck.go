// Package healthcheck reports liveness, readiness and the state of the
// recipe store and its token cache.
package healthcheck

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check is the outcome of one checker
type Check struct {
	Name       string                 `json:"name"`
	Status     Status                 `json:"status"`
	Message    string                 `json:"message,omitempty"`
	CheckedAt  time.Time              `json:"checked_at"`
	DurationMS float64                `json:"duration_ms"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Response aggregates every check, ordered by name
type Response struct {
	Status          Status    `json:"status"`
	Version         string    `json:"version"`
	Timestamp       time.Time `json:"timestamp"`
	Checks          []Check   `json:"checks"`
	TotalDurationMS float64   `json:"total_duration_ms"`
}

// Checker defines the interface for health checks
type Checker interface {
	Check(ctx context.Context) Check
}

// CheckerFunc adapts a probe function to Checker.
type CheckerFunc func(ctx context.Context) (Status, string, map[string]interface{})

// Check implements Checker.
func (f CheckerFunc) Check(ctx context.Context) Check {
	return timed(func() (Status, string, map[string]interface{}) {
		return f(ctx)
	})
}

func timed(probe func() (Status, string, map[string]interface{})) Check {
	start := time.Now()
	status, message, metadata := probe()
	return Check{
		Status:     status,
		Message:    message,
		Metadata:   metadata,
		CheckedAt:  start,
		DurationMS: milliseconds(time.Since(start)),
	}
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// HealthCheck runs the registered checkers and caches the result briefly.
type HealthCheck struct {
	version  string
	logger   *zap.Logger
	mu       sync.RWMutex
	checkers map[string]Checker
	cache    *Response
	cacheTTL time.Duration
	timeout  time.Duration
}

// New creates a new health check instance
func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version:  version,
		logger:   logger.Named("healthcheck"),
		checkers: make(map[string]Checker),
		cacheTTL: 5 * time.Second,
		timeout:  5 * time.Second,
	}
}

// Register adds a checker under name, replacing any previous one.
func (h *HealthCheck) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
	h.cache = nil
}

// SetCacheTTL sets how long a response is reused. Zero disables caching.
func (h *HealthCheck) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
}

// SetTimeout bounds each run of the checkers.
func (h *HealthCheck) SetTimeout(timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeout = timeout
}

// Handler reports every check; 503 only when something is unhealthy.
func (h *HealthCheck) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.Check(c.Request.Context())

		code := http.StatusOK
		if response.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, response)
	}
}

// LivenessHandler answers as long as the process serves requests.
func (h *HealthCheck) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	}
}

// ReadinessHandler is 200 unless a dependency is unhealthy. A degraded
// service (an empty store, a busy pool) still takes traffic.
func (h *HealthCheck) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.Check(c.Request.Context())

		if response.Status == StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"checks": response.Checks,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"degraded":  response.Status == StatusDegraded,
			"timestamp": response.Timestamp,
		})
	}
}

// Check runs every checker concurrently, or returns the cached response.
func (h *HealthCheck) Check(ctx context.Context) Response {
	h.mu.RLock()
	if h.cache != nil && time.Since(h.cache.Timestamp) < h.cacheTTL {
		cached := *h.cache
		h.mu.RUnlock()
		return cached
	}
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	timeout := h.timeout
	h.mu.RUnlock()

	sort.Strings(names)

	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	checks := make([]Check, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			check := checkers[name].Check(checkCtx)
			check.Name = name
			checks[i] = check
			return nil
		})
	}
	_ = g.Wait()

	response := Response{
		Status:    StatusHealthy,
		Version:   h.version,
		Timestamp: start,
		Checks:    checks,
	}
	for _, check := range checks {
		if check.Status.severity() > response.Status.severity() {
			response.Status = check.Status
		}
		if check.Status != StatusHealthy {
			h.logger.Warn("Health check failed",
				zap.String("check", check.Name),
				zap.String("status", string(check.Status)),
				zap.String("message", check.Message),
			)
		}
	}
	response.TotalDurationMS = milliseconds(time.Since(start))

	h.mu.Lock()
	h.cache = &response
	h.mu.Unlock()

	return response
}

// DatabaseChecker pings the store and reports connection pool usage.
type DatabaseChecker struct {
	db *sql.DB
}

// NewDatabaseChecker creates a new database checker
func NewDatabaseChecker(db *sql.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

// Check implements Checker. Pool usage above 90% is degraded.
func (d *DatabaseChecker) Check(ctx context.Context) Check {
	return timed(func() (Status, string, map[string]interface{}) {
		if err := d.db.PingContext(ctx); err != nil {
			return StatusUnhealthy, err.Error(), nil
		}

		stats := d.db.Stats()
		metadata := map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"max_open":         stats.MaxOpenConnections,
		}
		if stats.MaxOpenConnections > 0 && stats.InUse*10 > stats.MaxOpenConnections*9 {
			return StatusDegraded, "connection pool nearly exhausted", metadata
		}
		return StatusHealthy, "", metadata
	})
}

// RecipeCounter is the part of the recipe store the count check needs.
type RecipeCounter interface {
	Count(ctx context.Context) (int64, error)
}

// NewRecipeCountChecker reports an empty store as degraded: pages can
// only be served from the cached recipe until something is added.
func NewRecipeCountChecker(recipes RecipeCounter) Checker {
	return CheckerFunc(func(ctx context.Context) (Status, string, map[string]interface{}) {
		n, err := recipes.Count(ctx)
		if err != nil {
			return StatusUnhealthy, err.Error(), nil
		}
		metadata := map[string]interface{}{"recipes": n}
		if n == 0 {
			return StatusDegraded, "no recipes stored", metadata
		}
		return StatusHealthy, "", metadata
	})
}

// RedisChecker pings the token cache when it lives in Redis
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a new Redis checker
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Check implements Checker.
func (r *RedisChecker) Check(ctx context.Context) Check {
	return timed(func() (Status, string, map[string]interface{}) {
		pong, err := r.client.Ping(ctx).Result()
		if err != nil {
			return StatusUnhealthy, err.Error(), nil
		}
		if pong != "PONG" {
			return StatusUnhealthy, fmt.Sprintf("unexpected ping response %q", pong), nil
		}
		return StatusHealthy, "", nil
	})
}
