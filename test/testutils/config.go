package testutils

import (
	"time"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
)

// TestJWTSecret signs tokens issued by TestConfig
const TestJWTSecret = "test-secret-key-for-testing-only-32-bytes"

// TestConfig returns a validated configuration for HTTP tests. Rate
// limiting is off; tests that need it switch it on.
func TestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "recipes-test",
			Version:     "test",
			Environment: "test",
			LogLevel:    "debug",
			LogFormat:   "console",
		},
		Server: config.ServerConfig{
			Host:              "127.0.0.1",
			Port:              3000,
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       30 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			EnableCORS:        true,
			AllowedOrigins:    []string{"https://recipes.example"},
			EnableCompression: true,
		},
		Database: TestDatabaseConfig(),
		Auth: config.AuthConfig{
			JWTSecret:     TestJWTSecret,
			JWTExpiration: time.Hour,
			Issuer:        "recipes",
		},
		Monitoring: config.MonitoringConfig{
			EnableMetrics:   true,
			HealthCheckPath: "/health",
			ReadinessPath:   "/ready",
		},
		RateLimit: config.RateLimitConfig{
			Enable:         false,
			RequestsPerMin: 60,
			BurstSize:      10,
		},
	}
}
