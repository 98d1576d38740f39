package healthcheck

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func staticChecker(status Status, message string) Checker {
	return CheckerFunc(func(ctx context.Context) (Status, string, map[string]interface{}) {
		return status, message, nil
	})
}

type fixedCounter struct {
	n   int64
	err error
}

func (f fixedCounter) Count(context.Context) (int64, error) {
	return f.n, f.err
}

func TestNew(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	assert.NotNil(t, hc)
	assert.Equal(t, "1.0.0", hc.version)
	assert.NotNil(t, hc.checkers)
	assert.Equal(t, 5*time.Second, hc.cacheTTL)
}

func TestHealthCheck_Check_NoCheckers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestHealthCheck_Check_OverallStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses map[string]Status
		want     Status
	}{
		{"AllHealthy", map[string]Status{"database": StatusHealthy, "redis": StatusHealthy}, StatusHealthy},
		{"OneDegraded", map[string]Status{"database": StatusHealthy, "redis": StatusDegraded}, StatusDegraded},
		{"UnhealthyWins", map[string]Status{"database": StatusUnhealthy, "redis": StatusDegraded}, StatusUnhealthy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			for name, status := range tc.statuses {
				hc.Register(name, staticChecker(status, ""))
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tc.want, response.Status)
			require.Len(t, response.Checks, len(tc.statuses))
			assert.Equal(t, "database", response.Checks[0].Name, "checks are ordered by name")
			assert.Equal(t, "redis", response.Checks[1].Name)
		})
	}
}

func TestHealthCheck_Check_Caching(t *testing.T) {
	// Arrange
	var calls int32
	hc := New("1.0.0", zap.NewNop())
	hc.Register("counted", CheckerFunc(func(ctx context.Context) (Status, string, map[string]interface{}) {
		atomic.AddInt32(&calls, 1)
		return StatusHealthy, "", nil
	}))

	// Act
	hc.Check(context.Background())
	hc.Check(context.Background())
	hc.SetCacheTTL(0)
	hc.Check(context.Background())

	// Assert
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHealthCheck_Handlers(t *testing.T) {
	cases := []struct {
		name          string
		status        Status
		wantHealth    int
		wantReadiness int
	}{
		{"Healthy", StatusHealthy, http.StatusOK, http.StatusOK},
		{"Degraded", StatusDegraded, http.StatusOK, http.StatusOK},
		{"Unhealthy", StatusUnhealthy, http.StatusServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			hc.Register("database", staticChecker(tc.status, "message"))

			router := gin.New()
			router.GET("/health", hc.Handler())
			router.GET("/ready", hc.ReadinessHandler())
			router.GET("/live", hc.LivenessHandler())

			health := httptest.NewRecorder()
			router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
			ready := httptest.NewRecorder()
			router.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/ready", nil))
			live := httptest.NewRecorder()
			router.ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/live", nil))

			assert.Equal(t, tc.wantHealth, health.Code)
			assert.Equal(t, tc.wantReadiness, ready.Code)
			assert.Equal(t, http.StatusOK, live.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(health.Body.Bytes(), &body))
			assert.Equal(t, string(tc.status), body["status"])
			assert.Contains(t, body, "total_duration_ms")
		})
	}
}

func TestCheckerFunc_ShouldTimeAndSerialize(t *testing.T) {
	check := CheckerFunc(func(ctx context.Context) (Status, string, map[string]interface{}) {
		time.Sleep(2 * time.Millisecond)
		return StatusDegraded, "slow", map[string]interface{}{"k": "v"}
	}).Check(context.Background())

	data, err := json.Marshal(check)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.GreaterOrEqual(t, out["duration_ms"], float64(2))
	assert.Equal(t, "degraded", out["status"])
	assert.Equal(t, "slow", out["message"])
	assert.Equal(t, map[string]interface{}{"k": "v"}, out["metadata"])
}

func TestRecipeCountChecker(t *testing.T) {
	cases := []struct {
		name    string
		counter fixedCounter
		want    Status
	}{
		{"Stocked_ShouldBeHealthy", fixedCounter{n: 3}, StatusHealthy},
		{"Empty_ShouldBeDegraded", fixedCounter{}, StatusDegraded},
		{"Error_ShouldBeUnhealthy", fixedCounter{err: errors.New("store closed")}, StatusUnhealthy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			check := NewRecipeCountChecker(tc.counter).Check(context.Background())

			assert.Equal(t, tc.want, check.Status)
			if tc.counter.err == nil {
				assert.Equal(t, tc.counter.n, check.Metadata["recipes"])
			}
		})
	}
}

func TestDatabaseChecker(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	checker := NewDatabaseChecker(db)

	t.Run("Open_ShouldBeHealthy", func(t *testing.T) {
		check := checker.Check(context.Background())

		assert.Equal(t, StatusHealthy, check.Status)
		assert.Equal(t, 4, check.Metadata["max_open"])
	})

	t.Run("Closed_ShouldBeUnhealthy", func(t *testing.T) {
		require.NoError(t, db.Close())

		check := checker.Check(context.Background())

		assert.Equal(t, StatusUnhealthy, check.Status)
		assert.NotEmpty(t, check.Message)
	})
}
