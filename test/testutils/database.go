package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/postgres"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/sqlite"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDatabase provides a migrated test database with cleanup
type TestDatabase struct {
	Dialect   config.Dialect
	DB        *sql.DB
	GormDB    *gorm.DB
	PgxPool   *pgxpool.Pool
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// TestDatabaseConfig returns pool settings suited to tests
func TestDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		MaxOpenConns: 8,
		MaxIdleConns: 4,
		BusyTimeout:  10 * time.Second,
	}
}

// NewSQLiteDatabase creates a migrated SQLite database in a temp directory.
func NewSQLiteDatabase(t *testing.T) *TestDatabase {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "recipes.db")
	gormDB, err := sqlite.SetupDatabase(path, TestDatabaseConfig(), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err, "Failed to open sqlite database")

	td := newTestDatabase(t, config.DialectSQLite, gormDB, path)
	t.Cleanup(td.Cleanup)
	return td
}

// PostgresConfig holds test container configuration
type PostgresConfig struct {
	Image    string
	Database string
	Username string
	Password string
	Port     string
}

// DefaultPostgresConfig returns the default test database configuration
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Image:    "postgres:15-alpine",
		Database: "recipes_test",
		Username: "test_user",
		Password: "test_password",
		Port:     "5432",
	}
}

// NewPostgresDatabase starts PostgreSQL with testcontainers and migrates it.
func NewPostgresDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	cfg := DefaultPostgresConfig()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        cfg.Image,
				ExposedPorts: []string{cfg.Port + "/tcp"},
				Env: map[string]string{
					"POSTGRES_DB":       cfg.Database,
					"POSTGRES_USER":     cfg.Username,
					"POSTGRES_PASSWORD": cfg.Password,
				},
				WaitingFor: wait.ForAll(
					wait.ForLog("database system is ready to accept connections").
						WithOccurrence(2).
						WithStartupTimeout(60*time.Second),
					wait.ForSQL(nat.Port(cfg.Port+"/tcp"), "pgx", func(host string, port nat.Port) string {
						return postgresDSN(cfg, host, port.Port())
					}),
				),
			},
			Started: true,
		})
	require.NoError(t, err, "Failed to start postgres container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port(cfg.Port+"/tcp"))
	require.NoError(t, err)

	dsn := postgresDSN(cfg, host, port.Port())
	gormDB, err := postgres.SetupDatabase(dsn, TestDatabaseConfig(), logger.Default.LogMode(logger.Silent), zap.NewNop())
	require.NoError(t, err, "Failed to create GORM connection")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "Failed to create pgx pool")

	td := newTestDatabase(t, config.DialectPostgres, gormDB, dsn)
	td.Container = container
	td.PgxPool = pool
	t.Cleanup(td.Cleanup)
	return td
}

func postgresDSN(cfg PostgresConfig, host, port string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username, cfg.Password, host, port, cfg.Database)
}

func newTestDatabase(t *testing.T, dialect config.Dialect, gormDB *gorm.DB, dsn string) *TestDatabase {
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)

	migrator, err := migrations.New(sqlDB, dialect, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, migrator.Up(), "Failed to run migrations")
	require.NoError(t, migrator.Close())

	return &TestDatabase{
		Dialect: dialect,
		DB:      sqlDB,
		GormDB:  gormDB,
		DSN:     dsn,
		t:       t,
	}
}

// CountRecords counts records in a table
func (td *TestDatabase) CountRecords(table string) int64 {
	td.t.Helper()
	var count int64
	require.NoError(td.t, td.GormDB.Table(table).Count(&count).Error)
	return count
}

// Cleanup closes all connections and stops the container
func (td *TestDatabase) Cleanup() {
	if td.PgxPool != nil {
		td.PgxPool.Close()
	}

	if td.DB != nil {
		_ = td.DB.Close()
	}

	if td.Container != nil {
		if err := td.Container.Terminate(context.Background()); err != nil {
			td.t.Logf("Failed to terminate postgres container: %v", err)
		}
	}
}
