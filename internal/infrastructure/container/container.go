// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/alchemorsel/recipe-server/internal/application/recipe"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/http/apiserver"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/http/server"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/importer"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/monitoring"
	gormRepo "github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/postgres"
	redisRepo "github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/security"
	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
	"github.com/alchemorsel/recipe-server/pkg/healthcheck"
	"github.com/alchemorsel/recipe-server/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New builds the application graph around an already prepared config loader.
func New(loader *config.Loader) fx.Option {
	return fx.Options(
		fx.Supply(loader),
		Module,
	)
}

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	MonitoringModule,

	// Repository modules
	RepositoryModule,

	// Service modules
	ServiceModule,
	ImportModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Options(
	fx.Provide(func(loader *config.Loader) (*config.Config, error) {
		return loader.Load()
	}),
	fx.Invoke(WatchConfig),
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
		log, level, err := logger.NewWithLevel(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.IsDevelopment(),
			OutputPaths: cfg.App.LogOutputs,
		})
		if err != nil {
			return nil, level, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				_ = log.Sync()
				return nil
			},
		})
		return log.With(zap.String("service", cfg.App.Name)), level, nil
	},
)

// WatchConfig applies log level changes written to the config file.
func WatchConfig(loader *config.Loader, level zap.AtomicLevel, log *zap.Logger) {
	loader.Watch(func(cfg *config.Config) {
		next := logger.ParseLevel(cfg.App.LogLevel)
		if next != level.Level() {
			level.SetLevel(next)
		}
		log.Info("Configuration reloaded",
			zap.String("file", loader.ConfigFile()),
			zap.String("log_level", next.String()),
		)
	}, func(err error) {
		log.Warn("Ignoring invalid configuration change", zap.Error(err))
	})
}

// Database bundles the handles of the open store.
type Database struct {
	Gorm    *gorm.DB
	SQL     *sql.DB
	Dialect config.Dialect
}

// OpenDatabase opens the store named by cfg.URI.
func OpenDatabase(cfg config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	uri, err := config.ParseDatabaseURI(cfg.URI)
	if err != nil {
		return nil, err
	}

	gormLogger := gormRepo.NewZapLogger(log.Named("gorm"), cfg.LogLevel, cfg.SlowQueryThreshold)

	var db *gorm.DB
	switch uri.Dialect {
	case config.DialectSQLite:
		db, err = sqlite.SetupDatabase(uri.Path, cfg, gormLogger)
	case config.DialectPostgres:
		db, err = postgres.SetupDatabase(uri.DSN, cfg, gormLogger, log)
	default:
		err = fmt.Errorf("unsupported dialect %q", uri.Dialect)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	log.Info("Database connected", zap.String("dialect", string(uri.Dialect)))
	return &Database{Gorm: db, SQL: sqlDB, Dialect: uri.Dialect}, nil
}

// Migrate applies every pending migration.
func (d *Database) Migrate(log *zap.Logger) error {
	migrator, err := migrations.New(d.SQL, d.Dialect, log)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return migrator.Up()
}

// DatabaseModule provides the database connection. Failing to open or
// migrate the store fails application start.
var DatabaseModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*Database, error) {
		db, err := OpenDatabase(cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		if cfg.Database.AutoMigrate {
			if err := db.Migrate(log); err != nil {
				_ = db.SQL.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return db.SQL.Close()
			},
		})
		return db, nil
	},
	func(db *Database) *gorm.DB { return db.Gorm },
	func(db *Database) *sql.DB { return db.SQL },
)

// CacheModule provides the token cache: Redis when enabled, process memory otherwise.
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (redis.UniversalClient, error) {
		if !cfg.Redis.Enabled {
			return nil, nil
		}
		client, err := redisRepo.NewClient(context.Background(), cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
		return client, nil
	},
	func(lc fx.Lifecycle, client redis.UniversalClient, log *zap.Logger) outbound.CacheRepository {
		if client != nil {
			return redisRepo.NewCacheRepository(client, log)
		}
		cache := memory.NewCacheRepository()
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return cache.Close()
			},
		})
		return cache
	},
)

// MonitoringModule provides metrics and tracing
var MonitoringModule = fx.Options(
	fx.Provide(
		monitoring.NewMetricsCollector,
		func(m *monitoring.MetricsCollector) outbound.MetricsRecorder { return m },
		func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
			tracing, err := monitoring.NewTracingProvider(monitoring.TracingConfigFrom(cfg), log)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: tracing.Shutdown,
			})
			return tracing, nil
		},
	),
	fx.Invoke(func(m *monitoring.MetricsCollector, db *sql.DB) error {
		return m.RegisterDB(db, "recipes")
	}),
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	fx.Annotate(
		func(db *gorm.DB, log *zap.Logger) *gormRepo.RecipeRepository {
			return gormRepo.NewRecipeRepository(db, log)
		},
		fx.As(new(outbound.RecipeRepository)),
	),
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	recipe.NewState,
	fx.Annotate(
		recipe.NewService,
		fx.As(new(inbound.RecipeService)),
	),
	fx.Annotate(
		recipe.NewImporter,
		fx.As(new(inbound.Importer)),
	),
	func(cfg *config.Config, tokens outbound.CacheRepository, metrics outbound.MetricsRecorder, log *zap.Logger) *security.AuthService {
		return security.NewAuthService(cfg.Auth, tokens, metrics, log)
	},
)

// ImportModule provides the startup recipe loader
var ImportModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (outbound.ObjectSource, error) {
		router := &importer.Router{Files: importer.FileSource{}}
		if strings.HasPrefix(cfg.Import.From, "s3://") {
			s3, err := importer.NewS3Source(cfg.AWS, log)
			if err != nil {
				return nil, err
			}
			router.S3 = s3
		}
		return router, nil
	},
	importer.NewLoader,
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	func(cfg *config.Config, db *sql.DB, recipes outbound.RecipeRepository, client redis.UniversalClient, log *zap.Logger) *healthcheck.HealthCheck {
		health := healthcheck.New(cfg.App.Version, log)
		health.Register("database", healthcheck.NewDatabaseChecker(db))
		health.Register("recipes", healthcheck.NewRecipeCountChecker(recipes))
		if client != nil {
			health.Register("redis", healthcheck.NewRedisChecker(client))
		}
		return health
	},
	apiserver.NewAPIServer,
	handlers.NewFrontendHandlers,
	func(
		cfg *config.Config,
		log *zap.Logger,
		pages *handlers.FrontendHandlers,
		api *apiserver.APIServer,
		health *healthcheck.HealthCheck,
		metrics *monitoring.MetricsCollector,
		tracing *monitoring.TracingProvider,
	) *server.Server {
		return server.NewServer(cfg, log, pages, api.Handler(), health, metrics, tracing)
	},
)

// LifecycleModule registers lifecycle hooks
var LifecycleModule = fx.Invoke(RegisterLifecycleHooks)

// LifecycleParams are the components started and stopped with the app.
type LifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     *config.Config
	Server     *server.Server
	Loader     *importer.Loader
	Metrics    *monitoring.MetricsCollector
	Logger     *zap.Logger
}

// RegisterLifecycleHooks imports the initial recipes, then starts serving.
func RegisterLifecycleHooks(p LifecycleParams) {
	log := p.Logger.Named("lifecycle")
	background, cancel := context.WithCancel(context.Background())

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if from := p.Config.Import.From; from != "" {
				// the import may outlive the start timeout
				report, err := p.Loader.Run(context.WithoutCancel(ctx), from)
				if err != nil {
					return fmt.Errorf("failed to import recipes from %s: %w", from, err)
				}
				log.Info("Initial import finished",
					zap.Int("total", report.Total),
					zap.Int("imported", report.Imported),
					zap.Int("failed", len(report.Failures)),
					zap.Duration("duration", report.Duration),
				)
			}

			ln, err := net.Listen("tcp", p.Server.Addr())
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", p.Server.Addr(), err)
			}

			go p.Metrics.StartUptimeCounter(background)
			go func() {
				if err := p.Server.Serve(ln); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()

			timeout := p.Config.Server.ShutdownTimeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			shutdownCtx, done := context.WithTimeout(ctx, timeout)
			defer done()

			return p.Server.Shutdown(shutdownCtx)
		},
	})
}
