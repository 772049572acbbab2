// Package app wires configuration into the storage, cache and metrics
// backends shared by the api and worker binaries.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jwalitptl/scheduling-api/internal/cache"
	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverNone     = "none"
)

// App holds the process-wide dependencies. Redis and SQL are nil when the
// configuration does not use them.
type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	DB       repository.Database
	SQL      *sqlx.DB
	Redis    *goredis.Client
}

// New loads configuration from path and connects the configured backends.
func New(ctx context.Context, path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	log.SetGlobal()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		Config:   cfg,
		Logger:   log,
		Metrics:  metrics.NewWithRegistry(cfg.Metrics.Namespace, registry),
		Registry: registry,
	}

	if err := a.openDatabase(ctx); err != nil {
		return nil, err
	}

	if cfg.Redis.URL != "" {
		client, err := redis.NewClient(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = client
	}

	return a, nil
}

func (a *App) openDatabase(ctx context.Context) error {
	switch a.Config.Database.Driver {
	case DriverMemory:
		a.Logger.Warn("Using in-memory storage, data is lost on restart")
		a.DB = memory.New(memory.Options{AcceptUnknownDoctors: true})
		return nil
	case DriverPostgres, "":
		db, err := postgres.Open(ctx, a.Config.Database)
		if err != nil {
			return err
		}
		if a.Config.Database.MigrateOnStart {
			if err := postgres.Migrate(ctx, db); err != nil {
				db.Close()
				return err
			}
		}
		a.SQL = db
		a.DB = postgres.NewDatabase(db, a.Metrics)
		return nil
	default:
		return fmt.Errorf("unknown database driver %q", a.Config.Database.Driver)
	}
}

// SlotCache builds the configured slot cache. Redis falls back to memory when
// no client is connected.
func (a *App) SlotCache() cache.SlotCache {
	ttl := a.Config.Cache.SlotTTL
	switch a.Config.Cache.Driver {
	case DriverRedis:
		if a.Redis != nil {
			return cache.NewRedisSlotCache(a.Redis, ttl, a.Logger.Zerolog(), a.Metrics)
		}
		a.Logger.Warn("Redis slot cache requested without redis.url, using memory")
		return cache.NewMemorySlotCache(ttl, a.Metrics)
	case DriverMemory:
		return cache.NewMemorySlotCache(ttl, a.Metrics)
	default:
		return cache.Noop{}
	}
}

// Doctors wraps the doctor directory in a read-through cache.
func (a *App) Doctors() repository.DoctorRepository {
	return cache.NewDoctorDirectory(a.DB.Doctors(), a.Config.Cache.DoctorTTL, a.Metrics)
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error(err, "Failed to close redis client")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error(err, "Failed to close database")
		}
	}
}
