// Package bootstrap brings up the process-wide runtime shared by the
// commands: tracing, the database pool and the optional Redis client.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"socially/internal/cache"
	"socially/internal/config"
	"socially/internal/database"
	"socially/internal/media"
	"socially/internal/middleware"
	"socially/internal/models"
	"socially/internal/observability"
	"socially/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "socially-api"

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs the configured schema policy after connecting.
	ApplySchema bool
	// SkipRedis leaves Redis disabled, for one-shot commands.
	SkipRedis bool
}

// Runtime holds the initialized process dependencies.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	stopTracing func(context.Context) error
}

// InitRuntime starts tracing, connects to the database and Redis, and seeds
// demo data when SEED_ON_START is set outside production.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	stopTracing, err := observability.InitTracing(TracingConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: opts.ApplySchema})
	if err != nil {
		_ = stopTracing(ctx)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rt := &Runtime{Config: cfg, DB: db, stopTracing: stopTracing}
	if !opts.SkipRedis {
		rt.Redis = cache.InitRedis(cfg.RedisURL)
	}

	if cfg.SeedOnStart && !cfg.IsProduction() {
		store, err := media.NewStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("media store init failed: %w", err)
		}
		if err := SeedIfEmpty(ctx, db, store, seed.DefaultOptions()); err != nil {
			return nil, fmt.Errorf("seed on start failed: %w", err)
		}
	}
	return rt, nil
}

// TracingConfig maps application settings onto the tracer configuration.
func TracingConfig(cfg *config.Config) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	}
}

// SeedIfEmpty seeds demo data only when no user exists yet.
func SeedIfEmpty(ctx context.Context, db *gorm.DB, store media.Store, opts seed.Options) error {
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users > 0 {
		middleware.Logger.InfoContext(ctx, "skipping seed, database already populated", slog.Int64("users", users))
		return nil
	}
	_, err := seed.NewSeeder(db, store).Run(ctx, opts)
	return err
}

// StopTracing flushes pending spans.
func (rt *Runtime) StopTracing(ctx context.Context) error {
	if rt.stopTracing == nil {
		return nil
	}
	return rt.stopTracing(ctx)
}

// Close flushes tracing and releases the database and Redis connections.
// Commands that hand the stores to a Server let Server.Shutdown close them
// and call StopTracing instead.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if err := rt.StopTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop tracing: %w", err))
	}
	if err := database.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
