package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/armistcxy/url-shorten/internal/adapter/repository/bolt"
	"github.com/armistcxy/url-shorten/internal/adapter/repository/cache"
	"github.com/armistcxy/url-shorten/internal/adapter/repository/postgres"
	"github.com/armistcxy/url-shorten/internal/config"

	pg "github.com/armistcxy/url-shorten/pkg/postgres"
)

// OpenStore builds the configured storage driver, wrapped in the configured
// cache. The returned func releases everything that was opened.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Store, func(), error) {
	var (
		store   cache.Store
		closers []func() error
	)

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("failed to release resource", slog.Any("err", err))
			}
		}
	}

	switch cfg.Storage.Driver {
	case config.StorageDriverBolt:
		db, err := bolt.Open(cfg.Bolt.Path, cfg.Bolt.OpenTimeout)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, db.Close)

		store = bolt.NewURLRepository(db, cfg.Storage.Timeout)

	default:
		db, err := pg.New(
			ctx,
			cfg.Postgres.DSN(),
			pg.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			pg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			pg.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			pg.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, db.Close)

		version, err := pg.RunMigrations(cfg.MigrationsPath, cfg.Postgres.DSN())
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		logger.Info("database schema is up to date", slog.Uint64("version", uint64(version)))

		store = postgres.NewURLRepository(db, cfg.Storage.Timeout)
	}

	switch cfg.Cache.Driver {
	case config.CacheDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		closers = append(closers, client.Close)

		if err := client.Ping(ctx).Err(); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		store = cache.NewRepository(store, cache.NewRedisCache(client, cfg.Cache.TTL), logger)

	case config.CacheDriverMemory:
		c, err := cache.NewMemoryCache(cfg.Cache.Memory.MaxItems, cfg.Cache.TTL)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() error {
			c.Close()
			return nil
		})

		store = cache.NewRepository(store, c, logger)
	}

	return store, closeAll, nil
}
