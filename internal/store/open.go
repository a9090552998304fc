package store

import (
	"context"
	"fmt"

	"github.com/zynqcloud/catalog/internal/config"
)

// Open builds the backend selected by cfg.Backend.
// Backends holding connections also implement io.Closer.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return NewLocal(cfg.DataDir)
	case config.BackendSQLite:
		return OpenSQL(ctx, SQLite, cfg.DSN)
	case config.BackendPostgres:
		return OpenSQL(ctx, Postgres, cfg.DSN)
	case config.BackendRedis:
		return NewRedis(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		}), nil
	case config.BackendS3:
		return NewS3(ctx, S3Config{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
			Prefix:   cfg.Prefix,
		})
	case config.BackendGCS:
		return openGCS(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
