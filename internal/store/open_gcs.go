//go:build gcp

package store

import (
	"context"

	"github.com/zynqcloud/catalog/internal/config"
)

func openGCS(ctx context.Context, cfg *config.Config) (Backend, error) {
	return NewGCS(ctx, GCSConfig{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
}
