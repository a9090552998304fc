//go:build !gcp

package store

import (
	"context"
	"errors"

	"github.com/zynqcloud/catalog/internal/config"
)

func openGCS(context.Context, *config.Config) (Backend, error) {
	return nil, errors.New("gcs backend not compiled in; rebuild with -tags gcp")
}
