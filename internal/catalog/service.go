// Package catalog implements the resource catalog: resources with CRUD and
// search, append-only ratings with a derived average, and owner-scoped
// feedback. Every operation reloads its collection through the accessor.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zynqcloud/catalog/internal/collection"
	"github.com/zynqcloud/catalog/internal/config"
	"github.com/zynqcloud/catalog/internal/validate"
)

// AnonymousUser is recorded when a rating or feedback carries no userId.
const AnonymousUser = "anonymous"

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Service is the catalog's store layer.
type Service struct {
	acc       *collection.Accessor
	validator *validate.Validator
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUID generator for record ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New returns a Service reading and writing through acc.
func New(acc *collection.Accessor, v *validate.Validator, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		acc:       acc,
		validator: v,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping reports whether the storage backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.acc.Ping(ctx)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// load reads a collection, treating one that was never written as empty.
func (s *Service) load(ctx context.Context, name string, dst any) error {
	err := s.acc.Load(ctx, name, dst)
	if errors.Is(err, collection.ErrNotFound) {
		return nil
	}
	return err
}

// mutate runs a read-modify-write on a collection that may not exist yet.
func (s *Service) mutate(ctx context.Context, name string, dst any, fn func() error) error {
	return s.acc.Mutate(ctx, name, dst, true, fn)
}

const (
	resources = config.Resources
	ratings   = config.Ratings
	feedback  = config.Feedback
)

// withFields returns a shallow copy of payload with extra fields set.
func withFields(payload map[string]any, kv ...string) map[string]any {
	doc := make(map[string]any, len(payload)+len(kv)/2)
	for k, v := range payload {
		doc[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		doc[kv[i]] = kv[i+1]
	}
	return doc
}
