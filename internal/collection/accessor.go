// Package collection loads and persists named JSON-array collections on top
// of a store.Backend.
//
// Every call goes back to the backend; nothing is cached between requests.
// Mutate serializes read-modify-write cycles per collection so two concurrent
// writers cannot silently discard each other's update. Plain loads take no lock.
package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zynqcloud/catalog/internal/store"
)

var (
	// ErrNotFound means the collection has never been written.
	ErrNotFound = errors.New("collection not found")
	// ErrCorrupt means the stored document is not a JSON array.
	ErrCorrupt = errors.New("collection corrupt")
	// ErrIO wraps backend read and write failures.
	ErrIO = errors.New("collection i/o failure")
	// ErrUnknown means no path is configured for the collection name.
	ErrUnknown = errors.New("unknown collection")
)

const tracerName = "github.com/zynqcloud/catalog/internal/collection"

// Accessor maps collection names to backend paths.
type Accessor struct {
	backend store.Backend
	paths   map[string]string
	logger  *slog.Logger
	tracer  trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an Accessor for the given name → path mapping.
func New(backend store.Backend, paths map[string]string, logger *slog.Logger) *Accessor {
	cp := make(map[string]string, len(paths))
	for name, p := range paths {
		cp[name] = p
	}
	return &Accessor{
		backend: backend,
		paths:   cp,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (a *Accessor) path(name string) (string, error) {
	p, ok := a.paths[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return p, nil
}

func (a *Accessor) lock(name string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[name]
	if !ok {
		l = &sync.Mutex{}
		a.locks[name] = l
	}
	return l
}

// Load decodes the named collection into dst, which must point to a slice.
// Numbers are decoded as json.Number when dst holds untyped values.
func (a *Accessor) Load(ctx context.Context, name string, dst any) (err error) {
	ctx, span := a.tracer.Start(ctx, "collection.Load", trace.WithAttributes(attribute.String("collection", name)))
	defer func() { endSpan(span, err) }()

	path, err := a.path(name)
	if err != nil {
		return err
	}
	rc, _, err := a.backend.Read(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("%w: read %s: %v", ErrIO, name, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrIO, name, err)
	}
	if len(bytes.TrimSpace(body)) == 0 || bytes.TrimSpace(body)[0] != '[' {
		return fmt.Errorf("%w: %s is not a JSON array", ErrCorrupt, name)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrCorrupt, name, err)
	}
	return nil
}

// Save replaces the named collection with v, encoded as indented JSON.
func (a *Accessor) Save(ctx context.Context, name string, v any) (err error) {
	ctx, span := a.tracer.Start(ctx, "collection.Save", trace.WithAttributes(attribute.String("collection", name)))
	defer func() { endSpan(span, err) }()

	path, err := a.path(name)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if bytes.Equal(body, []byte("null")) {
		body = []byte("[]")
	}
	body = append(body, '\n')

	n, err := a.backend.Write(ctx, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIO, name, err)
	}
	a.logger.Debug("collection: saved", "collection", name, "bytes", n)
	return nil
}

// Mutate loads the named collection into dst, calls fn, and saves dst when fn
// returns nil. Calls for the same collection run one at a time. With
// missingOK, an absent collection leaves dst untouched (empty) instead of
// failing with ErrNotFound.
func (a *Accessor) Mutate(ctx context.Context, name string, dst any, missingOK bool, fn func() error) error {
	l := a.lock(name)
	l.Lock()
	defer l.Unlock()

	if err := a.Load(ctx, name, dst); err != nil {
		if !missingOK || !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if err := fn(); err != nil {
		return err
	}
	return a.Save(ctx, name, dst)
}

// Ping reports whether the backend is reachable, when it can tell.
func (a *Accessor) Ping(ctx context.Context) error {
	if p, ok := a.backend.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
