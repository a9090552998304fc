package store

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned (possibly wrapped) by Read when the path is absent.
var ErrNotExist = errors.New("store: path does not exist")

// Backend abstracts the medium a collection document is persisted to.
// Swap Local for SQL, Redis, S3 or GCS without touching the catalog code.
type Backend interface {
	// Write streams r to path, returning bytes written.
	// Implementations must be atomic: either the full write succeeds or nothing is persisted.
	Write(ctx context.Context, path string, r io.Reader) (int64, error)

	// Read opens path for streaming. Caller must close the returned ReadCloser.
	// A missing path yields an error matching ErrNotExist.
	Read(ctx context.Context, path string) (rc io.ReadCloser, size int64, err error)
}

// Pinger is implemented by backends that can report reachability for the
// readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
