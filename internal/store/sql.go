package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Driver string
	Schema string
	Select string
	Upsert string

	// MaxOpenConns caps the pool; 0 leaves the driver default.
	MaxOpenConns int
	// Pragmas run once per NewSQL, before the schema.
	Pragmas []string
}

var (
	// SQLite stores each collection document as a BLOB row.
	SQLite = Dialect{
		Driver: "sqlite",
		Schema: `CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			body BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		Select: `SELECT body FROM collections WHERE name = ?`,
		Upsert: `INSERT INTO collections (name, body, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		// SQLite has one writer per file; a single connection queues
		// callers instead of failing them with SQLITE_BUSY.
		MaxOpenConns: 1,
		Pragmas: []string{
			`PRAGMA busy_timeout = 5000`,
			`PRAGMA journal_mode = WAL`,
		},
	}

	// Postgres stores each collection document as a BYTEA row.
	Postgres = Dialect{
		Driver: "postgres",
		Schema: `CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			body BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		Select: `SELECT body FROM collections WHERE name = $1`,
		Upsert: `INSERT INTO collections (name, body, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
	}
)

// SQL keeps one row per collection in a "collections" table. A single-row
// upsert replaces the whole document, which gives the same all-or-nothing
// write as Local's rename.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens dsn with the dialect's driver and migrates the schema.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQL, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Driver, err)
	}
	s, err := NewSQL(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL wraps an existing handle and ensures the table exists.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	if dialect.MaxOpenConns > 0 {
		db.SetMaxOpenConns(dialect.MaxOpenConns)
	}
	for _, p := range dialect.Pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return nil, fmt.Errorf("migrate collections table: %w", err)
	}
	return &SQL{db: db, dialect: dialect}, nil
}

// Write replaces the document stored under path.
func (s *SQL) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("buffer document: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert, path, body, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("upsert %q: %w", path, err)
	}
	return int64(len(body)), nil
}

// Read returns the document stored under path.
func (s *SQL) Read(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, s.dialect.Select, path).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("select %q: %w", path, err)
	}
	return io.NopCloser(bytes.NewReader(body)), int64(len(body)), nil
}

// Ping checks the database connection.
func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQL) Close() error {
	return s.db.Close()
}
