package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of *redis.Client used by Redis.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Redis keeps each collection document under one string key. SET replaces
// the value in a single command, so writes are all-or-nothing.
type Redis struct {
	client redisClient
	prefix string
}

// RedisConfig holds connection settings for NewRedis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // optional key prefix, e.g. "catalog:"
}

// NewRedis connects to a Redis server.
func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{client: rdb, prefix: cfg.Prefix}
}

func newRedisWithClient(client redisClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) key(path string) string { return s.prefix + path }

// Write stores the full document under path.
func (s *Redis) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("buffer document: %w", err)
	}
	if err := s.client.Set(ctx, s.key(path), body, 0).Err(); err != nil {
		return 0, fmt.Errorf("redis set %q: %w", path, err)
	}
	return int64(len(body)), nil
}

// Read fetches the document stored under path.
func (s *Redis) Read(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	body, err := s.client.Get(ctx, s.key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("redis get %q: %w", path, err)
	}
	return io.NopCloser(bytes.NewReader(body)), int64(len(body)), nil
}

// Ping checks the server connection.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *Redis) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
