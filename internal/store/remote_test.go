package store_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynqcloud/catalog/internal/store"
)

// fakeRedis is an in-memory stand-in for the handful of commands Redis uses.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string][]byte{}} }

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = append([]byte(nil), value.([]byte)...)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func TestRedisBackend(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	b := store.NewRedisWithClient(fake, "catalog:")

	_, _, err := b.Read(ctx, "ratings.json")
	assert.True(t, errors.Is(err, store.ErrNotExist))

	_, err = b.Write(ctx, "ratings.json", strings.NewReader(`[{"ratingValue":4}]`))
	require.NoError(t, err)
	assert.Contains(t, fake.data, "catalog:ratings.json")

	assert.Equal(t, `[{"ratingValue":4}]`, readAll(t, b, "ratings.json"))

	assert.NoError(t, b.Ping(ctx))
}

// fakeS3 keeps objects in a map keyed by bucket/key.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func objKey(bucket, key *string) string { return aws.ToString(bucket) + "/" + aws.ToString(key) }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.objects[objKey(in.Bucket, in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(v)),
		ContentLength: aws.Int64(int64(len(v))),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objKey(in.Bucket, in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Backend(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	b := store.NewS3WithClient(fake, "catalog-bucket", "v1/")

	_, _, err := b.Read(ctx, "feedback.json")
	assert.True(t, errors.Is(err, store.ErrNotExist))

	n, err := b.Write(ctx, "feedback.json", strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, fake.objects, "catalog-bucket/v1/feedback.json")

	assert.Equal(t, "[]", readAll(t, b, "feedback.json"))

	assert.NoError(t, b.Ping(ctx))
}
