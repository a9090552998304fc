package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zynqcloud/catalog/internal/catalog"
	"github.com/zynqcloud/catalog/internal/collection"
	"github.com/zynqcloud/catalog/internal/config"
	"github.com/zynqcloud/catalog/internal/store"
	"github.com/zynqcloud/catalog/internal/validate"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

type fixture struct {
	svc     *catalog.Service
	acc     *collection.Accessor
	backend *store.Local
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	backend, err := store.NewLocal(t.TempDir())
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	acc := collection.New(backend, config.Default().Collections, logger)
	v, err := validate.New()
	require.NoError(t, err)

	var seq atomic.Int64
	svc := catalog.New(acc, v, logger,
		catalog.WithClock(func() time.Time { return fixedNow }),
		catalog.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }),
	)
	return &fixture{svc: svc, acc: acc, backend: backend}
}

func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "want %v, got %v", kind, err)
}

func TestCreateFillsDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.svc.Create(ctx, map[string]any{"title": "Intro  to\tGo ", "type": "book", "level": "beginner"})
	require.NoError(t, err)

	assert.Equal(t, "id-1", r.ID())
	assert.Equal(t, "id-2", r["authorId"])
	assert.Equal(t, "http://example.com/IntrotoGo", r["url"])
	assert.Equal(t, "Intro  to\tGo ", r["title"])
	assert.Equal(t, "beginner", r["level"], "extra fields are kept")

	rs, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "id-1", rs[0].ID())
}

func TestCreateKeepsSuppliedAuthorAndURL(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Create(context.Background(), map[string]any{
		"title": "Go Blog", "type": "site", "authorId": "a-7", "url": "https://go.dev/blog",
		"id": "client-chosen", "averageRating": 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "a-7", r["authorId"])
	assert.Equal(t, "https://go.dev/blog", r["url"])
	assert.Equal(t, "id-1", r.ID(), "client ids are ignored")
	assert.NotContains(t, r, "averageRating")
}

func TestCreateRejectsMissingFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, p := range []map[string]any{{}, {"title": "x"}, {"type": "book"}, {"title": "", "type": "book"}} {
		_, err := f.svc.Create(ctx, p)
		assertKind(t, err, catalog.ErrValidation)
	}
	_, _, err := f.backend.Read(ctx, "resources.json")
	assert.True(t, errors.Is(err, store.ErrNotExist), "rejected payloads never reach storage")
}

func TestListEmptyWhenNothingStored(t *testing.T) {
	rs, err := newFixture(t).svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rs)
	assert.Empty(t, rs)
}

func TestListCorruptCollection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.backend.Write(ctx, "resources.json", strings.NewReader("{not an array"))
	require.NoError(t, err)

	_, err = f.svc.List(ctx)
	assert.True(t, errors.Is(err, collection.ErrCorrupt))
}

func TestGetWithAverageRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.svc.Create(ctx, map[string]any{"title": "Intro to Go", "type": "book"})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, r.ID())
	require.NoError(t, err)
	assert.Contains(t, got, "averageRating")
	assert.Nil(t, got["averageRating"])

	for _, v := range []int{4, 5} {
		_, err := f.svc.AddRating(ctx, r.ID(), map[string]any{"ratingValue": v})
		require.NoError(t, err)
	}
	got, err = f.svc.Get(ctx, r.ID())
	require.NoError(t, err)
	assert.Equal(t, 4.5, got["averageRating"])

	stored, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, stored[0], "averageRating", "aggregate is never persisted")
}

func TestUnknownIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Create(ctx, map[string]any{"title": "Intro to Go", "type": "book"})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, "nope")
	assertKind(t, err, catalog.ErrNotFound)
	_, err = f.svc.Update(ctx, "nope", map[string]any{"title": "x"})
	assertKind(t, err, catalog.ErrNotFound)
	assertKind(t, f.svc.Delete(ctx, "nope"), catalog.ErrNotFound)
}

func TestUpdateMergesAndKeepsID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.svc.Create(ctx, map[string]any{"title": "Intro to Go", "type": "book"})
	require.NoError(t, err)

	got, err := f.svc.Update(ctx, r.ID(), map[string]any{"id": "hijack", "type": "video", "minutes": json.Number("42")})
	require.NoError(t, err)
	assert.Equal(t, r.ID(), got.ID())
	assert.Equal(t, "video", got["type"])
	assert.Equal(t, "Intro to Go", got["title"])
	assert.Equal(t, r["url"], got["url"])

	stored, err := f.svc.Get(ctx, r.ID())
	require.NoError(t, err)
	assert.Equal(t, "video", stored["type"])
	assert.Equal(t, json.Number("42"), stored["minutes"])

	_, err = f.svc.Get(ctx, "hijack")
	assertKind(t, err, catalog.ErrNotFound)
}

func TestUpdateRejectsEmptyPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.svc.Create(ctx, map[string]any{"title": "Intro to Go", "type": "book"})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, r.ID(), map[string]any{})
	assertKind(t, err, catalog.ErrValidation)
	_, err = f.svc.Update(ctx, "nope", nil)
	assertKind(t, err, catalog.ErrValidation)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, _ := f.svc.Create(ctx, map[string]any{"title": "A", "type": "book"})
	b, _ := f.svc.Create(ctx, map[string]any{"title": "B", "type": "book"})

	require.NoError(t, f.svc.Delete(ctx, a.ID()))

	rs, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, b.ID(), rs[0].ID())

	assertKind(t, f.svc.Delete(ctx, a.ID()), catalog.ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed := []map[string]any{
		{"title": "Intro to Go", "type": "Book", "level": "beginner", "author": map[string]any{"name": "Ada"}},
		{"title": "Concurrency", "type": "book", "level": "advanced", "pages": json.Number("300")},
		{"title": "Go Tour", "type": "site", "v1.0": "yes"},
	}
	for _, p := range seed {
		_, err := f.svc.Create(ctx, p)
		require.NoError(t, err)
	}

	titles := func(rs []catalog.Resource) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r["title"].(string))
		}
		return out
	}

	tests := []struct {
		criteria map[string]string
		want     []string
	}{
		{map[string]string{}, []string{"Intro to Go", "Concurrency", "Go Tour"}},
		{map[string]string{"type": "BOOK"}, []string{"Intro to Go", "Concurrency"}},
		{map[string]string{"type": "book", "level": "Advanced"}, []string{"Concurrency"}},
		{map[string]string{"level": "beginner", "type": "site"}, []string{}},
		{map[string]string{"color": "red"}, []string{}},
		{map[string]string{"pages": "300"}, []string{"Concurrency"}},
		{map[string]string{"author.name": "ada"}, []string{"Intro to Go"}},
		{map[string]string{"author": "ada"}, []string{}},
		{map[string]string{"type": "boo"}, []string{}},
		{map[string]string{"v1.0": "YES"}, []string{"Go Tour"}},
		{map[string]string{"v1.0": "no"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.criteria), func(t *testing.T) {
			rs, err := f.svc.Search(ctx, tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(rs))
		})
	}
}

func TestAddRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r, err := f.svc.AddRating(ctx, "res-1", map[string]any{"ratingValue": json.Number("5")})
	require.NoError(t, err)
	assert.Equal(t, catalog.Rating{
		ID:          "id-1",
		ResourceID:  "res-1",
		RatingValue: 5,
		UserID:      catalog.AnonymousUser,
		Timestamp:   "2024-05-01T12:30:00.000Z",
	}, r)

	r, err = f.svc.AddRating(ctx, "res-1", map[string]any{"ratingValue": 1, "userId": "u-9", "resourceId": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "u-9", r.UserID)
	assert.Equal(t, "res-1", r.ResourceID, "path id wins over body")

	for _, bad := range []any{0, 6, 3.5, "3", nil} {
		p := map[string]any{}
		if bad != nil {
			p["ratingValue"] = bad
		}
		_, err := f.svc.AddRating(ctx, "res-1", p)
		assertKind(t, err, catalog.ErrValidation)
	}

	rs, err := f.svc.ListRatings(ctx, "res-1")
	require.NoError(t, err)
	assert.Len(t, rs, 2)
}

func TestRatingForUnknownResourceIsAccepted(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddRating(context.Background(), "never-created", map[string]any{"ratingValue": 3})
	assert.NoError(t, err)
}

func TestAverageRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	avg, err := f.svc.AverageRating(ctx, "r")
	require.NoError(t, err)
	assert.Nil(t, avg)

	for _, v := range []int{5, 4, 4} {
		_, err := f.svc.AddRating(ctx, "r", map[string]any{"ratingValue": v})
		require.NoError(t, err)
	}
	_, err = f.svc.AddRating(ctx, "other", map[string]any{"ratingValue": 1})
	require.NoError(t, err)

	avg, err = f.svc.AverageRating(ctx, "r")
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.Equal(t, 4.33, *avg)
}

func TestFeedbackLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	fb, err := f.svc.AddFeedback(ctx, "res-1", map[string]any{"feedbackText": "   Really helpful intro.  ", "userId": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Really helpful intro.", fb.FeedbackText)
	assert.Equal(t, "alice", fb.UserID)
	assert.Equal(t, "res-1", fb.ResourceID)

	anon, err := f.svc.AddFeedback(ctx, "res-1", map[string]any{"feedbackText": "Anonymous thoughts here"})
	require.NoError(t, err)
	assert.Equal(t, catalog.AnonymousUser, anon.UserID)

	up, err := f.svc.UpdateFeedback(ctx, "res-1", fb.ID, map[string]any{"feedbackText": "Updated and still helpful", "userId": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Updated and still helpful", up.FeedbackText)
	assert.Equal(t, fb.ID, up.ID)

	list, err := f.svc.ListFeedback(ctx, "res-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Updated and still helpful", list[0].FeedbackText)

	require.NoError(t, f.svc.DeleteFeedback(ctx, "res-1", fb.ID, "alice"))
	list, err = f.svc.ListFeedback(ctx, "res-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFeedbackValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, p := range []map[string]any{
		{},
		{"feedbackText": strings.Repeat("x", 9)},
		{"feedbackText": strings.Repeat("x", 501)},
		{"feedbackText": json.Number("12345678901")},
	} {
		_, err := f.svc.AddFeedback(ctx, "res-1", p)
		assertKind(t, err, catalog.ErrValidation)
	}
	_, err := f.svc.AddFeedback(ctx, "", map[string]any{"feedbackText": strings.Repeat("x", 10)})
	assertKind(t, err, catalog.ErrValidation)

	fb, err := f.svc.AddFeedback(ctx, "res-1", map[string]any{"feedbackText": strings.Repeat("x", 500), "userId": "bob"})
	require.NoError(t, err)

	_, err = f.svc.UpdateFeedback(ctx, "res-1", fb.ID, map[string]any{"feedbackText": "long enough text"})
	assertKind(t, err, catalog.ErrValidation)
	_, err = f.svc.UpdateFeedback(ctx, "res-1", fb.ID, map[string]any{"feedbackText": "short", "userId": "bob"})
	assertKind(t, err, catalog.ErrValidation)
	assertKind(t, f.svc.DeleteFeedback(ctx, "res-1", fb.ID, ""), catalog.ErrValidation)
}

func TestFeedbackOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fb, err := f.svc.AddFeedback(ctx, "res-1", map[string]any{"feedbackText": "Owned by alice only", "userId": "alice"})
	require.NoError(t, err)

	// Update treats the owner as part of the key: a wrong owner reads as missing.
	_, err = f.svc.UpdateFeedback(ctx, "res-1", fb.ID, map[string]any{"feedbackText": "mallory was here!", "userId": "mallory"})
	assertKind(t, err, catalog.ErrNotFound)
	_, err = f.svc.UpdateFeedback(ctx, "res-2", fb.ID, map[string]any{"feedbackText": "wrong resource here", "userId": "alice"})
	assertKind(t, err, catalog.ErrNotFound)

	// Delete compares the owner explicitly.
	assertKind(t, f.svc.DeleteFeedback(ctx, "res-1", fb.ID, "mallory"), catalog.ErrForbidden)
	assertKind(t, f.svc.DeleteFeedback(ctx, "res-1", "missing", "alice"), catalog.ErrNotFound)
	assertKind(t, f.svc.DeleteFeedback(ctx, "res-2", fb.ID, "alice"), catalog.ErrNotFound)

	list, err := f.svc.ListFeedback(ctx, "res-1")
	require.NoError(t, err)
	assert.Len(t, list, 1, "denied delete leaves the record")
}

func TestDomainErrorCarriesMessage(t *testing.T) {
	_, err := newFixture(t).svc.Get(context.Background(), "abc")
	var ce *catalog.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Resource with ID abc not found.", ce.Msg)
}
