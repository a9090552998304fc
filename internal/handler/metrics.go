package handler

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Metrics holds process-lifetime atomic counters exposed at GET /metrics.
type Metrics struct {
	ResourcesCreated atomic.Int64
	ResourcesUpdated atomic.Int64
	ResourcesDeleted atomic.Int64
	RatingsAdded     atomic.Int64
	FeedbackCreated  atomic.Int64
	FeedbackUpdated  atomic.Int64
	FeedbackDeleted  atomic.Int64
	FeedbackDenied   atomic.Int64 // deletes refused by the ownership check
	Errors           atomic.Int64 // requests answered with 500
}

// metricsHandler serialises the current counter snapshot as a flat JSON
// object. rejectedFunc reports the rate limiter's rejections at render time.
func (m *Metrics) metricsHandler(rejectedFunc func() int64) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{ //nolint:errcheck
			"resources_created": m.ResourcesCreated.Load(),
			"resources_updated": m.ResourcesUpdated.Load(),
			"resources_deleted": m.ResourcesDeleted.Load(),
			"ratings_added":     m.RatingsAdded.Load(),
			"feedback_created":  m.FeedbackCreated.Load(),
			"feedback_updated":  m.FeedbackUpdated.Load(),
			"feedback_deleted":  m.FeedbackDeleted.Load(),
			"feedback_denied":   m.FeedbackDenied.Load(),
			"errors":            m.Errors.Load(),
			"rate_limited":      rejectedFunc(),
		})
	}
}
