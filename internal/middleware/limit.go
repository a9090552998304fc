package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	// retryAfterSeconds is the value of the Retry-After header sent on 429.
	retryAfterSeconds = "1"

	// visitorTTL is how long an idle client's bucket is kept.
	visitorTTL = 3 * time.Minute

	rateLimitedPayload = `{"error":"too many requests"}`
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter gives every client IP its own token bucket. Requests over the
// budget get 429 + Retry-After immediately rather than queuing.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	rejected  atomic.Int64
	now       func() time.Time
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. rps ≤ 0 disables limiting.
func NewRateLimiter(rps, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// limiterFor returns the bucket for ip, creating it if necessary. Idle buckets
// are swept on the way, at most once per visitorTTL.
func (l *RateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > visitorTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Limit wraps a handler with the per-client budget.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	if l.rps <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiterFor(clientIP(r)).Allow() {
			l.rejected.Add(1)
			w.Header().Set("Retry-After", retryAfterSeconds)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(rateLimitedPayload)) //nolint:errcheck
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Rejected returns how many requests were turned away.
func (l *RateLimiter) Rejected() int64 { return l.rejected.Load() }

// Visitors returns the number of tracked clients.
func (l *RateLimiter) Visitors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = strings.TrimSuffix(strings.TrimPrefix(r.RemoteAddr, "["), "]")
	}
	return ip
}
