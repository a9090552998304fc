package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zynqcloud/catalog/internal/catalog"
	"github.com/zynqcloud/catalog/internal/config"
	"github.com/zynqcloud/catalog/internal/middleware"
	"github.com/zynqcloud/catalog/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	cfg     *config.Config
	svc     *catalog.Service
	backend store.Backend
	logger  *slog.Logger
	metrics *Metrics
}

// New registers all routes and returns the root http.Handler.
//
// Middleware stack (outer → inner):
//
//	Recover → otelhttp → RequestID → RequestLog → RateLimiter → ServeMux → handler
//
// otelhttp extracts incoming trace context with the global propagator, so
// collection spans join the caller's trace.
func New(cfg *config.Config, svc *catalog.Service, backend store.Backend, logger *slog.Logger) http.Handler {
	h := &Handler{
		cfg:     cfg,
		svc:     svc,
		backend: backend,
		logger:  logger,
		metrics: &Metrics{},
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "Welcome to Resource Catalog") //nolint:errcheck
	})

	// ── Resources ────────────────────────────────────────────────────────────
	// /resources/search is a literal segment and wins over /resources/{id}.
	mux.HandleFunc("GET /resources", h.ListResources)
	mux.HandleFunc("GET /resources/search", h.SearchResources)
	mux.HandleFunc("GET /resources/{id}", h.GetResource)
	mux.HandleFunc("POST /resources", h.CreateResource)
	mux.HandleFunc("PUT /resources/{id}", h.UpdateResource)
	mux.HandleFunc("DELETE /resources/{id}", h.DeleteResource)

	// ── Ratings ──────────────────────────────────────────────────────────────
	mux.HandleFunc("POST /resources/{id}/rating", h.AddRating)
	mux.HandleFunc("GET /resources/{id}/ratings", h.ListRatings)

	// ── Feedback ─────────────────────────────────────────────────────────────
	mux.HandleFunc("GET /resources/{resourceId}/feedback", h.ListFeedback)
	mux.HandleFunc("POST /resources/{resourceId}/feedback", h.AddFeedback)
	mux.HandleFunc("PUT /resources/{resourceId}/feedback/{feedbackId}", h.UpdateFeedback)
	mux.HandleFunc("DELETE /resources/{resourceId}/feedback/{feedbackId}", h.DeleteFeedback)

	// ── Observability ─────────────────────────────────────────────────────────
	//
	// GET /health        liveness: 200 while the process is alive.
	// GET /healthz/ready readiness: backend reachable and, for the local
	//                    backend, enough free disk.
	// GET /metrics       atomic process counters as flat JSON.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz/ready", h.Readiness)
	mux.Handle("GET /metrics", h.metrics.metricsHandler(limiter.Rejected))

	var root http.Handler = mux
	root = limiter.Limit(root)
	root = middleware.RequestLog(logger)(root)
	root = middleware.RequestID(root)
	root = otelhttp.NewHandler(root, "catalog.http")
	root = middleware.Recover(logger)(root)
	return root
}

// Readiness returns 200 when the catalog can serve requests; 503 when it cannot.
// Checks performed:
//  1. The storage backend answers a ping within two seconds
//  2. Free disk space ≥ cfg.MinFreeBytes (local backend on Linux only)
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	type check struct {
		Name string `json:"name"`
		OK   bool   `json:"ok"`
		Msg  string `json:"msg,omitempty"`
	}
	var checks []check
	allOK := true

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Ping(ctx); err != nil {
		h.logger.Warn("readiness: storage ping failed", "backend", h.cfg.Backend, "err", err)
		checks = append(checks, check{"storage_reachable", false, "ping failed"})
		allOK = false
	} else {
		checks = append(checks, check{"storage_reachable", true, h.cfg.Backend})
	}

	// (0, 0) means the platform cannot report; skip rather than false-alarm.
	if ls, ok := h.backend.(*store.Local); ok {
		avail, total := ls.DiskStats()
		if total > 0 {
			if avail < uint64(h.cfg.MinFreeBytes) {
				checks = append(checks, check{
					"disk_space", false,
					fmt.Sprintf("%d MB free, need %d MB", avail>>20, h.cfg.MinFreeBytes>>20),
				})
				allOK = false
			} else {
				checks = append(checks, check{
					"disk_space", true,
					fmt.Sprintf("%d MB free of %d MB", avail>>20, total>>20),
				})
			}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": allOK, "checks": checks})
}

// errBadJSON marks a request body that is not a JSON object.
var errBadJSON = errors.New("request body must be a JSON object")

// decodeBody reads a single JSON object from r; anything after it is
// rejected. An empty body decodes to an empty object; numbers stay json.Number so integers are not widened to float.
func decodeBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", errBadJSON)
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	return doc, nil
}

// fail maps err onto a status code. Domain errors carry a client-safe
// message; anything else is logged and reported as a bare 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBadJSON) {
		writeError(w, http.StatusBadRequest, errBadJSON.Error())
		return
	}

	var ce *catalog.Error
	if errors.As(err, &ce) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, catalog.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, catalog.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, catalog.ErrForbidden):
			status = http.StatusForbidden
		}
		body := map[string]any{"error": ce.Msg}
		if len(ce.Details) > 0 {
			body["details"] = ce.Details
		}
		writeJSON(w, status, body)
		return
	}

	h.metrics.Errors.Add(1)
	h.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.RequestIDFrom(r.Context()),
		"err", err,
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
