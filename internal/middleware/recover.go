package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recover turns a panic in next into a 500 JSON response and logs the stack.
// If next already started the response, the status can no longer change and
// the panic is only logged.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error("panic recovered",
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", w.Header().Get(RequestIDHeader),
						"panic", v,
						"headers_sent", rec.wroteHeader,
						"stack", string(debug.Stack()),
					)
					if rec.wroteHeader {
						return
					}
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"internal server error"}`)) //nolint:errcheck
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
