package handler

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Logger emits one structured access-log line per request.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// Maintenance blocks mutating requests while the maintenance flag is
// set. The flag is read from the settings store on every request, never
// from process state, so flipping it takes effect immediately across
// replicas. Store errors fail open: maintenance mode must not become an
// outage amplifier.
func (h *Handler) Maintenance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			on, err := h.admin.MaintenanceOn(r.Context())
			if err != nil {
				h.log.Warn("maintenance flag read failed", "error", err)
			} else if on {
				writeError(w, http.StatusServiceUnavailable, "service is under maintenance")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
