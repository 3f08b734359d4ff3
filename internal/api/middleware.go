package api

import (
	"net/http"
	"time"

	"fleet-assistant/internal/chat/analytics"
	"fleet-assistant/internal/chat/store"
	apperrors "fleet-assistant/internal/common/errors"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Info("request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote":      r.RemoteAddr,
		})
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic serving request", map[string]interface{}{
					"path":  r.URL.Path,
					"panic": rec,
				})
				writeError(w, http.StatusInternalServerError, &apperrors.StandardError{
					Code:    "INTERNAL_ERROR",
					Message: "Unexpected error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// visitorMiddleware carries the visitor id to analytics consent checks and
// scopes local conversation storage to that visitor.
func visitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(HeaderVisitorID); id != "" {
			ctx := analytics.WithVisitor(r.Context(), id)
			r = r.WithContext(store.WithOwner(ctx, id))
		}
		next.ServeHTTP(w, r)
	})
}
