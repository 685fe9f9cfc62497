package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger returns a request logging middleware using zerolog. The chat
// endpoints identify the caller in the query string; when present, userId
// and sessionId are pulled into the log line so one session's turns can be
// traced across requests.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				evt := logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Str("user_agent", r.UserAgent())

				if userID := r.URL.Query().Get("userId"); userID != "" {
					evt = evt.Str("user_id", userID)
				}
				if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
					evt = evt.Str("session_id", sessionID)
				}

				evt.Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
