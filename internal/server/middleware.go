package server

import (
	"context"
	"net/http"
	"time"

	"github.com/echomatch/echomatch/internal/logger"
)

type contextKey string

const userIDKey contextKey = "user_id"

// userIDHeader carries the identity resolved by the upstream gateway.
// Session issuance and credential parsing live there; the engine only
// trusts the resolved id.
const userIDHeader = "X-User-ID"

// RequireUser rejects requests without a resolved identity and stores the
// user id in the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			RespondJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing resolved identity"})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the resolved user id stored by RequireUser.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request through the global slog logger.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
