package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/simpleg-eu/cp-core/internal/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an id, reusing a valid incoming one, and
// attaches a logger carrying it to the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		l := logger.FromContext(r.Context()).With("request_id", id)
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
	})
}
