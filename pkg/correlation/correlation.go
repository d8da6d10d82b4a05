// Package correlation carries the per-request correlation id from the edge
// of the system through every internal call into published message headers.
package correlation

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Header is the HTTP header used to accept and echo the correlation id.
const Header = "X-Correlation-Id"

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithID returns a new context carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// FromContext returns the correlation id in ctx, or "" if none was set.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// Middleware adopts the inbound X-Correlation-Id, falling back to chi's
// request id and then to a fresh UUID. The id is stored in the request
// context and echoed on the response. Mount after middleware.RequestID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = middleware.GetReqID(r.Context())
		}
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}
