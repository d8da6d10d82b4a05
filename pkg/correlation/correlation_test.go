package correlation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var got string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})
	rr := httptest.NewRecorder()
	mw(inner).ServeHTTP(rr, req)
	return got, rr
}

func TestFromContext_Empty(t *testing.T) {
	if id := FromContext(context.Background()); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}

func TestWithID_RoundTrip(t *testing.T) {
	ctx := WithID(context.Background(), "corr-123")
	if got := FromContext(ctx); got != "corr-123" {
		t.Fatalf("expected corr-123, got %q", got)
	}
}

func TestMiddleware_AdoptsInboundHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(Header, "corr-123")

	got, rr := serve(t, Middleware, req)
	if got != "corr-123" {
		t.Errorf("context id: got %q, want corr-123", got)
	}
	if rr.Header().Get(Header) != "corr-123" {
		t.Errorf("response header: got %q", rr.Header().Get(Header))
	}
}

func TestMiddleware_FallsBackToRequestID(t *testing.T) {
	h := func(next http.Handler) http.Handler { return middleware.RequestID(Middleware(next)) }
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(middleware.RequestIDHeader, "req-42")

	got, _ := serve(t, h, req)
	if got != "req-42" {
		t.Errorf("expected chi request id, got %q", got)
	}
}

func TestMiddleware_GeneratesWhenAbsent(t *testing.T) {
	got, rr := serve(t, Middleware, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("expected generated UUID, got %q", got)
	}
	if rr.Header().Get(Header) != got {
		t.Errorf("response header %q does not match context id %q", rr.Header().Get(Header), got)
	}
}
