package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Integration test, skipped unless REDIS_URL is set.
func TestRedisStore_RevokeUser(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set; skipping integration tests")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close() //nolint:errcheck

	store := NewSessionStore(client,
		[]byte("test-auth-key-must-be-32-bytes!!"),
		[]byte("test-enc-key-must-be-32-bytes!!!"),
		false,
	)
	userID := uuid.NewString()

	// Two independent sign-ins for the same user.
	var cookies []*http.Cookie
	for range 2 {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		if err := SignIn(w, r, store, userID); err != nil {
			t.Fatalf("sign in: %v", err)
		}
		cookies = append(cookies, w.Result().Cookies()...)
	}

	ctx := context.Background()
	if n, err := client.SCard(ctx, userSessionKeyPrefix+userID).Result(); err != nil || n != 2 {
		t.Fatalf("session index: got %d (%v), want 2", n, err)
	}

	if err := store.RevokeUser(ctx, userID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	for _, c := range cookies {
		r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		r.AddCookie(c)
		session, err := store.New(r, sessionName)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if !session.IsNew {
			t.Error("revoked session was still loadable")
		}
	}
}
