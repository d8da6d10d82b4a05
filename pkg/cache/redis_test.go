package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ghuser/marketplace/pkg/config"
)

func newTestConfig(url string) *config.Config {
	return &config.Config{RedisURL: url}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name     string
		poolSize int
		wantPool int
		wantIdle int
	}{
		{"default pool", 0, 10, 2},
		{"configured pool", 25, 25, 5},
		{"tiny pool keeps one idle", 2, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig("redis://localhost:6379/2")
			cfg.RedisPoolSize = tt.poolSize
			opts, err := clientOptions(cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opts.PoolSize != tt.wantPool || opts.MinIdleConns != tt.wantIdle {
				t.Errorf("pool=%d idle=%d, want %d/%d", opts.PoolSize, opts.MinIdleConns, tt.wantPool, tt.wantIdle)
			}
			if opts.DB != 2 {
				t.Errorf("db from URL: got %d, want 2", opts.DB)
			}
			if opts.PoolTimeout != 4*time.Second {
				t.Errorf("pool timeout: got %v", opts.PoolTimeout)
			}
		})
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), newTestConfig("not-a-valid-url")); err == nil {
		t.Fatal("expected error for invalid URL, got nil")
	}
}

func TestNewRedisClient_UnreachableHost(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), newTestConfig("redis://localhost:19999")); err == nil {
		t.Fatal("expected error when Redis is unreachable, got nil")
	}
}

// Integration tests, skipped unless REDIS_URL is set.
func TestRedisIntegration(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set; skipping integration tests")
	}

	rc, err := NewRedisClient(context.Background(), newTestConfig(redisURL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("Ping", func(t *testing.T) {
		if err := rc.Ping(context.Background()); err != nil {
			t.Fatalf("Ping failed: %v", err)
		}
	})

	t.Run("Client_NotNil", func(t *testing.T) {
		if rc.Client() == nil {
			t.Fatal("expected non-nil underlying client")
		}
	})

	t.Run("Close", func(t *testing.T) {
		if err := rc.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	})
}
