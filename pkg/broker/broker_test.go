package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/logger"
)

func nopLogger() logger.Logger {
	return logger.New(&config.Config{LogLevel: "error"})
}

// TestRetryWithBackoff_SuccessOnFirstAttempt verifies no retry occurs on success.
func TestRetryWithBackoff_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	handler := func(_ context.Context, _ *message.Message) error {
		calls++
		return nil
	}
	msg := message.NewMessage("id", nil)
	if err := retryWithBackoff(context.Background(), msg, handler, maxRetries, time.Millisecond, nopLogger()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_SuccessAfterRetries(t *testing.T) {
	calls := 0
	handler := func(_ context.Context, _ *message.Message) error {
		calls++
		if calls < 3 {
			return errors.New("transient error")
		}
		return nil
	}
	msg := message.NewMessage("id", nil)
	if err := retryWithBackoff(context.Background(), msg, handler, maxRetries, time.Millisecond, nopLogger()); err != nil {
		t.Fatalf("expected nil after eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	permanent := errors.New("permanent error")
	calls := 0
	handler := func(_ context.Context, _ *message.Message) error {
		calls++
		return permanent
	}
	msg := message.NewMessage("id", nil)
	err := retryWithBackoff(context.Background(), msg, handler, maxRetries, time.Millisecond, nopLogger())
	if !errors.Is(err, permanent) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
	if calls != maxRetries {
		t.Errorf("expected %d calls, got %d", maxRetries, calls)
	}
}

// TestRetryWithBackoff_ContextCancelled verifies retry stops when context is canceled.
func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	handler := func(_ context.Context, _ *message.Message) error {
		calls++
		return errors.New("error")
	}
	msg := message.NewMessage("id", nil)
	if err := retryWithBackoff(ctx, msg, handler, maxRetries, time.Second, nopLogger()); err == nil {
		t.Fatal("expected error from canceled context")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before context cancel, got %d", calls)
	}
}

func TestStartForwarder_WithoutForwarder(t *testing.T) {
	pg := &Postgres{cfg: PostgresConfig{ConsumerGroup: "g"}, log: nopLogger()}
	if err := pg.StartForwarder(context.Background()); err == nil {
		t.Fatal("expected error when forwarder mode is off")
	}
}

func TestNewPostgres_RequiresConsumerGroup(t *testing.T) {
	if _, err := NewPostgres(nil, PostgresConfig{}, nopLogger()); err == nil {
		t.Fatal("expected error for empty consumer group")
	}
}

func TestNew_DriverSelection(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
		check   func(any) bool
	}{
		{
			name:  "memory",
			cfg:   config.Config{BrokerDriver: config.BrokerMemory},
			check: func(c any) bool { _, ok := c.(*Memory); return ok },
		},
		{
			name:  "kafka",
			cfg:   config.Config{BrokerDriver: config.BrokerKafka, KafkaBrokers: "k1:9092,k2:9092"},
			check: func(c any) bool { k, ok := c.(*Kafka); return ok && len(k.cfg.Brokers) == 2 },
		},
		{name: "kafka without brokers", cfg: config.Config{BrokerDriver: config.BrokerKafka}, wantErr: true},
		{name: "postgres without db", cfg: config.Config{BrokerDriver: config.BrokerPostgres}, wantErr: true},
		{name: "unknown", cfg: config.Config{BrokerDriver: "rabbit"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(&tt.cfg, nil, nopLogger())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if c != nil {
					t.Fatalf("expected nil connector, got %T", c)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(c) {
				t.Errorf("unexpected connector %T", c)
			}
		})
	}
}
