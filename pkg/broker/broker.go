// Package broker provides the transports behind events.Publisher.
//
// Drivers:
//   - kafka: segmentio/kafka-go writer, hash-partitioned by routing key. Production default.
//   - postgres: Watermill SQL transport (FOR UPDATE SKIP LOCKED), optionally behind
//     the Watermill forwarder for durable publishes.
//   - memory: Watermill gochannel, in-process only. Tests and single binary dev runs.
//
// Every driver implements events.Connector. Consumers (the audit worker) use the
// driver-specific Subscribe/Consume methods; handlers are retried with backoff
// and receive a context carrying the publisher's OTel trace.
package broker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
)

const (
	maxRetries      = 3
	retryBaseDelay  = time.Second
	shutdownTimeout = 30 * time.Second
)

// Handler processes one consumed message. Returning an error triggers a retry.
type Handler func(ctx context.Context, msg *message.Message) error

// New returns the connector selected by cfg.BrokerDriver. db is required for
// the postgres driver and ignored otherwise.
func New(cfg *config.Config, db *sql.DB, log logger.Logger) (events.Connector, error) {
	switch cfg.BrokerDriver {
	case config.BrokerKafka:
		k, err := NewKafka(KafkaConfig{
			Brokers:      cfg.Brokers(),
			WriteTimeout: cfg.PublishTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		return k, nil
	case config.BrokerPostgres:
		if db == nil {
			return nil, fmt.Errorf("broker: postgres driver requires a database")
		}
		pg, err := NewPostgres(db, PostgresConfig{
			ConsumerGroup: cfg.ServiceName + "-consumer",
			UseForwarder:  cfg.BrokerUseForwarder,
		}, log)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case config.BrokerMemory:
		return NewMemory(log), nil
	default:
		return nil, fmt.Errorf("broker: unknown driver %q", cfg.BrokerDriver)
	}
}

// messageContext restores the publisher's trace context from message metadata.
func messageContext(ctx context.Context, msg *message.Message) context.Context {
	carrier := propagation.MapCarrier{}
	for k, v := range msg.Metadata {
		carrier[k] = v
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// retryWithBackoff calls handler up to maxRetries times with exponential backoff.
// Returns nil on first success; returns the last error after all retries exhaust.
func retryWithBackoff(
	ctx context.Context,
	msg *message.Message,
	handler Handler,
	maxRetries int,
	baseDelay time.Duration,
	log logger.Logger,
) error {
	delay := baseDelay
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		log.WarnContext(ctx, "broker: handler failed, retrying",
			"attempt", attempt,
			"max_retries", maxRetries,
			"next_delay", delay,
			"message_uuid", msg.UUID,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("broker: handler failed after %d retries: %w", maxRetries, err)
}

// NewLogger bridges logger.Logger to watermill.LoggerAdapter.
func NewLogger(log logger.Logger) watermill.LoggerAdapter {
	return &slogAdapter{log: log}
}

type slogAdapter struct{ log logger.Logger }

func (a *slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(fieldsToArgs(fields), "error", err)...)
}
func (a *slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &slogAdapter{log: a.log.With(fieldsToArgs(fields)...)}
}

func fieldsToArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
