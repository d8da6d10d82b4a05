package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghuser/marketplace/pkg/broker"
	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/database"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
	"github.com/ghuser/marketplace/pkg/telemetry"
	orderEvents "github.com/ghuser/marketplace/services/order/domain/events"
	productEvents "github.com/ghuser/marketplace/services/product/domain/events"
	userEvents "github.com/ghuser/marketplace/services/user/domain/events"
)

// The worker is the audit tap: it consumes every domain topic and logs each
// decoded envelope with its correlation id. It never mutates state.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	if cfg.BrokerDriver == config.BrokerMemory {
		log.Error("the memory broker is in-process only; the api process runs its audit tap")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(context.Background()) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer pool.Close() //nolint:errcheck

	connector, err := broker.New(cfg, pool.DB(), log)
	if err != nil {
		log.Error("failed to setup broker", "driver", cfg.BrokerDriver, "error", err)
		os.Exit(1) //nolint:gocritic
	}
	// Close waits for in-flight postgres handlers.
	if c, ok := connector.(io.Closer); ok {
		defer c.Close() //nolint:errcheck
	}

	catalog := events.NewCatalog(userEvents.Schemas, productEvents.Schemas, orderEvents.Schemas)
	handler := broker.AuditHandler(catalog, log)

	log.Info("audit tap starting", "driver", cfg.BrokerDriver, "topics", allTopics())
	if err := run(ctx, cfg, connector, handler, log); err != nil {
		log.Error("audit tap stopped", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic
	}
	log.Info("worker stopped")
}

// run blocks until ctx is cancelled or the consumer fails.
func run(ctx context.Context, cfg *config.Config, conn events.Connector, handler broker.Handler, log logger.Logger) error {
	switch b := conn.(type) {
	case *broker.Kafka:
		return b.Consume(ctx, cfg.ServiceName+"-audit", allTopics(), handler)
	case *broker.Postgres:
		for _, topic := range allTopics() {
			errCh, err := b.Subscribe(ctx, topic, handler)
			if err != nil {
				return err
			}
			// Drain subscriber errors so the channel never blocks.
			go func(topic string) {
				for err := range errCh {
					log.ErrorContext(ctx, "subscriber error", "topic", topic, "error", err)
				}
			}(topic)
		}
		<-ctx.Done()
		return nil
	default:
		return errors.New("worker: broker driver has no consumer")
	}
}

func allTopics() []string {
	topics := append([]string{}, userEvents.AllTopics...)
	topics = append(topics, productEvents.AllTopics...)
	return append(topics, orderEvents.AllTopics...)
}
