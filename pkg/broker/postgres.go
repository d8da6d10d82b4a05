package broker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/marketplace/pkg/logger"
)

// forwarderTopic is the internal outbox topic drained by the forwarder daemon.
const forwarderTopic = "_forwarder_queue"

// PostgresConfig configures the Postgres driver.
type PostgresConfig struct {
	// ConsumerGroup load-balances subscribed messages across instances; only
	// one instance in the group processes each message.
	ConsumerGroup string
	// UseForwarder routes publishes through a durable SQL queue. The forwarder
	// daemon (StartForwarder) delivers them to their target topics.
	UseForwarder bool
}

// Postgres is the Watermill SQL driver. Schema tables are created on first use.
// Subscribers must be idempotent: a failed handler is Nacked and redelivered.
type Postgres struct {
	db         *sql.DB
	cfg        PostgresConfig
	log        logger.Logger
	subscriber *watermillsql.Subscriber

	mu  sync.Mutex
	fwd *forwarder.Forwarder
	wg  sync.WaitGroup
}

// NewPostgres initializes the SQL subscriber on db. db stays owned by the caller.
func NewPostgres(db *sql.DB, cfg PostgresConfig, log logger.Logger) (*Postgres, error) {
	if cfg.ConsumerGroup == "" {
		return nil, errors.New("broker: postgres consumer group is required")
	}
	sub, err := watermillsql.NewSubscriber(
		db,
		watermillsql.SubscriberConfig{
			SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
			ConsumerGroup:    cfg.ConsumerGroup,
		},
		NewLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("broker: new postgres subscriber: %w", err)
	}
	return &Postgres{db: db, cfg: cfg, log: log, subscriber: sub}, nil
}

// Connect pings the database and returns a SQL publisher, wrapped by the
// forwarder publisher when UseForwarder is set.
func (p *Postgres) Connect(ctx context.Context) (message.Publisher, error) {
	if err := p.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("broker: ping postgres: %w", err)
	}
	pub, err := p.newSQLPublisher()
	if err != nil {
		return nil, err
	}
	if p.cfg.UseForwarder {
		return &postgresTransport{
			Publisher: forwarder.NewPublisher(pub, forwarder.PublisherConfig{ForwarderTopic: forwarderTopic}),
			db:        p.db,
		}, nil
	}
	return &postgresTransport{Publisher: pub, db: p.db}, nil
}

func (p *Postgres) newSQLPublisher() (*watermillsql.Publisher, error) {
	pub, err := watermillsql.NewPublisher(
		p.db,
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		NewLogger(p.log),
	)
	if err != nil {
		return nil, fmt.Errorf("broker: new postgres publisher: %w", err)
	}
	return pub, nil
}

// StartForwarder starts the daemon that moves messages from the forwarder
// queue to their target topics. It returns once the daemon is running.
func (p *Postgres) StartForwarder(ctx context.Context) error {
	if !p.cfg.UseForwarder {
		return errors.New("broker: StartForwarder called without UseForwarder")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fwd != nil {
		return errors.New("broker: forwarder already started")
	}

	wlog := NewLogger(p.log)
	fwdSub, err := watermillsql.NewSubscriber(
		p.db,
		watermillsql.SubscriberConfig{
			SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
			ConsumerGroup:    "forwarder-consumer",
		},
		wlog,
	)
	if err != nil {
		return fmt.Errorf("broker: new forwarder subscriber: %w", err)
	}
	targetPub, err := p.newSQLPublisher()
	if err != nil {
		_ = fwdSub.Close()
		return err
	}
	fwd, err := forwarder.NewForwarder(fwdSub, targetPub, wlog, forwarder.Config{
		ForwarderTopic: forwarderTopic,
	})
	if err != nil {
		_ = targetPub.Close()
		_ = fwdSub.Close()
		return fmt.Errorf("broker: create forwarder: %w", err)
	}
	p.fwd = fwd

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.log.InfoContext(ctx, "broker: forwarder started")
		if err := fwd.Run(ctx); err != nil {
			p.log.ErrorContext(ctx, "broker: forwarder stopped with error", "error", err)
			return
		}
		p.log.InfoContext(ctx, "broker: forwarder stopped")
	}()

	select {
	case <-fwd.Running():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("broker: context cancelled waiting for forwarder: %w", ctx.Err())
	}
}

// Subscribe processes messages from topic asynchronously until ctx ends.
//
// Ack/Nack is managed here:
//   - handler returns nil   → Ack
//   - handler returns error → retried up to 3× with exponential backoff (1s, 2s, 4s)
//   - all retries exhausted → Nack + error forwarded to the returned channel
//
// The returned channel is buffered (capacity 100) and must be drained.
// In-flight handlers complete before Close returns.
func (p *Postgres) Subscribe(ctx context.Context, topic string, handler Handler) (<-chan error, error) {
	ch, err := p.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("broker: subscribe to %s: %w", topic, err)
	}

	errCh := make(chan error, 100)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(errCh)

		for msg := range ch {
			msgCtx := messageContext(ctx, msg)
			if err := retryWithBackoff(msgCtx, msg, handler, maxRetries, retryBaseDelay, p.log); err != nil {
				msg.Nack()
				select {
				case errCh <- err:
				default:
					p.log.ErrorContext(msgCtx, "broker: error channel full, dropping error",
						"error", err, "topic", topic)
				}
				continue
			}
			msg.Ack()
		}
	}()
	return errCh, nil
}

// Close stops the subscriber and forwarder and waits (30s max) for in-flight
// handlers. The database is left open.
func (p *Postgres) Close() error {
	if err := p.subscriber.Close(); err != nil {
		return fmt.Errorf("broker: close subscriber: %w", err)
	}
	p.mu.Lock()
	fwd := p.fwd
	p.mu.Unlock()
	if fwd != nil {
		if err := fwd.Close(); err != nil {
			return fmt.Errorf("broker: close forwarder: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		p.log.Error("broker: timed out waiting for in-flight handlers to complete")
	}
	return nil
}

// postgresTransport adds a database probe to the SQL publisher.
type postgresTransport struct {
	message.Publisher
	db *sql.DB
}

func (t *postgresTransport) Ping(ctx context.Context) error {
	if err := t.db.PingContext(ctx); err != nil {
		return fmt.Errorf("broker: ping postgres: %w", err)
	}
	return nil
}
