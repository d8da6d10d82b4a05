package events

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/marketplace/pkg/logger"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultWorkers        = 4
	defaultQueueSize      = 256
	meterName             = "github.com/ghuser/marketplace/pkg/events"
)

// errNotConnected marks sends rejected before reaching a sender.
var errNotConnected = errors.New("publisher not connected")

// State is the lifecycle state of a Publisher's broker connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}

// Connector opens the broker transport. The returned publisher must be safe
// for concurrent use: every sender goroutine calls Publish on it, one message
// per call.
type Connector interface {
	Connect(ctx context.Context) (message.Publisher, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (message.Publisher, error)

// Connect calls f(ctx).
func (f ConnectorFunc) Connect(ctx context.Context) (message.Publisher, error) {
	return f(ctx)
}

// Options tunes a Publisher. Zero values fall back to defaults.
type Options struct {
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	// Workers is the number of sender goroutines. Messages are assigned to a
	// sender by routing key, so per-key order is kept regardless of this value.
	Workers   int
	QueueSize int
	// Meter records publish outcomes; defaults to the global OTel meter provider.
	Meter metric.Meter
}

// PublishOptions is the per-call delivery policy.
type PublishOptions struct {
	// Critical events fail the calling operation when they cannot be sent.
	// Non-critical events degrade: the failure is recorded and swallowed.
	Critical bool
	// CorrelationID is used for logging; defaults to the message header.
	CorrelationID string
}

// Outcome classifies a publish attempt.
type Outcome int

const (
	OutcomeDelivered Outcome = iota + 1
	OutcomeDegraded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports what happened to one published message.
// Err is the observed failure for OutcomeDegraded and the cause for OutcomeFailed.
type Result struct {
	Outcome Outcome
	Topic   string
	Key     string
	Err     error
}

// Delivered reports whether the broker accepted the message.
func (r Result) Delivered() bool { return r.Outcome == OutcomeDelivered }

// Degraded reports whether a non-critical message was dropped.
func (r Result) Degraded() bool { return r.Outcome == OutcomeDegraded }

type sendRequest struct {
	ctx      context.Context
	deadline time.Time
	topic    string
	msg      *message.Message
	done     chan error
}

// Publisher owns one broker connection per process and enforces the
// critical/non-critical policy on every send. It is safe for concurrent use.
//
// The connection is opened by Connect and released by Disconnect; a Publisher
// is injected into every service producer rather than held as a global.
type Publisher struct {
	connector Connector
	opts      Options
	log       logger.Logger

	lifecycle sync.Mutex   // serializes Connect/Disconnect
	state     atomic.Int32 // State
	mu        sync.RWMutex // guards queues against close during enqueue
	queues    []chan sendRequest
	transport message.Publisher
	wg        sync.WaitGroup

	delivered metric.Int64Counter
	degraded  metric.Int64Counter
	failed    metric.Int64Counter
}

// NewPublisher returns a disconnected Publisher. Call Connect before publishing.
func NewPublisher(connector Connector, opts Options, log logger.Logger) (*Publisher, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(meterName)
	}

	p := &Publisher{connector: connector, opts: opts, log: log}
	var err error
	if p.delivered, err = opts.Meter.Int64Counter("events.publish.delivered",
		metric.WithDescription("Events accepted by the broker")); err != nil {
		return nil, fmt.Errorf("events: delivered counter: %w", err)
	}
	if p.degraded, err = opts.Meter.Int64Counter("events.publish.degraded",
		metric.WithDescription("Non-critical events dropped because the broker was unavailable")); err != nil {
		return nil, fmt.Errorf("events: degraded counter: %w", err)
	}
	if p.failed, err = opts.Meter.Int64Counter("events.publish.failed",
		metric.WithDescription("Critical events that failed their calling operation")); err != nil {
		return nil, fmt.Errorf("events: failed counter: %w", err)
	}
	return p, nil
}

// State returns the current connection state.
func (p *Publisher) State() State {
	return State(p.state.Load())
}

// Connect opens the broker transport and starts the sender goroutines.
// It is a no-op when already connected. Failures, including ConnectTimeout
// expiry, are reported as ErrConnection; retrying is the caller's decision.
func (p *Publisher) Connect(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.State() == StateConnected {
		return nil
	}
	p.state.Store(int32(StateConnecting))

	dialCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	defer cancel()

	transport, err := p.connector.Connect(dialCtx)
	if err == nil && dialCtx.Err() != nil {
		_ = transport.Close()
		err = dialCtx.Err()
	}
	if err != nil {
		p.state.Store(int32(StateDisconnected))
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	p.mu.Lock()
	p.transport = transport
	p.queues = make([]chan sendRequest, p.opts.Workers)
	for i := range p.queues {
		q := make(chan sendRequest, p.opts.QueueSize)
		p.queues[i] = q
		p.wg.Add(1)
		go p.sender(transport, q)
	}
	p.state.Store(int32(StateConnected))
	p.mu.Unlock()

	p.log.InfoContext(ctx, "events: publisher connected", "workers", p.opts.Workers)
	return nil
}

// Disconnect stops accepting publishes, lets queued sends finish (bounded by
// ctx), and closes the transport. Safe to call when already disconnected.
func (p *Publisher) Disconnect(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.State() != StateConnected {
		return nil
	}

	p.mu.Lock()
	p.state.Store(int32(StateDisconnecting))
	for _, q := range p.queues {
		close(q)
	}
	p.queues = nil
	transport := p.transport
	p.transport = nil
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.log.WarnContext(ctx, "events: timed out draining queued sends", "error", ctx.Err())
	}

	err := transport.Close()
	p.state.Store(int32(StateDisconnected))
	if err != nil {
		return fmt.Errorf("events: close transport: %w", err)
	}
	p.log.InfoContext(ctx, "events: publisher disconnected")
	return nil
}

// Ping reports ErrPublishUnavailable unless connected. Transports exposing
// Ping(ctx) error are probed as well.
func (p *Publisher) Ping(ctx context.Context) error {
	p.mu.RLock()
	transport := p.transport
	connected := p.State() == StateConnected
	p.mu.RUnlock()

	if !connected {
		return ErrPublishUnavailable
	}
	if pinger, ok := transport.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("events: ping transport: %w", err)
		}
	}
	return nil
}

// Publish makes exactly one attempt to send msg to topic.
//
// Outcomes:
//   - broker accepted the message → OutcomeDelivered, nil error
//   - not connected, send error or PublishTimeout, with opts.Critical
//     → OutcomeFailed and an error wrapping ErrPublishUnavailable or ErrPublishFailed
//   - the same without opts.Critical → OutcomeDegraded, nil error; Result.Err holds the observation
//
// Cancelling ctx after a message was handed to a sender does not retract it.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message, opts PublishOptions) (Result, error) {
	if opts.CorrelationID == "" {
		opts.CorrelationID = msg.Metadata.Get(MetadataCorrelationID)
	}
	res := Result{Topic: topic, Key: KeyOf(msg)}
	attrs := metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.Bool("critical", opts.Critical),
	)

	if err := p.send(ctx, topic, msg); err != nil {
		return p.reject(ctx, res, opts, attrs, err)
	}

	res.Outcome = OutcomeDelivered
	p.delivered.Add(ctx, 1, attrs)
	p.log.DebugContext(ctx, "events: published",
		"topic", topic, "key", res.Key, "correlation_id", opts.CorrelationID)
	return res, nil
}

func (p *Publisher) send(ctx context.Context, topic string, msg *message.Message) error {
	deadline := time.Now().Add(p.opts.PublishTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	// Carry the caller's trace to consumers, as Subscribe expects.
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Metadata.Set(k, v)
	}

	req := sendRequest{
		ctx:      context.WithoutCancel(ctx),
		deadline: deadline,
		topic:    topic,
		msg:      msg,
		done:     make(chan error, 1),
	}
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	p.mu.RLock()
	if p.State() != StateConnected {
		p.mu.RUnlock()
		return errNotConnected
	}
	q := p.queues[shard(KeyOf(msg), len(p.queues))]
	select {
	case q <- req:
	case <-ctx.Done():
		p.mu.RUnlock()
		return fmt.Errorf("enqueue: %w", ctx.Err())
	case <-timer.C:
		p.mu.RUnlock()
		return fmt.Errorf("enqueue: send queue full for %s", p.opts.PublishTimeout)
	}
	p.mu.RUnlock()

	// Once queued the send is committed: the outcome is the transport's answer
	// or the deadline, never the caller's cancellation.
	select {
	case err := <-req.done:
		return err
	case <-timer.C:
		return fmt.Errorf("send timed out after %s", p.opts.PublishTimeout)
	}
}

func (p *Publisher) reject(ctx context.Context, res Result, opts PublishOptions, attrs metric.AddOption, cause error) (Result, error) {
	sentinel := ErrPublishFailed
	if errors.Is(cause, errNotConnected) {
		sentinel = ErrPublishUnavailable
	}
	res.Err = fmt.Errorf("%w: topic %s key %s: %w", sentinel, res.Topic, res.Key, cause)
	args := []any{
		"topic", res.Topic,
		"key", res.Key,
		"correlation_id", opts.CorrelationID,
		"error", cause,
	}

	if !opts.Critical {
		res.Outcome = OutcomeDegraded
		p.degraded.Add(ctx, 1, attrs)
		p.log.WarnContext(ctx, "events: non-critical publish dropped", args...)
		return res, nil
	}

	res.Outcome = OutcomeFailed
	p.failed.Add(ctx, 1, attrs)
	p.log.ErrorContext(ctx, "events: critical publish failed", args...)
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(res.Err)
	}
	return res, res.Err
}

// sender drains one queue in order. Requests whose deadline passed while
// queued are not sent; their caller has already reported a timeout.
func (p *Publisher) sender(transport message.Publisher, q <-chan sendRequest) {
	defer p.wg.Done()
	for req := range q {
		ctx, cancel := context.WithDeadline(req.ctx, req.deadline)
		if err := ctx.Err(); err != nil {
			cancel()
			req.done <- fmt.Errorf("expired in queue: %w", err)
			continue
		}
		req.msg.SetContext(ctx)
		err := transport.Publish(req.topic, req.msg)
		cancel()
		req.done <- err
	}
}

func shard(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
