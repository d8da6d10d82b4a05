// Package eventstest provides a recording broker transport for tests of code
// that publishes through events.Publisher.
package eventstest

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
)

// Sent is one message accepted by a Transport.
type Sent struct {
	Topic   string
	Message *message.Message
}

// Transport records published messages. Fail makes every later send return err.
type Transport struct {
	mu     sync.Mutex
	sent   []Sent
	err    error
	closed bool
}

// Publish records msgs under topic, or returns the configured failure.
func (t *Transport) Publish(topic string, msgs ...*message.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	for _, m := range msgs {
		t.sent = append(t.sent, Sent{Topic: topic, Message: m})
	}
	return nil
}

// Close marks the transport closed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Fail makes subsequent sends return err. Pass nil to recover.
func (t *Transport) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// Sent returns a copy of the recorded messages in send order.
func (t *Transport) Sent() []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sent(nil), t.sent...)
}

// Topics returns the topic of every recorded message in send order.
func (t *Transport) Topics() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	for i, s := range t.sent {
		out[i] = s.Topic
	}
	return out
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Connector returns a connector that always hands out t.
func (t *Transport) Connector() events.Connector {
	return events.ConnectorFunc(func(context.Context) (message.Publisher, error) {
		return t, nil
	})
}

// NewPublisher returns a Publisher connected to t. It is disconnected when the test ends.
func NewPublisher(tb testing.TB, t *Transport) *events.Publisher {
	tb.Helper()
	p := NewDisconnectedPublisher(tb, t)
	if err := p.Connect(context.Background()); err != nil {
		tb.Fatalf("eventstest: connect: %v", err)
	}
	tb.Cleanup(func() { _ = p.Disconnect(context.Background()) })
	return p
}

// NewDisconnectedPublisher returns a Publisher over t that has not been connected.
func NewDisconnectedPublisher(tb testing.TB, t *Transport) *events.Publisher {
	tb.Helper()
	p, err := events.NewPublisher(t.Connector(), events.Options{}, logger.New(&config.Config{LogLevel: "error"}))
	if err != nil {
		tb.Fatalf("eventstest: new publisher: %v", err)
	}
	return p
}
