package broker

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/ghuser/marketplace/pkg/logger"
)

// Memory is an in-process broker. Messages published while no subscriber is
// attached are kept and replayed to the first subscriber of the topic.
type Memory struct {
	ch  *gochannel.GoChannel
	log logger.Logger
}

// NewMemory returns an in-process broker.
func NewMemory(log logger.Logger) *Memory {
	return &Memory{
		ch: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
			Persistent:          true,
		}, NewLogger(log)),
		log: log,
	}
}

// Connect returns a transport over the shared channel. Closing the transport
// leaves the channel open so a Publisher can reconnect.
func (m *Memory) Connect(context.Context) (message.Publisher, error) {
	return memoryTransport{ch: m.ch}, nil
}

// Subscribe returns the raw message stream for topic. Callers must Ack each message.
func (m *Memory) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	out, err := m.ch.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("broker: subscribe to %s: %w", topic, err)
	}
	return out, nil
}

// Consume runs handler for every message on topics until ctx is cancelled
// or the broker is closed. A message whose handler exhausts its retries is
// logged and acknowledged.
func (m *Memory) Consume(ctx context.Context, topics []string, handler Handler) error {
	for _, topic := range topics {
		ch, err := m.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go func(topic string, ch <-chan *message.Message) {
			for msg := range ch {
				msgCtx := messageContext(ctx, msg)
				if err := retryWithBackoff(msgCtx, msg, handler, maxRetries, retryBaseDelay, m.log); err != nil {
					m.log.ErrorContext(msgCtx, "broker: dropping memory message", "topic", topic, "error", err)
				}
				msg.Ack()
			}
		}(topic, ch)
	}
	return nil
}

// Close shuts the channel down and ends every subscription.
func (m *Memory) Close() error {
	return m.ch.Close()
}

type memoryTransport struct {
	ch *gochannel.GoChannel
}

func (t memoryTransport) Publish(topic string, msgs ...*message.Message) error {
	return t.ch.Publish(topic, msgs...)
}

func (t memoryTransport) Close() error { return nil }
