package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Metadata keys set on every transport message.
const (
	MetadataKey           = "key"
	MetadataCorrelationID = "correlationId"
	MetadataProducer      = "producer"
	MetadataTimestamp     = "timestamp"
	MetadataEventType     = "eventType"
)

// Headers are the transport headers attached to a message by Builder.Build.
type Headers struct {
	CorrelationID string
	Producer      string
	Timestamp     time.Time
}

// Builder turns envelopes into watermill messages stamped with the owning
// service's identity. It holds no mutable state and is safe for concurrent use.
type Builder struct {
	producer string
	now      func() time.Time
}

// NewBuilder returns a Builder that stamps messages with producer as their origin.
func NewBuilder(producer string) *Builder {
	return &Builder{producer: producer, now: func() time.Time { return time.Now().UTC() }}
}

// Producer returns the service identity embedded in every message.
func (b *Builder) Producer() string {
	return b.producer
}

// Build serializes env and attaches routing key and headers.
// key must be the primary identifier of the entity the event is about; an
// empty key fails with ErrInvalidRoutingKey before anything is serialized.
// An empty correlationID starts a new chain with a generated id.
func (b *Builder) Build(key string, env Envelope, correlationID string) (*message.Message, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: %s message has no key", ErrInvalidRoutingKey, env.Type())
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("events: serialize envelope: %w", err)
	}
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataKey, key)
	msg.Metadata.Set(MetadataEventType, env.Type().String())
	msg.Metadata.Set(MetadataCorrelationID, correlationID)
	msg.Metadata.Set(MetadataProducer, b.producer)
	msg.Metadata.Set(MetadataTimestamp, b.now().Format(time.RFC3339Nano))
	return msg, nil
}

// KeyOf returns the routing key of msg.
func KeyOf(msg *message.Message) string {
	return msg.Metadata.Get(MetadataKey)
}

// HeadersOf reads the headers Build attached to msg. A missing or unparsable
// timestamp yields the zero time.
func HeadersOf(msg *message.Message) Headers {
	ts, _ := time.Parse(time.RFC3339Nano, msg.Metadata.Get(MetadataTimestamp))
	return Headers{
		CorrelationID: msg.Metadata.Get(MetadataCorrelationID),
		Producer:      msg.Metadata.Get(MetadataProducer),
		Timestamp:     ts,
	}
}
