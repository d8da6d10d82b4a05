// Package events implements the event publishing pipeline shared by every
// service: schema-checked envelopes, transport message construction, and a
// Publisher that applies the critical/non-critical delivery policy.
//
// Flow:
//
//	envelope, err := userevents.NewUserRegistered(user)        // schema (pure)
//	msg, err := builder.Build(user.ID, envelope, correlationID) // metadata (pure)
//	result, err := publisher.Publish(ctx, topic, msg, events.PublishOptions{Critical: false})
//
// Envelopes are immutable. Payload structs are declared per domain under
// services/<svc>/domain/events and validated with go-playground/validator tags
// when the envelope is constructed.
package events

import (
	"encoding/json"
	"fmt"
	"strings"

	pkgvalidator "github.com/ghuser/marketplace/pkg/validator"
)

// EventType is the discriminant of an Envelope, e.g. "UserRegistered".
type EventType string

// String returns the underlying string value.
func (t EventType) String() string {
	return string(t)
}

// Payload is implemented by every event payload struct. Each struct reports
// the single EventType it belongs to, so an Envelope can never pair a tag
// with a foreign payload shape.
type Payload interface {
	EventType() EventType
}

// Envelope is the logical {eventType, payload} pair handed to the message builder.
// The zero value is not a valid envelope; construct with NewEnvelope.
type Envelope struct {
	eventType EventType
	payload   Payload
}

// NewEnvelope validates p against its struct tags and wraps it in an Envelope.
// Returns ErrMalformedDomainObject naming every missing or invalid field.
func NewEnvelope(p Payload) (Envelope, error) {
	if p == nil {
		return Envelope{}, fmt.Errorf("%w: nil payload", ErrMalformedDomainObject)
	}
	if err := pkgvalidator.Validate(p); err != nil {
		return Envelope{}, malformed(p.EventType(), err)
	}
	return Envelope{eventType: p.EventType(), payload: p}, nil
}

// Type returns the envelope's event type.
func (e Envelope) Type() EventType {
	return e.eventType
}

// Payload returns the envelope's payload. Payloads are value types; callers
// receive a copy.
func (e Envelope) Payload() Payload {
	return e.payload
}

// IsZero reports whether e was not built by NewEnvelope or Catalog.Decode.
func (e Envelope) IsZero() bool {
	return e.payload == nil
}

type wireEnvelope struct {
	EventType EventType       `json:"eventType"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the envelope as {"eventType": ..., "payload": {...}}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.IsZero() {
		return nil, fmt.Errorf("%w: empty envelope", ErrMalformedDomainObject)
	}
	raw, err := json.Marshal(e.payload)
	if err != nil {
		return nil, fmt.Errorf("events: marshal %s payload: %w", e.eventType, err)
	}
	return json.Marshal(wireEnvelope{EventType: e.eventType, Payload: raw})
}

func malformed(t EventType, err error) error {
	fields := pkgvalidator.FieldErrors(err)
	if len(fields) == 0 {
		return fmt.Errorf("%w: %s: %w", ErrMalformedDomainObject, t, err)
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Field + " (" + f.Message + ")"
	}
	return fmt.Errorf("%w: %s: %s", ErrMalformedDomainObject, t, strings.Join(parts, ", "))
}
