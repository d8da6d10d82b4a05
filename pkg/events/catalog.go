package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Schema decodes the raw payload of one event type.
type Schema func(raw json.RawMessage) (Payload, error)

// Schemas maps each event type of a domain to its payload decoder.
// Domain event packages export one Schemas value for the Catalog.
type Schemas map[EventType]Schema

// SchemaFor returns a Schema that strictly decodes into T: unknown fields are
// rejected and the result is validated like NewEnvelope does.
func SchemaFor[T Payload]() Schema {
	return func(raw json.RawMessage) (Payload, error) {
		var p T
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDomainObject, p.EventType(), err)
		}
		return p, nil
	}
}

// Catalog is the closed set of event types a process understands.
// It is read-only after construction and safe for concurrent use.
type Catalog struct {
	schemas Schemas
}

// NewCatalog merges the given per-domain schema sets. A duplicate event type
// is a programming error and panics at startup.
func NewCatalog(sets ...Schemas) *Catalog {
	merged := make(Schemas)
	for _, set := range sets {
		for t, s := range set {
			if _, dup := merged[t]; dup {
				panic(fmt.Sprintf("events: duplicate schema for %s", t))
			}
			merged[t] = s
		}
	}
	return &Catalog{schemas: merged}
}

// Types returns the number of registered event types.
func (c *Catalog) Types() int {
	return len(c.schemas)
}

// Decode parses a serialized envelope, dispatching on its eventType.
// Returns ErrUnknownEventType for unregistered types and ErrMalformedDomainObject
// for payloads that do not match their schema.
func (c *Catalog) Decode(data []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return Envelope{}, fmt.Errorf("events: decode envelope: %w", err)
	}
	schema, ok := c.schemas[wire.EventType]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEventType, wire.EventType)
	}
	p, err := schema(wire.Payload)
	if err != nil {
		return Envelope{}, err
	}
	if p.EventType() != wire.EventType {
		return Envelope{}, fmt.Errorf("events: schema for %s decoded a %s payload", wire.EventType, p.EventType())
	}
	return NewEnvelope(p)
}
