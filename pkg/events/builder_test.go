package events_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ghuser/marketplace/pkg/events"
)

func TestBuild_KeyAndHeaders(t *testing.T) {
	env, _ := events.NewEnvelope(validWidget())
	before := time.Now().UTC()
	msg, err := events.NewBuilder("widget-service").Build("w1", env, "corr-123")
	after := time.Now().UTC()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if got := events.KeyOf(msg); got != "w1" {
		t.Errorf("key: got %q, want w1", got)
	}
	h := events.HeadersOf(msg)
	if h.CorrelationID != "corr-123" {
		t.Errorf("correlationId: got %q", h.CorrelationID)
	}
	if h.Producer != "widget-service" {
		t.Errorf("producer: got %q", h.Producer)
	}
	if h.Timestamp.Before(before) || h.Timestamp.After(after) {
		t.Errorf("timestamp %v not between %v and %v", h.Timestamp, before, after)
	}
	if got := msg.Metadata.Get(events.MetadataEventType); got != "WidgetCreated" {
		t.Errorf("eventType metadata: got %q", got)
	}
	if msg.UUID == "" {
		t.Error("expected message UUID")
	}
}

func TestBuild_EmptyKey(t *testing.T) {
	env, _ := events.NewEnvelope(validWidget())
	for _, key := range []string{"", "   "} {
		msg, err := events.NewBuilder("svc").Build(key, env, "corr")
		if !errors.Is(err, events.ErrInvalidRoutingKey) {
			t.Fatalf("key %q: expected ErrInvalidRoutingKey, got %v", key, err)
		}
		if msg != nil {
			t.Fatalf("key %q: expected no message", key)
		}
	}
}

func TestBuild_ZeroEnvelope(t *testing.T) {
	if _, err := events.NewBuilder("svc").Build("k", events.Envelope{}, "corr"); err == nil {
		t.Fatal("expected error for zero envelope")
	}
}

func TestBuild_GeneratesCorrelationIDWhenAbsent(t *testing.T) {
	env, _ := events.NewEnvelope(validWidget())
	b := events.NewBuilder("svc")
	m1, _ := b.Build("w1", env, "")
	m2, _ := b.Build("w1", env, "")

	c1, c2 := events.HeadersOf(m1).CorrelationID, events.HeadersOf(m2).CorrelationID
	if c1 == "" || c2 == "" {
		t.Fatal("expected generated correlation ids")
	}
	if c1 == c2 {
		t.Error("expected distinct generated correlation ids")
	}
}

func TestBuild_PayloadRoundTrip(t *testing.T) {
	env, _ := events.NewEnvelope(validWidget())
	msg, err := events.NewBuilder("svc").Build("w1", env, "corr")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	decoded, err := events.NewCatalog(widgetSchemas).Decode(msg.Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, env) {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, env)
	}
}

func TestHeadersOf_MissingTimestamp(t *testing.T) {
	env, _ := events.NewEnvelope(validWidget())
	msg, _ := events.NewBuilder("svc").Build("w1", env, "corr")
	msg.Metadata.Set(events.MetadataTimestamp, "garbage")
	if ts := events.HeadersOf(msg).Timestamp; !ts.IsZero() {
		t.Errorf("expected zero timestamp, got %v", ts)
	}
}
