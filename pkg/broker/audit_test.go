package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
)

func auditMessage(t *testing.T) *message.Message {
	t.Helper()
	env, err := events.NewEnvelope(noteAdded{NoteID: "n1", Text: "hello"})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	msg, err := events.NewBuilder("note-service").Build("n1", env, "corr-audit")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return msg
}

func TestAuditHandler_LogsDecodedEvent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{LogLevel: "info"}, &buf)
	cat := events.NewCatalog(events.Schemas{"NoteAdded": events.SchemaFor[noteAdded]()})

	if err := AuditHandler(cat, log)(context.Background(), auditMessage(t)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if line["msg"] != "audit: event" {
		t.Errorf("msg: got %v", line["msg"])
	}
	for k, want := range map[string]string{
		"event_type":     "NoteAdded",
		"key":            "n1",
		"producer":       "note-service",
		"correlation_id": "corr-audit",
	} {
		if line[k] != want {
			t.Errorf("%s: got %v, want %q", k, line[k], want)
		}
	}
}

func TestAuditHandler_UnknownTypeIsAcknowledged(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.Config{LogLevel: "info"}, &buf)

	if err := AuditHandler(events.NewCatalog(), log)(context.Background(), auditMessage(t)); err != nil {
		t.Fatalf("an undecodable message must not be retried, got %v", err)
	}
	if !strings.Contains(buf.String(), "audit: undecodable event") {
		t.Errorf("expected undecodable log line, got %s", buf.String())
	}
}

func TestMemory_ConsumeRunsHandler(t *testing.T) {
	mem := NewMemory(nopLogger())
	defer mem.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan string, 1)
	err := mem.Consume(ctx, []string{"note.added"}, func(_ context.Context, msg *message.Message) error {
		got <- events.KeyOf(msg)
		return nil
	})
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	transport, err := mem.Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := transport.Publish("note.added", auditMessage(t)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case key := <-got:
		if key != "n1" {
			t.Errorf("key: got %q, want n1", key)
		}
	case <-ctx.Done():
		t.Fatal("handler was not called")
	}
}
