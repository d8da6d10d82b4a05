package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/events/eventstest"
	userevents "github.com/ghuser/marketplace/services/user/domain/events"
	"github.com/ghuser/marketplace/services/user/domain/models"
	"github.com/ghuser/marketplace/services/user/infrastructure/messaging"
)

func TestPublishUserRegistered_Connected(t *testing.T) {
	tr := &eventstest.Transport{}
	p := messaging.NewProducer(eventstest.NewPublisher(t, tr), messaging.ProducerName)

	u := &models.User{
		ID:        "u1",
		Email:     "a@b.com",
		Name:      "A",
		Role:      models.RoleBuyer,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	res, err := p.PublishUserRegistered(context.Background(), u, "corr-123")
	if err != nil || !res.Delivered() {
		t.Fatalf("publish: %s %v", res.Outcome, err)
	}

	sent := tr.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	msg := sent[0].Message
	if sent[0].Topic != userevents.TopicUserRegistered {
		t.Errorf("topic: got %q", sent[0].Topic)
	}
	if events.KeyOf(msg) != "u1" {
		t.Errorf("key: got %q", events.KeyOf(msg))
	}
	h := events.HeadersOf(msg)
	if h.CorrelationID != "corr-123" || h.Producer != "auth-service" {
		t.Errorf("headers: %+v", h)
	}

	var got map[string]any
	if err := json.Unmarshal(msg.Payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"eventType": "UserRegistered",
		"payload": map[string]any{
			"userId":    "u1",
			"email":     "a@b.com",
			"name":      "A",
			"role":      "buyer",
			"createdAt": "2024-01-01T00:00:00Z",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("envelope:\n got  %v\n want %v", got, want)
	}
}

func TestPublish_BrokerDownDegrades(t *testing.T) {
	ctx := context.Background()
	u := &models.User{ID: "u1", Email: "a@b.com", Name: "A", Role: models.RoleBuyer, CreatedAt: time.Now().UTC()}

	t.Run("disconnected", func(t *testing.T) {
		p := messaging.NewProducer(eventstest.NewDisconnectedPublisher(t, &eventstest.Transport{}), messaging.ProducerName)
		res, err := p.PublishUserRegistered(ctx, u, "corr")
		if err != nil {
			t.Fatalf("non-critical publish must not fail, got %v", err)
		}
		if !res.Degraded() || !errors.Is(res.Err, events.ErrPublishUnavailable) {
			t.Fatalf("expected degraded unavailable result, got %+v", res)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		tr := &eventstest.Transport{}
		tr.Fail(errors.New("broker down"))
		p := messaging.NewProducer(eventstest.NewPublisher(t, tr), messaging.ProducerName)
		for name, publish := range map[string]func() (events.Result, error){
			"updated": func() (events.Result, error) {
				return p.PublishUserUpdated(ctx, "u1", map[string]any{"name": "B"}, "corr")
			},
			"deleted": func() (events.Result, error) { return p.PublishUserDeleted(ctx, "u1", "corr") },
		} {
			res, err := publish()
			if err != nil || !res.Degraded() {
				t.Errorf("%s: expected degraded result, got %s %v", name, res.Outcome, err)
			}
		}
	})
}

func TestPublish_ConstructionErrors(t *testing.T) {
	tr := &eventstest.Transport{}
	p := messaging.NewProducer(eventstest.NewPublisher(t, tr), messaging.ProducerName)

	if _, err := p.PublishUserRegistered(context.Background(), &models.User{ID: "u1"}, "c"); !errors.Is(err, events.ErrMalformedDomainObject) {
		t.Errorf("expected ErrMalformedDomainObject, got %v", err)
	}
	if _, err := p.PublishUserDeleted(context.Background(), "", "c"); !errors.Is(err, events.ErrMalformedDomainObject) {
		t.Errorf("expected ErrMalformedDomainObject, got %v", err)
	}
	if n := len(tr.Sent()); n != 0 {
		t.Errorf("nothing should be sent, got %d", n)
	}
}
