package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/events/eventstest"
	orderevents "github.com/ghuser/marketplace/services/order/domain/events"
	"github.com/ghuser/marketplace/services/order/domain/models"
	"github.com/ghuser/marketplace/services/order/infrastructure/messaging"
)

func sampleOrder() *models.Order {
	now := time.Now().UTC()
	return &models.Order{
		ID:          "o1",
		BuyerID:     "b1",
		Items:       []models.Item{{ProductID: "p1", VariantID: "v1", Quantity: 1, Price: 3, SellerID: "s1"}},
		TotalAmount: 3,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestPublishOrderCreated_Delivered(t *testing.T) {
	tr := &eventstest.Transport{}
	p := messaging.NewProducer(eventstest.NewPublisher(t, tr), messaging.ProducerName)

	res, err := p.PublishOrderCreated(context.Background(), sampleOrder(), "corr-1")
	if err != nil || !res.Delivered() {
		t.Fatalf("publish: %s %v", res.Outcome, err)
	}
	sent := tr.Sent()
	if len(sent) != 1 || sent[0].Topic != orderevents.TopicOrderCreated {
		t.Fatalf("unexpected sends: %v", tr.Topics())
	}
	if events.KeyOf(sent[0].Message) != "o1" || events.HeadersOf(sent[0].Message).Producer != "order-service" {
		t.Errorf("unexpected metadata: %v", sent[0].Message.Metadata)
	}
}

func TestPublish_Criticality(t *testing.T) {
	ctx := context.Background()
	p := messaging.NewProducer(eventstest.NewDisconnectedPublisher(t, &eventstest.Transport{}), messaging.ProducerName)

	if _, err := p.PublishOrderCreated(ctx, sampleOrder(), "c"); !errors.Is(err, events.ErrPublishUnavailable) {
		t.Errorf("created: expected ErrPublishUnavailable, got %v", err)
	}
	if _, err := p.PublishOrderCancelled(ctx, sampleOrder(), "c"); !errors.Is(err, events.ErrPublishUnavailable) {
		t.Errorf("cancelled: expected ErrPublishUnavailable, got %v", err)
	}
	res, err := p.PublishOrderStatusUpdated(ctx, "o1", models.StatusShipped, "c")
	if err != nil || !res.Degraded() {
		t.Errorf("status updated: expected degraded, got %s %v", res.Outcome, err)
	}
}

func TestPublishOrderCancelled_TransportFailure(t *testing.T) {
	tr := &eventstest.Transport{}
	tr.Fail(errors.New("broker down"))
	p := messaging.NewProducer(eventstest.NewPublisher(t, tr), messaging.ProducerName)

	res, err := p.PublishOrderCancelled(context.Background(), sampleOrder(), "c")
	if !errors.Is(err, events.ErrPublishFailed) || res.Outcome != events.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s %v", res.Outcome, err)
	}
}
