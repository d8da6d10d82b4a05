package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/events/eventstest"
	productevents "github.com/ghuser/marketplace/services/product/domain/events"
	"github.com/ghuser/marketplace/services/product/domain/models"
	"github.com/ghuser/marketplace/services/product/infrastructure/messaging"
)

func sampleProduct() *models.Product {
	now := time.Now().UTC()
	return &models.Product{
		ID:        "p1",
		SellerID:  "s1",
		Name:      "Tee",
		Category:  "apparel",
		BasePrice: 10,
		Variants:  []models.Variant{{ID: "v1", Name: "S", SKU: "TEE-S", Stock: 5}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPublishStockDeducted_Delivered(t *testing.T) {
	tr := &eventstest.Transport{}
	p := messaging.NewProducer(eventstest.NewPublisher(t, tr), messaging.ProducerName)

	res, err := p.PublishStockDeducted(context.Background(), "p1", "v1", 3, "o1", "corr-9")
	if err != nil || !res.Delivered() {
		t.Fatalf("publish: %s %v", res.Outcome, err)
	}
	sent := tr.Sent()
	if len(sent) != 1 || sent[0].Topic != productevents.TopicStockDeducted {
		t.Fatalf("unexpected sends: %v", tr.Topics())
	}
	msg := sent[0].Message
	h := events.HeadersOf(msg)
	if h.Producer != "product-service" || h.CorrelationID != "corr-9" {
		t.Errorf("headers: %+v", h)
	}
	if events.KeyOf(msg) != "p1" {
		t.Errorf("key: got %q", events.KeyOf(msg))
	}
	if got := msg.Metadata.Get(events.MetadataEventType); got != productevents.TypeStockDeducted.String() {
		t.Errorf("eventType: got %q", got)
	}
}

func TestPublishStockDeducted_IsCritical(t *testing.T) {
	ctx := context.Background()

	t.Run("disconnected", func(t *testing.T) {
		p := messaging.NewProducer(eventstest.NewDisconnectedPublisher(t, &eventstest.Transport{}), messaging.ProducerName)
		res, err := p.PublishStockDeducted(ctx, "p1", "v1", 1, "o1", "c")
		if !errors.Is(err, events.ErrPublishUnavailable) || res.Outcome != events.OutcomeFailed {
			t.Fatalf("expected failed unavailable, got %s %v", res.Outcome, err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		tr := &eventstest.Transport{}
		tr.Fail(errors.New("leader not available"))
		p := messaging.NewProducer(eventstest.NewPublisher(t, tr), messaging.ProducerName)
		if _, err := p.PublishStockDeducted(ctx, "p1", "v1", 1, "o1", "c"); !errors.Is(err, events.ErrPublishFailed) {
			t.Fatalf("expected ErrPublishFailed, got %v", err)
		}
	})
}

func TestPublishProductEvents_NonCritical(t *testing.T) {
	p := messaging.NewProducer(eventstest.NewDisconnectedPublisher(t, &eventstest.Transport{}), messaging.ProducerName)
	for name, publish := range map[string]func() (events.Result, error){
		"created": func() (events.Result, error) {
			return p.PublishProductCreated(context.Background(), sampleProduct(), "c")
		},
		"updated": func() (events.Result, error) {
			return p.PublishProductUpdated(context.Background(), sampleProduct(), "c")
		},
	} {
		res, err := publish()
		if err != nil || !res.Degraded() {
			t.Errorf("%s: expected degraded result, got %s %v", name, res.Outcome, err)
		}
	}
}

func TestPublishStockDeducted_Malformed(t *testing.T) {
	tr := &eventstest.Transport{}
	p := messaging.NewProducer(eventstest.NewPublisher(t, tr), messaging.ProducerName)
	if _, err := p.PublishStockDeducted(context.Background(), "p1", "v1", 0, "o1", "c"); !errors.Is(err, events.ErrMalformedDomainObject) {
		t.Fatalf("expected ErrMalformedDomainObject, got %v", err)
	}
	if len(tr.Sent()) != 0 {
		t.Error("nothing should be sent")
	}
}
