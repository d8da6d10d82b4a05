// Package messaging is the order service's producer facade.
package messaging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/marketplace/pkg/events"
	orderevents "github.com/ghuser/marketplace/services/order/domain/events"
	"github.com/ghuser/marketplace/services/order/domain/models"
)

// ProducerName identifies the order service in message headers.
const ProducerName = "order-service"

// Publisher is the subset of *events.Publisher the facade needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message, opts events.PublishOptions) (events.Result, error)
}

// Producer publishes order events. OrderCreated and OrderCancelled are
// critical; status updates are not.
type Producer struct {
	pub     Publisher
	builder *events.Builder
}

// NewProducer returns a Producer stamping messages with producer.
func NewProducer(pub Publisher, producer string) *Producer {
	return &Producer{pub: pub, builder: events.NewBuilder(producer)}
}

// PublishOrderCreated publishes OrderCreated keyed by the order ID.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *models.Order, correlationID string) (events.Result, error) {
	env, err := orderevents.NewOrderCreated(o)
	if err != nil {
		return events.Result{}, err
	}
	return p.publish(ctx, orderevents.TopicOrderCreated, o.ID, env, true, correlationID)
}

// PublishOrderStatusUpdated publishes OrderStatusUpdated keyed by the order ID.
func (p *Producer) PublishOrderStatusUpdated(ctx context.Context, orderID string, status models.Status, correlationID string) (events.Result, error) {
	env, err := orderevents.NewOrderStatusUpdated(orderID, status)
	if err != nil {
		return events.Result{}, err
	}
	return p.publish(ctx, orderevents.TopicOrderStatusUpdated, orderID, env, false, correlationID)
}

// PublishOrderCancelled publishes OrderCancelled keyed by the order ID.
func (p *Producer) PublishOrderCancelled(ctx context.Context, o *models.Order, correlationID string) (events.Result, error) {
	env, err := orderevents.NewOrderCancelled(o)
	if err != nil {
		return events.Result{}, err
	}
	return p.publish(ctx, orderevents.TopicOrderCancelled, o.ID, env, true, correlationID)
}

func (p *Producer) publish(ctx context.Context, topic, key string, env events.Envelope, critical bool, correlationID string) (events.Result, error) {
	msg, err := p.builder.Build(key, env, correlationID)
	if err != nil {
		return events.Result{}, err
	}
	return p.pub.Publish(ctx, topic, msg, events.PublishOptions{
		Critical:      critical,
		CorrelationID: correlationID,
	})
}
