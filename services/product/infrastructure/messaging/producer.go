// Package messaging is the product service's producer facade.
package messaging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/marketplace/pkg/events"
	productevents "github.com/ghuser/marketplace/services/product/domain/events"
	"github.com/ghuser/marketplace/services/product/domain/models"
)

// ProducerName identifies the product service in message headers.
const ProducerName = "product-service"

// Publisher is the subset of *events.Publisher the facade needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message, opts events.PublishOptions) (events.Result, error)
}

// Producer publishes product events. Catalog changes are non-critical;
// StockDeducted is critical because downstream order processing depends on it.
type Producer struct {
	pub     Publisher
	builder *events.Builder
}

// NewProducer returns a Producer stamping messages with producer.
func NewProducer(pub Publisher, producer string) *Producer {
	return &Producer{pub: pub, builder: events.NewBuilder(producer)}
}

// PublishProductCreated publishes ProductCreated keyed by the product ID.
func (p *Producer) PublishProductCreated(ctx context.Context, product *models.Product, correlationID string) (events.Result, error) {
	env, err := productevents.NewProductCreated(product)
	if err != nil {
		return events.Result{}, err
	}
	return p.publish(ctx, productevents.TopicProductCreated, product.ID, env, false, correlationID)
}

// PublishProductUpdated publishes ProductUpdated keyed by the product ID.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *models.Product, correlationID string) (events.Result, error) {
	env, err := productevents.NewProductUpdated(product)
	if err != nil {
		return events.Result{}, err
	}
	return p.publish(ctx, productevents.TopicProductUpdated, product.ID, env, false, correlationID)
}

// PublishStockDeducted publishes StockDeducted keyed by the product ID.
// A broker failure is returned as ErrPublishUnavailable or ErrPublishFailed.
func (p *Producer) PublishStockDeducted(ctx context.Context, productID, variantID string, qty int, orderID, correlationID string) (events.Result, error) {
	env, err := productevents.NewStockDeducted(productID, variantID, qty, orderID)
	if err != nil {
		return events.Result{}, err
	}
	return p.publish(ctx, productevents.TopicStockDeducted, productID, env, true, correlationID)
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
