package events

import (
	"fmt"
	"time"

	pkgevents "github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/services/order/domain/models"
)

// Topics published by the order service, one per event type.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusUpdated = "order.status_updated"
	TopicOrderCancelled     = "order.cancelled"
)

// Event types of the order domain.
const (
	TypeOrderCreated       pkgevents.EventType = "OrderCreated"
	TypeOrderStatusUpdated pkgevents.EventType = "OrderStatusUpdated"
	TypeOrderCancelled     pkgevents.EventType = "OrderCancelled"
)

// AllTopics lists every topic above, for consumers subscribing to the whole domain.
var AllTopics = []string{TopicOrderCreated, TopicOrderStatusUpdated, TopicOrderCancelled}

// Schemas registers the order payloads with a pkgevents.Catalog.
var Schemas = pkgevents.Schemas{
	TypeOrderCreated:       pkgevents.SchemaFor[OrderCreated](),
	TypeOrderStatusUpdated: pkgevents.SchemaFor[OrderStatusUpdated](),
	TypeOrderCancelled:     pkgevents.SchemaFor[OrderCancelled](),
}

// Item is the event view of an order line.
type Item struct {
	ProductID string  `json:"productId" validate:"required"`
	VariantID string  `json:"variantId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
	SellerID  string  `json:"sellerId" validate:"required"`
}

// OrderCreated is published after an order is placed.
type OrderCreated struct {
	OrderID     string    `json:"orderId" validate:"required"`
	BuyerID     string    `json:"buyerId" validate:"required"`
	Items       []Item    `json:"items" validate:"required,min=1,dive"`
	TotalAmount float64   `json:"totalAmount" validate:"gte=0"`
	Status      string    `json:"status" validate:"required"`
	CreatedAt   time.Time `json:"createdAt" validate:"required"`
}

func (OrderCreated) EventType() pkgevents.EventType { return TypeOrderCreated }

// OrderStatusUpdated is published after a lifecycle transition other than cancellation.
type OrderStatusUpdated struct {
	OrderID   string    `json:"orderId" validate:"required"`
	Status    string    `json:"status" validate:"required"`
	UpdatedAt time.Time `json:"updatedAt" validate:"required"`
}

func (OrderStatusUpdated) EventType() pkgevents.EventType { return TypeOrderStatusUpdated }

// OrderCancelled carries the lines whose stock consumers should release.
type OrderCancelled struct {
	OrderID     string    `json:"orderId" validate:"required"`
	BuyerID     string    `json:"buyerId" validate:"required"`
	Items       []Item    `json:"items" validate:"required,min=1,dive"`
	TotalAmount float64   `json:"totalAmount" validate:"gte=0"`
	CancelledAt time.Time `json:"cancelledAt" validate:"required"`
}

func (OrderCancelled) EventType() pkgevents.EventType { return TypeOrderCancelled }

// NewOrderCreated copies createdAt and status from o.
func NewOrderCreated(o *models.Order) (pkgevents.Envelope, error) {
	if o == nil {
		return pkgevents.Envelope{}, fmt.Errorf("%w: nil order", pkgevents.ErrMalformedDomainObject)
	}
	return pkgevents.NewEnvelope(OrderCreated{
		OrderID:     o.ID,
		BuyerID:     o.BuyerID,
		Items:       items(o.Items),
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	})
}

// NewOrderStatusUpdated stamps updatedAt with the current time.
func NewOrderStatusUpdated(orderID string, status models.Status) (pkgevents.Envelope, error) {
	return pkgevents.NewEnvelope(OrderStatusUpdated{
		OrderID:   orderID,
		Status:    string(status),
		UpdatedAt: time.Now().UTC(),
	})
}

// NewOrderCancelled stamps cancelledAt with the current time.
func NewOrderCancelled(o *models.Order) (pkgevents.Envelope, error) {
	if o == nil {
		return pkgevents.Envelope{}, fmt.Errorf("%w: nil order", pkgevents.ErrMalformedDomainObject)
	}
	return pkgevents.NewEnvelope(OrderCancelled{
		OrderID:     o.ID,
		BuyerID:     o.BuyerID,
		Items:       items(o.Items),
		TotalAmount: o.TotalAmount,
		CancelledAt: time.Now().UTC(),
	})
}

func items(its []models.Item) []Item {
	if its == nil {
		return nil
	}
	out := make([]Item, len(its))
	for i, it := range its {
		out[i] = Item{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			SellerID:  it.SellerID,
		}
	}
	return out
}
