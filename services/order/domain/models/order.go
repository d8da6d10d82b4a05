package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	orderdomain "github.com/ghuser/marketplace/services/order/domain"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Item is one order line. Price is the unit price captured at order time.
type Item struct {
	ProductID string
	VariantID string
	Quantity  int
	Price     float64
	SellerID  string
}

// Order is the purchase aggregate owned by a buyer.
type Order struct {
	ID          string
	BuyerID     string
	Items       []Item
	TotalAmount float64
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder constructs a pending Order and computes its total.
func NewOrder(buyerID string, items []Item) (*Order, error) {
	if buyerID == "" {
		return nil, fmt.Errorf("%w: buyer is required", orderdomain.ErrInvalidOrder)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", orderdomain.ErrInvalidOrder)
	}
	for i, it := range items {
		switch {
		case it.ProductID == "" || it.VariantID == "":
			return nil, fmt.Errorf("%w: item %d has no product or variant", orderdomain.ErrInvalidOrder, i)
		case it.Quantity <= 0:
			return nil, fmt.Errorf("%w: item %d quantity must be positive", orderdomain.ErrInvalidOrder, i)
		case it.Price < 0:
			return nil, fmt.Errorf("%w: item %d price must not be negative", orderdomain.ErrInvalidOrder, i)
		case it.SellerID == "":
			return nil, fmt.Errorf("%w: item %d has no seller", orderdomain.ErrInvalidOrder, i)
		}
	}

	now := time.Now().UTC()
	return &Order{
		ID:          uuid.NewString(),
		BuyerID:     buyerID,
		Items:       append([]Item(nil), items...),
		TotalAmount: Total(items),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Total sums price times quantity over items, rounded to cents.
func Total(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return math.Round(sum*100) / 100
}

// TransitionTo moves the order to next. Returns ErrInvalidTransition when the
// lifecycle does not allow it.
func (o *Order) TransitionTo(next Status) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", orderdomain.ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// InvolvesSeller reports whether sellerID sells any item of the order.
func (o *Order) InvolvesSeller(sellerID string) bool {
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			return true
		}
	}
	return false
}
