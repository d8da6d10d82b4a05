package repositories

import (
	"context"
	"time"

	"github.com/ghuser/marketplace/services/order/domain/models"
)

// OrderRepository is the persistence interface for the Order aggregate.
// The domain layer owns this interface; infrastructure implements it.
type OrderRepository interface {
	// Save inserts an order with its items.
	Save(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error
	// Delete removes an order and its items.
	Delete(ctx context.Context, id string) error
}

// ProductListing is what the order service needs to know about an ordered variant.
type ProductListing struct {
	Price    float64
	SellerID string
}

// ProductLookup resolves the current price and seller of a product variant.
// Returns ErrProductUnavailable when the variant does not exist.
type ProductLookup interface {
	Listing(ctx context.Context, productID, variantID string) (ProductListing, error)
}
