package repositories

import (
	"context"

	"github.com/ghuser/marketplace/services/product/domain/models"
)

// ProductRepository is the persistence interface for the Product aggregate.
// The domain layer owns this interface; infrastructure implements it.
type ProductRepository interface {
	// Save inserts a product with its variants.
	Save(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// Update persists name, category, base price and UpdatedAt.
	Update(ctx context.Context, product *models.Product) error
	// DeductStock atomically lowers a variant's stock by qty. Returns
	// ErrInsufficientStock when the stock is lower than qty and
	// ErrVariantNotFound when the variant does not belong to the product.
	DeductStock(ctx context.Context, productID, variantID string, qty int) error
	// RestoreStock adds qty back to a variant's stock.
	RestoreStock(ctx context.Context, productID, variantID string, qty int) error
}
