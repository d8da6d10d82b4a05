package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ghuser/marketplace/pkg/database"
	orderdomain "github.com/ghuser/marketplace/services/order/domain"
	"github.com/ghuser/marketplace/services/order/domain/repositories"
)

// ProductLookup reads listings straight from the product service's tables,
// which share the monolith's database.
type ProductLookup struct {
	db *database.Database
}

// NewProductLookup returns a ProductLookup backed by the given connection pool.
func NewProductLookup(db *database.Database) *ProductLookup {
	return &ProductLookup{db: db}
}

// Listing returns the base price and seller of a product variant.
func (l *ProductLookup) Listing(ctx context.Context, productID, variantID string) (repositories.ProductListing, error) {
	var listing repositories.ProductListing
	err := l.db.DB().QueryRowContext(ctx,
		`SELECT p.base_price::float8, p.seller_id
		 FROM products p JOIN product_variants v ON v.product_id = p.id
		 WHERE p.id = $1 AND v.id = $2`,
		productID, variantID,
	).Scan(&listing.Price, &listing.SellerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repositories.ProductListing{}, orderdomain.ErrProductUnavailable
		}
		return repositories.ProductListing{}, fmt.Errorf("query listing: %w", err)
	}
	return listing, nil
}
