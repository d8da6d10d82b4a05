package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ghuser/marketplace/pkg/database"
	productdomain "github.com/ghuser/marketplace/services/product/domain"
	"github.com/ghuser/marketplace/services/product/domain/models"
)

// ProductRepository implements repositories.ProductRepository against PostgreSQL.
type ProductRepository struct {
	db *database.Database
}

// NewProductRepository returns a ProductRepository backed by the given connection pool.
func NewProductRepository(db *database.Database) *ProductRepository {
	return &ProductRepository{db: db}
}

// Save inserts the product and its variants in one transaction.
func (r *ProductRepository) Save(ctx context.Context, p *models.Product) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (id, seller_id, name, category, base_price, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.SellerID, p.Name, p.Category, p.BasePrice, p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		for i, v := range p.Variants {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO product_variants (id, product_id, position, name, sku, stock)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				v.ID, p.ID, i, v.Name, v.SKU, v.Stock,
			); err != nil {
				if database.IsUniqueViolation(err) {
					return fmt.Errorf("%w: sku %q already exists", productdomain.ErrInvalidProduct, v.SKU)
				}
				return fmt.Errorf("insert variant: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a product and its variants. Returns ErrProductNotFound if not found.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT id, seller_id, name, category, base_price::float8, created_at, updated_at
		 FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.SellerID, &p.Name, &p.Category, &p.BasePrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, productdomain.ErrProductNotFound
		}
		return nil, fmt.Errorf("query product: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT id, name, sku, stock FROM product_variants WHERE product_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v models.Variant
		if err := rows.Scan(&v.ID, &v.Name, &v.SKU, &v.Stock); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return &p, nil
}

// Update persists name, category, base price and updated_at.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	res, err := r.db.DB().ExecContext(ctx,
		`UPDATE products SET name = $2, category = $3, base_price = $4, updated_at = $5 WHERE id = $1`,
		p.ID, p.Name, p.Category, p.BasePrice, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return productdomain.ErrProductNotFound
	}
	return nil
}

// DeductStock lowers stock only when enough is available, so concurrent
// deductions can never drive a variant negative.
func (r *ProductRepository) DeductStock(ctx context.Context, productID, variantID string, qty int) error {
	res, err := r.db.DB().ExecContext(ctx,
		`UPDATE product_variants SET stock = stock - $3
		 WHERE product_id = $1 AND id = $2 AND stock >= $3`,
		productID, variantID, qty,
	)
	if err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	return r.missingOrShort(ctx, productID, variantID)
}

// RestoreStock adds qty back to a variant.
func (r *ProductRepository) RestoreStock(ctx context.Context, productID, variantID string, qty int) error {
	res, err := r.db.DB().ExecContext(ctx,
		`UPDATE product_variants SET stock = stock + $3 WHERE product_id = $1 AND id = $2`,
		productID, variantID, qty,
	)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return productdomain.ErrVariantNotFound
	}
	return nil
}

// missingOrShort explains a deduction that matched no row.
func (r *ProductRepository) missingOrShort(ctx context.Context, productID, variantID string) error {
	var exists bool
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM product_variants WHERE product_id = $1 AND id = $2)`,
		productID, variantID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check variant: %w", err)
	}
	if !exists {
		return productdomain.ErrVariantNotFound
	}
	return productdomain.ErrInsufficientStock
}
