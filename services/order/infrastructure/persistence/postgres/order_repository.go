package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ghuser/marketplace/pkg/database"
	orderdomain "github.com/ghuser/marketplace/services/order/domain"
	"github.com/ghuser/marketplace/services/order/domain/models"
)

// OrderRepository implements repositories.OrderRepository against PostgreSQL.
type OrderRepository struct {
	db *database.Database
}

// NewOrderRepository returns an OrderRepository backed by the given connection pool.
func NewOrderRepository(db *database.Database) *OrderRepository {
	return &OrderRepository{db: db}
}

// Save inserts the order and its items in one transaction.
func (r *OrderRepository) Save(ctx context.Context, o *models.Order) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, buyer_id, total_amount, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, o.BuyerID, o.TotalAmount, string(o.Status), o.CreatedAt, o.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return insertItems(ctx, tx, o)
	})
}

func insertItems(ctx context.Context, q database.DBTX, o *models.Order) error {
	for i, it := range o.Items {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, product_id, variant_id, quantity, price, seller_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, i, it.ProductID, it.VariantID, it.Quantity, it.Price, it.SellerID,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an order and its items. Returns ErrOrderNotFound if not found.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var (
		o      models.Order
		status string
	)
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT id, buyer_id, total_amount::float8, status, created_at, updated_at FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.BuyerID, &o.TotalAmount, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, orderdomain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("query order: %w", err)
	}
	o.Status = models.Status(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()

	if o.Items, err = loadItems(ctx, r.db.DB(), id); err != nil {
		return nil, err
	}
	return &o, nil
}

func loadItems(ctx context.Context, q database.DBTX, orderID string) ([]models.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT product_id, variant_id, quantity, price::float8, seller_id
		 FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()
	var items []models.Item
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ProductID, &it.VariantID, &it.Quantity, &it.Price, &it.SellerID); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

// UpdateStatus sets status and updated_at.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error {
	res, err := r.db.DB().ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return orderdomain.ErrOrderNotFound
	}
	return nil
}

// Delete removes an order; its items cascade.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.DB().ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}
