package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ProductCacheTTL is the time-to-live for cached products.
	ProductCacheTTL = 24 * time.Hour

	productCacheKeyPrefix = "product"
)

// CachedVariant is one variant of a CachedProduct.
type CachedVariant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// CachedProduct is the denormalized product read model stored in Redis.
// Scalar fields are stored as hash fields; variants as one JSON field.
type CachedProduct struct {
	ID        string          `json:"id"`
	SellerID  string          `json:"seller_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	BasePrice float64         `json:"base_price"`
	Variants  []CachedVariant `json:"variants"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductCache provides read-through storage for product read models.
// Key format: "product:{productID}"
type ProductCache struct {
	client *RedisClient
}

// NewProductCache creates a new ProductCache backed by the given RedisClient.
func NewProductCache(r *RedisClient) *ProductCache {
	return &ProductCache{client: r}
}

// Get retrieves a cached product.
// Returns redis.Nil error when the key does not exist or has expired.
func (c *ProductCache) Get(ctx context.Context, productID string) (*CachedProduct, error) {
	vals, err := c.client.Client().HGetAll(ctx, c.key(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil // key not found
	}

	price, err := strconv.ParseFloat(vals["base_price"], 64)
	if err != nil {
		return nil, fmt.Errorf("cache parse base_price: %w", err)
	}
	var variants []CachedVariant
	if err := json.Unmarshal([]byte(vals["variants"]), &variants); err != nil {
		return nil, fmt.Errorf("cache parse variants: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, vals["created_at"])
	if err != nil {
		return nil, fmt.Errorf("cache parse created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, vals["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("cache parse updated_at: %w", err)
	}

	return &CachedProduct{
		ID:        vals["id"],
		SellerID:  vals["seller_id"],
		Name:      vals["name"],
		Category:  vals["category"],
		BasePrice: price,
		Variants:  variants,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Set writes a cached product as a Redis hash with a 24-hour TTL.
// Uses a pipeline to set all fields and the TTL atomically.
func (c *ProductCache) Set(ctx context.Context, p *CachedProduct) error {
	variants, err := json.Marshal(p.Variants)
	if err != nil {
		return fmt.Errorf("cache encode variants: %w", err)
	}
	key := c.key(p.ID)
	pipe := c.client.Client().TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"id", p.ID,
		"seller_id", p.SellerID,
		"name", p.Name,
		"category", p.Category,
		"base_price", strconv.FormatFloat(p.BasePrice, 'f', -1, 64),
		"variants", string(variants),
		"created_at", p.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at", p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, ProductCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a cached product.
func (c *ProductCache) Delete(ctx context.Context, productID string) error {
	if err := c.client.Client().Del(ctx, c.key(productID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// key builds the Redis key: "product:{productID}"
func (c *ProductCache) key(productID string) string {
	return fmt.Sprintf("%s:%s", productCacheKeyPrefix, productID)
}
