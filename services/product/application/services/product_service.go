package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ghuser/marketplace/pkg/cache"
	"github.com/ghuser/marketplace/pkg/correlation"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
	productdomain "github.com/ghuser/marketplace/services/product/domain"
	productevents "github.com/ghuser/marketplace/services/product/domain/events"
	"github.com/ghuser/marketplace/services/product/domain/models"
	"github.com/ghuser/marketplace/services/product/domain/repositories"
)

// EventProducer publishes product events.
type EventProducer interface {
	PublishProductCreated(ctx context.Context, p *models.Product, correlationID string) (events.Result, error)
	PublishProductUpdated(ctx context.Context, p *models.Product, correlationID string) (events.Result, error)
	PublishStockDeducted(ctx context.Context, productID, variantID string, qty int, orderID, correlationID string) (events.Result, error)
}

// ReadModel is the product read-through cache.
type ReadModel interface {
	Get(ctx context.Context, productID string) (*cache.CachedProduct, error)
	Set(ctx context.Context, p *cache.CachedProduct) error
	Delete(ctx context.Context, productID string) error
}

// ProductService orchestrates catalog changes and stock deductions.
type ProductService struct {
	repo     repositories.ProductRepository
	producer EventProducer
	cache    ReadModel // optional
	log      logger.Logger
}

// NewProductService returns a ProductService. readModel may be nil.
func NewProductService(repo repositories.ProductRepository, producer EventProducer, readModel ReadModel, log logger.Logger) *ProductService {
	return &ProductService{repo: repo, producer: producer, cache: readModel, log: log}
}

// Create lists a new product for sellerID and publishes ProductCreated.
// A product its event cannot describe is rejected before it is saved.
func (s *ProductService) Create(ctx context.Context, sellerID, name, category string, basePrice float64, variants []models.VariantSpec) (*models.Product, error) {
	product, err := models.NewProduct(sellerID, name, category, basePrice, variants)
	if err != nil {
		return nil, err
	}
	if _, err := productevents.NewProductCreated(product); err != nil {
		return nil, fmt.Errorf("%w: %w", productdomain.ErrInvalidProduct, err)
	}
	if err := s.repo.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}

	res, err := s.producer.PublishProductCreated(ctx, product, correlation.FromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("publish product created: %w", err)
	}
	s.observe(ctx, res, product.ID)
	s.store(ctx, product)
	return product, nil
}

// Update applies patch to a product owned by sellerID and publishes
// ProductUpdated. Nothing is written or published when no field changes.
func (s *ProductService) Update(ctx context.Context, sellerID, productID string, patch models.Patch) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product.SellerID != sellerID {
		return nil, productdomain.ErrNotOwner
	}
	changed, err := product.Apply(patch)
	if err != nil {
		return nil, err
	}
	if !changed {
		return product, nil
	}
	if _, err := productevents.NewProductUpdated(product); err != nil {
		return nil, fmt.Errorf("%w: %w", productdomain.ErrInvalidProduct, err)
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.invalidate(ctx, product.ID)

	res, err := s.producer.PublishProductUpdated(ctx, product, correlation.FromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("publish product updated: %w", err)
	}
	s.observe(ctx, res, product.ID)
	return product, nil
}

// Get returns a product, served from the read model when cached.
func (s *ProductService) Get(ctx context.Context, productID string) (*models.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, productID)
		switch {
		case err == nil:
			return fromCache(cached), nil
		case !errors.Is(err, redis.Nil):
			s.log.WarnContext(ctx, "product cache read failed", "product_id", productID, "error", err)
		}
	}

	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	s.store(ctx, product)
	return product, nil
}

// DeductStock lowers a variant's stock for orderID and publishes the critical
// StockDeducted event. If the event cannot be delivered the deduction is
// reverted and the broker error is returned.
func (s *ProductService) DeductStock(ctx context.Context, productID, variantID string, qty int, orderID string) error {
	if err := s.repo.DeductStock(ctx, productID, variantID, qty); err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}
	s.invalidate(ctx, productID)

	_, err := s.producer.PublishStockDeducted(ctx, productID, variantID, qty, orderID, correlation.FromContext(ctx))
	if err == nil {
		return nil
	}

	// The restore runs even if the caller has gone away.
	restoreCtx := context.WithoutCancel(ctx)
	if rerr := s.repo.RestoreStock(restoreCtx, productID, variantID, qty); rerr != nil {
		s.log.ErrorContext(ctx, "stock restore after failed publish did not complete",
			"product_id", productID, "variant_id", variantID, "quantity", qty, "order_id", orderID, "error", rerr)
		return fmt.Errorf("publish stock deducted: %w", errors.Join(err, rerr))
	}
	s.log.WarnContext(ctx, "stock deduction reverted",
		"product_id", productID, "variant_id", variantID, "quantity", qty, "order_id", orderID, "error", err)
	return fmt.Errorf("publish stock deducted: %w", err)
}

func (s *ProductService) observe(ctx context.Context, res events.Result, productID string) {
	if res.Degraded() {
		s.log.InfoContext(ctx, "product operation completed without event",
			"product_id", productID, "topic", res.Topic, "error", res.Err)
	}
}

func (s *ProductService) store(ctx context.Context, p *models.Product) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, toCache(p)); err != nil {
		s.log.WarnContext(ctx, "product cache write failed", "product_id", p.ID, "error", err)
	}
}

func (s *ProductService) invalidate(ctx context.Context, productID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, productID); err != nil {
		s.log.WarnContext(ctx, "product cache invalidation failed", "product_id", productID, "error", err)
	}
}

func toCache(p *models.Product) *cache.CachedProduct {
	variants := make([]cache.CachedVariant, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = cache.CachedVariant{ID: v.ID, Name: v.Name, SKU: v.SKU, Stock: v.Stock}
	}
	return &cache.CachedProduct{
		ID:        p.ID,
		SellerID:  p.SellerID,
		Name:      p.Name,
		Category:  p.Category,
		BasePrice: p.BasePrice,
		Variants:  variants,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromCache(c *cache.CachedProduct) *models.Product {
	variants := make([]models.Variant, len(c.Variants))
	for i, v := range c.Variants {
		variants[i] = models.Variant{ID: v.ID, Name: v.Name, SKU: v.SKU, Stock: v.Stock}
	}
	return &models.Product{
		ID:        c.ID,
		SellerID:  c.SellerID,
		Name:      c.Name,
		Category:  c.Category,
		BasePrice: c.BasePrice,
		Variants:  variants,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
