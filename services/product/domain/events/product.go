package events

import (
	"fmt"
	"time"

	pkgevents "github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/services/product/domain/models"
)

// Topics published by the product service, one per event type.
const (
	TopicProductCreated = "product.created"
	TopicProductUpdated = "product.updated"
	TopicStockDeducted  = "product.stock_deducted"
)

// Event types of the product domain.
const (
	TypeProductCreated pkgevents.EventType = "ProductCreated"
	TypeProductUpdated pkgevents.EventType = "ProductUpdated"
	TypeStockDeducted  pkgevents.EventType = "StockDeducted"
)

// AllTopics lists every topic above, for consumers subscribing to the whole domain.
var AllTopics = []string{TopicProductCreated, TopicProductUpdated, TopicStockDeducted}

// Schemas registers the product payloads with a pkgevents.Catalog.
var Schemas = pkgevents.Schemas{
	TypeProductCreated: pkgevents.SchemaFor[ProductCreated](),
	TypeProductUpdated: pkgevents.SchemaFor[ProductUpdated](),
	TypeStockDeducted:  pkgevents.SchemaFor[StockDeducted](),
}

// Variant is the event view of a product variant.
type Variant struct {
	VariantID string `json:"variantId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Stock     int    `json:"stock" validate:"gte=0"`
	SKU       string `json:"sku" validate:"required"`
}

// ProductCreated is published after a seller lists a product.
type ProductCreated struct {
	ProductID string    `json:"productId" validate:"required"`
	SellerID  string    `json:"sellerId" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Category  string    `json:"category" validate:"required"`
	BasePrice float64   `json:"basePrice" validate:"gte=0"`
	Variants  []Variant `json:"variants" validate:"required,min=1,dive"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

func (ProductCreated) EventType() pkgevents.EventType { return TypeProductCreated }

// ProductUpdated carries the full product state after a change.
type ProductUpdated struct {
	ProductID string    `json:"productId" validate:"required"`
	SellerID  string    `json:"sellerId" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Category  string    `json:"category" validate:"required"`
	BasePrice float64   `json:"basePrice" validate:"gte=0"`
	Variants  []Variant `json:"variants" validate:"required,min=1,dive"`
	UpdatedAt time.Time `json:"updatedAt" validate:"required"`
}

func (ProductUpdated) EventType() pkgevents.EventType { return TypeProductUpdated }

// StockDeducted records stock reserved for an order.
type StockDeducted struct {
	ProductID  string    `json:"productId" validate:"required"`
	VariantID  string    `json:"variantId" validate:"required"`
	Quantity   int       `json:"quantity" validate:"gt=0"`
	OrderID    string    `json:"orderId" validate:"required"`
	DeductedAt time.Time `json:"deductedAt" validate:"required"`
}

func (StockDeducted) EventType() pkgevents.EventType { return TypeStockDeducted }

// NewProductCreated copies createdAt from p.
func NewProductCreated(p *models.Product) (pkgevents.Envelope, error) {
	if p == nil {
		return pkgevents.Envelope{}, fmt.Errorf("%w: nil product", pkgevents.ErrMalformedDomainObject)
	}
	return pkgevents.NewEnvelope(ProductCreated{
		ProductID: p.ID,
		SellerID:  p.SellerID,
		Name:      p.Name,
		Category:  p.Category,
		BasePrice: p.BasePrice,
		Variants:  variants(p.Variants),
		CreatedAt: p.CreatedAt,
	})
}

// NewProductUpdated copies updatedAt from p.
func NewProductUpdated(p *models.Product) (pkgevents.Envelope, error) {
	if p == nil {
		return pkgevents.Envelope{}, fmt.Errorf("%w: nil product", pkgevents.ErrMalformedDomainObject)
	}
	return pkgevents.NewEnvelope(ProductUpdated{
		ProductID: p.ID,
		SellerID:  p.SellerID,
		Name:      p.Name,
		Category:  p.Category,
		BasePrice: p.BasePrice,
		Variants:  variants(p.Variants),
		UpdatedAt: p.UpdatedAt,
	})
}

// NewStockDeducted stamps deductedAt with the current time.
func NewStockDeducted(productID, variantID string, qty int, orderID string) (pkgevents.Envelope, error) {
	return pkgevents.NewEnvelope(StockDeducted{
		ProductID:  productID,
		VariantID:  variantID,
		Quantity:   qty,
		OrderID:    orderID,
		DeductedAt: time.Now().UTC(),
	})
}

func variants(vs []models.Variant) []Variant {
	if vs == nil {
		return nil
	}
	out := make([]Variant, len(vs))
	for i, v := range vs {
		out[i] = Variant{VariantID: v.ID, Name: v.Name, Stock: v.Stock, SKU: v.SKU}
	}
	return out
}
