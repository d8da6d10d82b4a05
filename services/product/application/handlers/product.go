package handlers

import (
	"strings"
	"time"

	"github.com/ghuser/marketplace/services/product/domain/models"
)

// VariantResponse is the public view of a variant.
type VariantResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// ProductResponse is the public view of a product.
type ProductResponse struct {
	ID        string            `json:"id"`
	SellerID  string            `json:"sellerId"`
	Name      string            `json:"name"`
	Category  string            `json:"category"`
	BasePrice float64           `json:"basePrice"`
	Variants  []VariantResponse `json:"variants"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func toResponse(p *models.Product) ProductResponse {
	variants := make([]VariantResponse, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = VariantResponse{ID: v.ID, Name: v.Name, SKU: v.SKU, Stock: v.Stock}
	}
	return ProductResponse{
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

// VariantRequest describes one variant in CreateProductRequest.
type VariantRequest struct {
	Name  string `json:"name"  validate:"required,min=1,max=100"`
	SKU   string `json:"sku"   validate:"required,min=1,max=64"`
	Stock int    `json:"stock" validate:"gte=0"`
}

// CreateProductRequest is the request body for POST /products.
type CreateProductRequest struct {
	Name      string           `json:"name"      validate:"required,min=1,max=255"`
	Category  string           `json:"category"  validate:"required,min=1,max=100"`
	BasePrice float64          `json:"basePrice" validate:"gte=0"`
	Variants  []VariantRequest `json:"variants"  validate:"required,min=1,max=50,dive"`
}

// Sanitize trims text fields.
func (r *CreateProductRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	for i := range r.Variants {
		r.Variants[i].Name = strings.TrimSpace(r.Variants[i].Name)
		r.Variants[i].SKU = strings.TrimSpace(r.Variants[i].SKU)
	}
}

// UpdateProductRequest is the request body for PATCH /products/{id}.
type UpdateProductRequest struct {
	Name      *string  `json:"name"      validate:"omitempty,min=1,max=255"`
	Category  *string  `json:"category"  validate:"omitempty,min=1,max=100"`
	BasePrice *float64 `json:"basePrice" validate:"omitempty,gte=0"`
}

// DeductStockRequest is the request body for POST /products/{id}/variants/{variantID}/deduct.
type DeductStockRequest struct {
	Quantity int    `json:"quantity" validate:"gt=0"`
	OrderID  string `json:"orderId"  validate:"required,uuid"`
}
