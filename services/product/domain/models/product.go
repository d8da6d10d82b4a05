package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	productdomain "github.com/ghuser/marketplace/services/product/domain"
)

// Variant is one purchasable option of a product, with its own stock.
type Variant struct {
	ID    string
	Name  string
	SKU   string
	Stock int
}

// Product is the catalog aggregate owned by a seller.
type Product struct {
	ID        string
	SellerID  string
	Name      string
	Category  string
	BasePrice float64
	Variants  []Variant
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VariantSpec describes a variant to create.
type VariantSpec struct {
	Name  string
	SKU   string
	Stock int
}

// NewProduct constructs a Product with generated product and variant IDs.
func NewProduct(sellerID, name, category string, basePrice float64, specs []VariantSpec) (*Product, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	switch {
	case sellerID == "":
		return nil, fmt.Errorf("%w: seller is required", productdomain.ErrInvalidProduct)
	case name == "":
		return nil, fmt.Errorf("%w: name is required", productdomain.ErrInvalidProduct)
	case category == "":
		return nil, fmt.Errorf("%w: category is required", productdomain.ErrInvalidProduct)
	case basePrice < 0:
		return nil, fmt.Errorf("%w: base price must not be negative", productdomain.ErrInvalidProduct)
	case len(specs) == 0:
		return nil, fmt.Errorf("%w: at least one variant is required", productdomain.ErrInvalidProduct)
	}

	variants := make([]Variant, 0, len(specs))
	skus := make(map[string]bool, len(specs))
	for _, s := range specs {
		sku := strings.TrimSpace(s.SKU)
		if s.Stock < 0 {
			return nil, fmt.Errorf("%w: variant %q has negative stock", productdomain.ErrInvalidProduct, s.Name)
		}
		if skus[sku] {
			return nil, fmt.Errorf("%w: duplicate sku %q", productdomain.ErrInvalidProduct, sku)
		}
		skus[sku] = true
		variants = append(variants, Variant{
			ID:    uuid.NewString(),
			Name:  strings.TrimSpace(s.Name),
			SKU:   sku,
			Stock: s.Stock,
		})
	}

	now := time.Now().UTC()
	return &Product{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		Name:      name,
		Category:  category,
		BasePrice: basePrice,
		Variants:  variants,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Variant returns the variant with id.
func (p *Product) Variant(id string) (*Variant, error) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], nil
		}
	}
	return nil, productdomain.ErrVariantNotFound
}

// Patch is a partial product update. Nil fields are left unchanged.
type Patch struct {
	Name      *string
	Category  *string
	BasePrice *float64
}

// Apply applies p and reports whether anything changed.
func (p *Product) Apply(patch Patch) (bool, error) {
	changed := false
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return false, fmt.Errorf("%w: name is required", productdomain.ErrInvalidProduct)
		}
		if name != p.Name {
			p.Name, changed = name, true
		}
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		if category == "" {
			return false, fmt.Errorf("%w: category is required", productdomain.ErrInvalidProduct)
		}
		if category != p.Category {
			p.Category, changed = category, true
		}
	}
	if patch.BasePrice != nil {
		if *patch.BasePrice < 0 {
			return false, fmt.Errorf("%w: base price must not be negative", productdomain.ErrInvalidProduct)
		}
		if *patch.BasePrice != p.BasePrice {
			p.BasePrice, changed = *patch.BasePrice, true
		}
	}
	if changed {
		p.UpdatedAt = time.Now().UTC()
	}
	return changed, nil
}
