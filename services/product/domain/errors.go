package domain

import "errors"

// Sentinel errors for the product domain. Use errors.Is() to check these.
var (
	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrVariantNotFound indicates the product has no variant with the given ID.
	ErrVariantNotFound = errors.New("variant not found")

	// ErrInsufficientStock indicates a deduction larger than the variant's stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidProduct indicates product fields violate domain constraints.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrNotOwner indicates the caller is not the seller of the product.
	ErrNotOwner = errors.New("product belongs to another seller")
)
