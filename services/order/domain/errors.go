package domain

import "errors"

// Sentinel errors for the order domain. Use errors.Is() to check these.
var (
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidOrder indicates order fields violate domain constraints.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInvalidTransition indicates a status change the order lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden indicates the caller is neither the buyer nor a seller of the order.
	ErrForbidden = errors.New("order not accessible")

	// ErrProductUnavailable indicates an ordered product or variant does not exist.
	ErrProductUnavailable = errors.New("product unavailable")
)
