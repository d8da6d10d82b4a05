package handlers

import (
	"time"

	"github.com/ghuser/marketplace/services/order/domain/models"
)

// ItemResponse is the public view of an order line.
type ItemResponse struct {
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	SellerID  string  `json:"sellerId"`
}

// OrderResponse is the public view of an order.
type OrderResponse struct {
	ID          string         `json:"id"`
	BuyerID     string         `json:"buyerId"`
	Items       []ItemResponse `json:"items"`
	TotalAmount float64        `json:"totalAmount"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func toResponse(o *models.Order) OrderResponse {
	items := make([]ItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = ItemResponse{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			SellerID:  it.SellerID,
		}
	}
	return OrderResponse{
		ID:          o.ID,
		BuyerID:     o.BuyerID,
		Items:       items,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// LineRequest is one line of CreateOrderRequest.
type LineRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	VariantID string `json:"variantId" validate:"required,uuid"`
	Quantity  int    `json:"quantity"  validate:"gt=0,lte=1000"`
}

// CreateOrderRequest is the request body for POST /orders.
type CreateOrderRequest struct {
	Items []LineRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

// UpdateStatusRequest is the request body for PATCH /orders/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed shipped delivered"`
}
