package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/marketplace/pkg/auth"
	"github.com/ghuser/marketplace/pkg/errhttp"
	"github.com/ghuser/marketplace/pkg/httpx"
	"github.com/ghuser/marketplace/pkg/logger"
	pkgvalidator "github.com/ghuser/marketplace/pkg/validator"
	appsvcs "github.com/ghuser/marketplace/services/order/application/services"
	"github.com/ghuser/marketplace/services/order/domain/models"
)

// OrderHandler serves the order endpoints. Every route sits behind auth.RequireAuth.
type OrderHandler struct {
	svc *appsvcs.Services
	log logger.Logger
}

// NewOrderHandler returns an OrderHandler backed by the given services.
func NewOrderHandler(svc *appsvcs.Services, log logger.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log}
}

// Create places an order for the signed-in buyer.
//
//	@Summary	Place order
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateOrderRequest	true	"Order lines"
//	@Success	201		{object}	OrderResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Failure	409		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Failure	503		{object}	httpx.ErrorResponse
//	@Router		/orders [post]
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	buyerID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	req, ok := pkgvalidator.ValidateRequest[CreateOrderRequest](w, r, h.log)
	if !ok {
		return
	}

	lines := make([]appsvcs.Line, len(req.Items))
	for i, it := range req.Items {
		lines[i] = appsvcs.Line{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
	}
	order, err := h.svc.Order.Create(r.Context(), buyerID, lines)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.Created(w, "/api/orders/"+order.ID, toResponse(order))
}

// Get returns an order visible to the signed-in user.
//
//	@Summary	Get order
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	OrderResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Failure	403	{object}	httpx.ErrorResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/orders/{id} [get]
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	order, err := h.svc.Order.Get(r.Context(), actorID, chi.URLParam(r, "id"))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(order))
}

// UpdateStatus advances an order on behalf of one of its sellers.
//
//	@Summary	Update order status
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Order ID"
//	@Param		request	body		UpdateStatusRequest	true	"Target status"
//	@Success	200		{object}	OrderResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Failure	403		{object}	httpx.ErrorResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Failure	409		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Router		/orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sellerID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	req, ok := pkgvalidator.ValidateRequest[UpdateStatusRequest](w, r, h.log)
	if !ok {
		return
	}
	order, err := h.svc.Order.UpdateStatus(r.Context(), sellerID, chi.URLParam(r, "id"), models.Status(req.Status))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(order))
}

// Cancel cancels an order on behalf of its buyer.
//
//	@Summary	Cancel order
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	OrderResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Failure	403	{object}	httpx.ErrorResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Failure	409	{object}	httpx.ErrorResponse
//	@Failure	503	{object}	httpx.ErrorResponse
//	@Router		/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	buyerID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	order, err := h.svc.Order.Cancel(r.Context(), buyerID, chi.URLParam(r, "id"))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(order))
}
