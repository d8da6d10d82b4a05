package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/marketplace/pkg/auth"
	"github.com/ghuser/marketplace/pkg/errhttp"
	"github.com/ghuser/marketplace/pkg/httpx"
	"github.com/ghuser/marketplace/pkg/logger"
	pkgvalidator "github.com/ghuser/marketplace/pkg/validator"
	appsvcs "github.com/ghuser/marketplace/services/product/application/services"
	"github.com/ghuser/marketplace/services/product/domain/models"
)

// ProductHandler serves the product endpoints.
type ProductHandler struct {
	svc *appsvcs.Services
	log logger.Logger
}

// NewProductHandler returns a ProductHandler backed by the given services.
func NewProductHandler(svc *appsvcs.Services, log logger.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, log: log}
}

// Create lists a product owned by the signed-in seller.
//
//	@Summary	Create product
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateProductRequest	true	"Product with its variants"
//	@Success	201		{object}	ProductResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Failure	403		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Router		/products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	sellerID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	req, ok := pkgvalidator.ValidateRequest[CreateProductRequest](w, r, h.log)
	if !ok {
		return
	}

	specs := make([]models.VariantSpec, len(req.Variants))
	for i, v := range req.Variants {
		specs[i] = models.VariantSpec{Name: v.Name, SKU: v.SKU, Stock: v.Stock}
	}
	product, err := h.svc.Product.Create(r.Context(), sellerID, req.Name, req.Category, req.BasePrice, specs)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.Created(w, "/api/products/"+product.ID, toResponse(product))
}

// Get returns one product.
//
//	@Summary	Get product
//	@Tags		products
//	@Produce	json
//	@Param		id	path		string	true	"Product ID"
//	@Success	200	{object}	ProductResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/products/{id} [get]
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Product.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(product))
}

// Update patches a product owned by the signed-in seller.
//
//	@Summary	Update product
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"Product ID"
//	@Param		request	body		UpdateProductRequest	true	"Fields to change"
//	@Success	200		{object}	ProductResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Failure	403		{object}	httpx.ErrorResponse
//	@Failure	404		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Router		/products/{id} [patch]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	sellerID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	req, ok := pkgvalidator.ValidateRequest[UpdateProductRequest](w, r, h.log)
	if !ok {
		return
	}
	product, err := h.svc.Product.Update(r.Context(), sellerID, chi.URLParam(r, "id"), models.Patch{
		Name:      req.Name,
		Category:  req.Category,
		BasePrice: req.BasePrice,
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(product))
}

// DeductStock reserves stock of one variant for an order. A broker outage
// fails the request with 503 and leaves the stock unchanged.
//
//	@Summary	Deduct variant stock
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		id			path		string				true	"Product ID"
//	@Param		variantID	path		string				true	"Variant ID"
//	@Param		request		body		DeductStockRequest	true	"Quantity and order"
//	@Success	200			{object}	ProductResponse
//	@Failure	400			{object}	httpx.ErrorResponse
//	@Failure	404			{object}	httpx.ErrorResponse
//	@Failure	409			{object}	httpx.ErrorResponse
//	@Failure	422			{object}	httpx.ErrorResponse
//	@Failure	503			{object}	httpx.ErrorResponse
//	@Router		/products/{id}/variants/{variantID}/deduct [post]
func (h *ProductHandler) DeductStock(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[DeductStockRequest](w, r, h.log)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "id")
	if err := h.svc.Product.DeductStock(r.Context(), productID, chi.URLParam(r, "variantID"), req.Quantity, req.OrderID); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	product, err := h.svc.Product.Get(r.Context(), productID)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(product))
}
