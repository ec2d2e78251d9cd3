package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/internal/service"
	"github.com/vymjay/aprylo/pkg/httputil"
	"github.com/vymjay/aprylo/pkg/pagination"
	"github.com/vymjay/aprylo/pkg/validator"
)

// AdminHandler handles the admin catalog and order workflow. Every route is
// behind Authenticate + RequireRole("admin").
type AdminHandler struct {
	catalog *service.CatalogService
	orders  *service.OrderService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(catalog *service.CatalogService, orders *service.OrderService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		catalog: catalog,
		orders:  orders,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ProductRequest is the JSON request body for creating or updating a product.
type ProductRequest struct {
	Name          string   `json:"name" validate:"required,min=1,max=500"`
	Description   string   `json:"description" validate:"max=10000"`
	Category      string   `json:"category" validate:"max=255"`
	Status        string   `json:"status" validate:"omitempty,oneof=draft published archived"`
	Price         int64    `json:"price" validate:"gte=0"`
	OriginalPrice *int64   `json:"original_price" validate:"omitempty,gte=0"`
	Currency      string   `json:"currency" validate:"omitempty,len=3"`
	Images        []string `json:"images" validate:"max=20,dive,url"`
}

// SetStockRequest is the JSON request body for overwriting a variant's stock.
type SetStockRequest struct {
	Stock int `json:"stock" validate:"gte=0"`
}

// UpdateOrderStatusRequest is the JSON request body for moving an order
// through its status machine.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled failed"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/admin/products. Unlike the public catalog
// it can see every status.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("q"),
	}

	result, err := h.catalog.List(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.catalog.Create(r.Context(), &service.CreateProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Status:        req.Status,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Currency:      req.Currency,
		Images:        req.Images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/admin/products/{productId}.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	status := req.Status
	if status == "" {
		status = domain.ProductStatusDraft
	}

	product, err := h.catalog.Update(r.Context(), &service.UpdateProductInput{
		ID:            chi.URLParam(r, "productId"),
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Status:        status,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Images:        req.Images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/admin/products/{productId}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "productId")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetVariantStock handles PUT /api/v1/admin/products/{productId}/variants/{variantId}/stock.
func (h *AdminHandler) SetVariantStock(w http.ResponseWriter, r *http.Request) {
	var req SetStockRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	variant, err := h.catalog.SetVariantStock(r.Context(), chi.URLParam(r, "productId"), chi.URLParam(r, "variantId"), req.Stock)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: variant})
}

// UpdateOrderStatus handles PUT /api/v1/admin/orders/{orderId}/status.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
