package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/service"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/httputil"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// AddItemRequest is the JSON body for adding a product to the cart.
type AddItemRequest struct {
	ProductID     string `json:"product_id" validate:"required"`
	Name          string `json:"name" validate:"required,min=1,max=500"`
	Brand         string `json:"brand"`
	UnitType      string `json:"unit_type" validate:"required,oneof=bottle crate"`
	BranchID      string `json:"branch_id"`
	UnitPrice     int64  `json:"unit_price" validate:"gte=0"`
	OriginalPrice int64  `json:"original_price" validate:"gte=0"`
	Quantity      int    `json:"quantity" validate:"required,gte=1,lte=50"`
}

// UpdateQuantityRequest is the JSON body for changing a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Get(r.Context(), ownerID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), ownerID(r), domain.CartLine{
		ProductID:     req.ProductID,
		Name:          req.Name,
		Brand:         req.Brand,
		UnitType:      domain.UnitType(req.UnitType),
		BranchID:      req.BranchID,
		UnitPrice:     req.UnitPrice,
		OriginalPrice: req.OriginalPrice,
		Quantity:      req.Quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// UpdateQuantity handles PUT /api/v1/cart/items/{lineID}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), ownerID(r), chi.URLParam(r, "lineID"), req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/cart/items/{lineID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveItem(r.Context(), ownerID(r), chi.URLParam(r, "lineID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), ownerID(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTotals handles GET /api/v1/cart/totals?delivery=
func (h *CartHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	method, err := domain.ParseDeliveryMethod(r.URL.Query().Get("delivery"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
		})
		return
	}

	totals, err := h.service.Totals(r.Context(), ownerID(r), method)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: totals})
}
