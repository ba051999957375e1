package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/domain"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/service"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/httputil"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/middleware"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/validator"
)

// CheckoutHandler handles HTTP requests for the checkout workflow.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// PlaceOrderRequest is the JSON body for starting a checkout.
type PlaceOrderRequest struct {
	BranchID string `json:"branch_id"`
	Phone    string `json:"phone"`
	Delivery string `json:"delivery" validate:"omitempty,oneof=pickup standard express"`
}

// RetryRequest optionally corrects the phone number for a payment retry.
type RetryRequest struct {
	Phone string `json:"phone"`
}

// PlaceOrder handles POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
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

	method, err := domain.ParseDeliveryMethod(req.Delivery)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
		})
		return
	}

	session, err := h.service.PlaceOrder(r.Context(), ownerID(r), middleware.TokenFromContext(r.Context()), service.PlaceOrderInput{
		BranchID: req.BranchID,
		Phone:    req.Phone,
		Delivery: method,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: session})
}

// GetSession handles GET /api/v1/checkout/{id}
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// Refresh handles POST /api/v1/checkout/{id}/refresh
func (h *CheckoutHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Refresh(r.Context(), ownerID(r), chi.URLParam(r, "id"), middleware.TokenFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// Retry handles POST /api/v1/checkout/{id}/retry
func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	var req RetryRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	session, err := h.service.RetryPayment(r.Context(), ownerID(r), chi.URLParam(r, "id"), req.Phone, middleware.TokenFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// Dismiss handles POST /api/v1/checkout/{id}/dismiss
func (h *CheckoutHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Dismiss(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}
