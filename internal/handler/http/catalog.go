package http

import (
	"log/slog"
	"net/http"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/gateway"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/httputil"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/middleware"
)

// CatalogHandler proxies branch and product listings from the storefront
// backend. A bearer token is forwarded when the caller has one but is never
// required.
type CatalogHandler struct {
	backend *gateway.Client
	logger  *slog.Logger
}

// NewCatalogHandler creates a catalog HTTP handler.
func NewCatalogHandler(backend *gateway.Client, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{backend: backend, logger: logger}
}

// Branches handles GET /api/v1/branches
func (h *CatalogHandler) Branches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.backend.Branches(r.Context(), middleware.TokenFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: branches})
}

// Products handles GET /api/v1/products?branch_id=
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.backend.Products(r.Context(), middleware.TokenFromContext(r.Context()), r.URL.Query().Get("branch_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}
