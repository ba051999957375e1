package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/gateway"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/service"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/health"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/middleware"
)

// NewRouter creates the chi router with all checkout service routes.
func NewRouter(
	cartService *service.CartService,
	checkoutService *service.CheckoutService,
	backend *gateway.Client,
	validate middleware.TokenValidator,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	serviceName string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing(serviceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(cartService, logger)
	checkoutHandler := NewCheckoutHandler(checkoutService, logger)
	catalogHandler := NewCatalogHandler(backend, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(validate))
		r.Use(middleware.RequestLogger(logger))

		// Catalog: public, token forwarded when present.
		r.Get("/branches", catalogHandler.Branches)
		r.Get("/products", catalogHandler.Products)

		// Cart and checkout need an identity: a signed-in user or an
		// anonymous session.
		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity)
			r.Use(ContentTypeJSON)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Get("/totals", cartHandler.GetTotals)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{lineID}", cartHandler.UpdateQuantity)
				r.Delete("/items/{lineID}", cartHandler.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", checkoutHandler.PlaceOrder)
				r.Get("/{id}", checkoutHandler.GetSession)
				r.Post("/{id}/refresh", checkoutHandler.Refresh)
				r.Post("/{id}/retry", checkoutHandler.Retry)
				r.Post("/{id}/dismiss", checkoutHandler.Dismiss)
			})
		})
	})

	return r
}
