package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vymjay/aprylo/internal/service"
	"github.com/vymjay/aprylo/pkg/health"
	"github.com/vymjay/aprylo/pkg/middleware"
)

// RouterConfig bundles the dependencies the router wires together.
type RouterConfig struct {
	Catalog  *service.CatalogService
	Reviews  *service.ReviewService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Health   *health.Handler
	Auth     middleware.TokenValidator
	Logger   *slog.Logger
}

// NewRouter creates the chi router with every storefront route registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	r.Get("/healthz", cfg.Health.LivenessHandler())
	r.Get("/readyz", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	productHandler := NewProductHandler(cfg.Catalog, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.Reviews, cfg.Logger)
	cartHandler := NewCartHandler(cfg.Cart, cfg.Logger)
	orderHandler := NewOrderHandler(cfg.Checkout, cfg.Orders, cfg.Logger)
	adminHandler := NewAdminHandler(cfg.Catalog, cfg.Orders, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Public catalog. Short shared cache headers since listings only
		// show published products.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(30))
			r.Get("/products", productHandler.ListProducts)
			r.Get("/products/{productId}", productHandler.GetProduct)
		})

		// Review feed. Reads take an optional identity so has_upvoted can
		// be derived for signed-in viewers.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuthenticate(cfg.Auth))
			r.Get("/products/{productId}/reviews", reviewHandler.ListReviews)
		})

		// Authenticated storefront.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Auth))

			r.Post("/products/{productId}/reviews", reviewHandler.CreateReview)
			r.Put("/reviews/{reviewId}", reviewHandler.UpdateReview)
			r.Delete("/reviews/{reviewId}", reviewHandler.DeleteReview)
			r.Post("/reviews/{reviewId}/upvotes", reviewHandler.UpvoteReview)
			r.Delete("/reviews/{reviewId}/upvotes", reviewHandler.RemoveReviewUpvote)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{productId}/{variantId}", cartHandler.UpdateItemQuantity)
			r.Post("/cart/items/{productId}/{variantId}/decrement", cartHandler.DecrementItem)
			r.Delete("/cart/items/{productId}/{variantId}", cartHandler.RemoveItem)

			r.Post("/checkout", orderHandler.Checkout)
			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/{orderId}", orderHandler.GetOrder)
		})

		// Admin surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Auth))
			r.Use(middleware.RequireRole("admin"))

			r.Get("/admin/products", adminHandler.ListProducts)
			r.Post("/admin/products", adminHandler.CreateProduct)
			r.Put("/admin/products/{productId}", adminHandler.UpdateProduct)
			r.Delete("/admin/products/{productId}", adminHandler.DeleteProduct)
			r.Put("/admin/products/{productId}/variants/{variantId}/stock", adminHandler.SetVariantStock)
			r.Put("/admin/orders/{orderId}/status", adminHandler.UpdateOrderStatus)
		})
	})

	return r
}
