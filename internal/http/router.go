package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Cart           *CartHandler
	Checkout       *CheckoutHandler
	Order          *OrderHandler
	Webhook        *WebhookHandler
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/carts", func(r chi.Router) {
			r.Post("/", cfg.Cart.CreateCart)
			r.Route("/{cart_id}", func(r chi.Router) {
				r.Get("/", cfg.Cart.GetCart)
				r.Put("/", cfg.Cart.UpdateCart)
				r.Post("/items", cfg.Cart.AddItem)
				r.Put("/items/{variant_id}", cfg.Cart.UpdateQuantity)
				r.Delete("/items/{variant_id}", cfg.Cart.RemoveItem)
				r.Post("/payment-sessions", cfg.Checkout.InitiatePaymentSession)
				r.Post("/complete", cfg.Checkout.CompleteCart)
				r.Post("/abandon", cfg.Checkout.AbandonCart)
			})
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/check", cfg.Order.CheckOrder)
			r.Get("/{order_id}", cfg.Order.GetOrder)
		})
	})

	// The processor calls this; it bypasses the storefront API prefix.
	r.Post("/hooks/payment", cfg.Webhook.HandleEvent)

	return otelhttp.NewHandler(r, "checkout-service")
}
