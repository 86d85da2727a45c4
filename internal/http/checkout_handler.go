package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sartoro/checkout-service/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout *service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

// POST /api/v1/carts/{cart_id}/payment-sessions
func (h *CheckoutHandler) InitiatePaymentSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, err := h.checkout.InitiatePaymentSession(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// POST /api/v1/carts/{cart_id}/complete
//
// The synchronous commit path. Idempotent: a repeat call (or a race with the
// webhook-driven consumer) returns the already-created order.
func (h *CheckoutHandler) CompleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.checkout.CompleteCart(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/carts/{cart_id}/abandon
func (h *CheckoutHandler) AbandonCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.checkout.AbandonCart(ctx, chi.URLParam(r, "cart_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}
