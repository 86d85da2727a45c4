package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/poller"
)

type OrderHandler struct {
	orders  orderStore
	poller  *poller.ReconciliationPoller
	timeout time.Duration
}

func NewOrderHandler(orders orderStore, p *poller.ReconciliationPoller, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		poller:  p,
		timeout: timeout,
	}
}

type orderStore interface {
	poller.OrderFinder
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type OrderCheckResponseDTO struct {
	// Status is "found" or "processing". "processing" is not a failure: the
	// payment may have succeeded with the order record still in flight.
	Status string        `json:"status"`
	Order  *domain.Order `json:"order,omitempty"`
}

// GET /api/v1/orders/check?cart_id=...
//
// The client-driven reconciliation endpoint: the storefront polls this after
// an async payment confirmation until the order shows up or its own budget
// runs out.
func (h *OrderHandler) CheckOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := r.URL.Query().Get("cart_id")
	if cartID == "" {
		respondError(w, http.StatusBadRequest, "missing_cart_id", "cart_id query parameter is required")
		return
	}

	result, err := h.poller.CheckOnce(ctx, cartID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if result.Outcome == poller.OutcomeFound {
		respondJSON(w, http.StatusOK, OrderCheckResponseDTO{Status: "found", Order: result.Order})
		return
	}
	respondJSON(w, http.StatusOK, OrderCheckResponseDTO{Status: "processing"})
}

// GET /api/v1/orders/{order_id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	order, err := h.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
