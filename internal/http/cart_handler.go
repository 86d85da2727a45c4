package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/service"
)

type CartHandler struct {
	carts   *service.CartService
	timeout time.Duration
}

func NewCartHandler(carts *service.CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type CreateCartRequestDTO struct {
	CurrencyCode string `json:"currency_code"`
}

type AddItemRequestDTO struct {
	VariantID string `json:"variant_id"`
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int64 `json:"quantity"`
}

type UpdateCartRequestDTO struct {
	Email           *string                `json:"email,omitempty"`
	ShippingAddress *domain.Address        `json:"shipping_address,omitempty"`
	BillingAddress  *domain.Address        `json:"billing_address,omitempty"`
	ShippingMethod  *domain.ShippingMethod `json:"shipping_method,omitempty"`
}

type cartResponseDTO struct {
	*domain.Cart
	ItemTotal     int64 `json:"item_total"`
	ShippingTotal int64 `json:"shipping_total"`
	Total         int64 `json:"total"`
}

func cartResponse(cart *domain.Cart) cartResponseDTO {
	return cartResponseDTO{
		Cart:          cart,
		ItemTotal:     cart.ItemTotal(),
		ShippingTotal: cart.ShippingTotal(),
		Total:         cart.Total(),
	}
}

// POST /api/v1/carts
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.CurrencyCode == "" {
		req.CurrencyCode = "usd"
	}

	cart, err := h.carts.CreateCart(ctx, req.CurrencyCode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(cart))
}

// GET /api/v1/carts/{cart_id}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, chi.URLParam(r, "cart_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}

// POST /api/v1/carts/{cart_id}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.VariantID == "" {
		respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.UnitPrice < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "unit_price must not be negative")
		return
	}

	cart, err := h.carts.AddItem(ctx, chi.URLParam(r, "cart_id"), domain.LineItem{
		VariantID: req.VariantID,
		Title:     req.Title,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(cart))
}

// PUT /api/v1/carts/{cart_id}/items/{variant_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx,
		chi.URLParam(r, "cart_id"), chi.URLParam(r, "variant_id"), req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}

// DELETE /api/v1/carts/{cart_id}/items/{variant_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.RemoveItem(ctx,
		chi.URLParam(r, "cart_id"), chi.URLParam(r, "variant_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}

// PUT /api/v1/carts/{cart_id}
func (h *CartHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.UpdateDetails(ctx, chi.URLParam(r, "cart_id"), service.CartDetails{
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		ShippingMethod:  req.ShippingMethod,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(cart))
}
