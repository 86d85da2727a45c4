package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusFulfilled  OrderStatus = "FULFILLED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

type OrderItem struct {
	VariantID string `json:"variant_id"`
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// Order is the immutable record created from a cart exactly once. Items,
// addresses and totals are copied at commit time, not referenced, so later
// cart mutation cannot alter history.
type Order struct {
	ID               uuid.UUID   `json:"id"`
	CartID           string      `json:"cart_id"`
	PaymentSessionID string      `json:"payment_session_id"`
	Email            string      `json:"email"`
	CurrencyCode     string      `json:"currency_code"`
	Items            []OrderItem `json:"items"`
	ShippingAddress  *Address    `json:"shipping_address,omitempty"`
	BillingAddress   *Address    `json:"billing_address,omitempty"`
	ItemTotal        int64       `json:"item_total"`
	ShippingTotal    int64       `json:"shipping_total"`
	DiscountTotal    int64       `json:"discount_total"`
	Total            int64       `json:"total"`
	Status           OrderStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewOrderFromCart snapshots the cart's current state into a fresh order.
func NewOrderFromCart(cart *Cart, sessionID string) *Order {
	items := make([]OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, OrderItem{
			VariantID: item.VariantID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		})
	}

	return &Order{
		ID:               uuid.New(),
		CartID:           cart.ID,
		PaymentSessionID: sessionID,
		Email:            cart.Email,
		CurrencyCode:     cart.CurrencyCode,
		Items:            items,
		ShippingAddress:  cart.ShippingAddress,
		BillingAddress:   cart.BillingAddress,
		ItemTotal:        cart.ItemTotal(),
		ShippingTotal:    cart.ShippingTotal(),
		DiscountTotal:    cart.DiscountTotal,
		Total:            cart.Total(),
		Status:           OrderStatusPending,
	}
}
