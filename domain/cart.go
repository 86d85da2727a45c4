package domain

import (
	"errors"
	"time"
)

var (
	ErrCartCompleted = errors.New("cart is completed and immutable")
	ErrEmptyCart     = errors.New("cart has no items")
	ErrNoQuantity    = errors.New("quantity must be at least 1")
)

type Address struct {
	FirstName   string `bson:"first_name" json:"first_name"`
	LastName    string `bson:"last_name" json:"last_name"`
	Line1       string `bson:"line1" json:"line1"`
	Line2       string `bson:"line2,omitempty" json:"line2,omitempty"`
	City        string `bson:"city" json:"city"`
	Province    string `bson:"province,omitempty" json:"province,omitempty"`
	PostalCode  string `bson:"postal_code" json:"postal_code"`
	CountryCode string `bson:"country_code" json:"country_code"`
}

// LineItem snapshots the unit price at add-to-cart time. Commit never
// re-prices, so a catalog price change mid-checkout cannot move the total.
type LineItem struct {
	VariantID string    `bson:"variant_id" json:"variant_id"`
	Title     string    `bson:"title" json:"title"`
	Quantity  int64     `bson:"quantity" json:"quantity"`
	UnitPrice int64     `bson:"unit_price" json:"unit_price"` // minor units
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

func (i LineItem) Subtotal() int64 {
	return i.UnitPrice * i.Quantity
}

type ShippingMethod struct {
	Name  string `bson:"name" json:"name"`
	Price int64  `bson:"price" json:"price"` // minor units
}

type Cart struct {
	ID              string          `bson:"_id" json:"id"`
	CurrencyCode    string          `bson:"currency_code" json:"currency_code"`
	Email           string          `bson:"email,omitempty" json:"email,omitempty"`
	Items           []LineItem      `bson:"items" json:"items"`
	ShippingAddress *Address        `bson:"shipping_address,omitempty" json:"shipping_address,omitempty"`
	BillingAddress  *Address        `bson:"billing_address,omitempty" json:"billing_address,omitempty"`
	ShippingMethod  *ShippingMethod `bson:"shipping_method,omitempty" json:"shipping_method,omitempty"`
	DiscountTotal   int64           `bson:"discount_total" json:"discount_total"`
	CompletedAt     *time.Time      `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Revision        int64           `bson:"revision" json:"-"`
	CreatedAt       time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updated_at"`
}

func (c *Cart) IsCompleted() bool {
	return c.CompletedAt != nil
}

func (c *Cart) ItemTotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

func (c *Cart) ShippingTotal() int64 {
	if c.ShippingMethod == nil {
		return 0
	}
	return c.ShippingMethod.Price
}

// Total is item subtotals plus shipping minus discounts, in minor units.
func (c *Cart) Total() int64 {
	return c.ItemTotal() + c.ShippingTotal() - c.DiscountTotal
}

// ValidateForCheckout reports why a cart cannot proceed to payment.
func (c *Cart) ValidateForCheckout() error {
	if c.IsCompleted() {
		return ErrCartCompleted
	}
	if len(c.Items) == 0 {
		return ErrEmptyCart
	}
	if c.Email == "" {
		return errors.New("cart has no email")
	}
	if c.ShippingAddress == nil {
		return errors.New("cart has no shipping address")
	}
	return nil
}
