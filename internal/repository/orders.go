package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sartoro/checkout-service/domain"
)

const orderColumns = `id, cart_id, payment_session_id, email, currency_code, items,
	shipping_address, billing_address, item_total, shipping_total, discount_total,
	total, status, created_at, updated_at`

func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	shippingJSON, err := marshalAddress(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	billingJSON, err := marshalAddress(order.BillingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal billing address: %w", err)
	}

	query := `INSERT INTO orders (id, cart_id, payment_session_id, email, currency_code, items,
	            shipping_address, billing_address, item_total, shipping_total, discount_total,
	            total, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`

	_, insertErr := s.db.ExecContext(ctx, query,
		order.ID,
		order.CartID,
		order.PaymentSessionID,
		order.Email,
		order.CurrencyCode,
		itemsJSON,
		shippingJSON,
		billingJSON,
		order.ItemTotal,
		order.ShippingTotal,
		order.DiscountTotal,
		order.Total,
		order.Status)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCart
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return s.scanOrder(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetOrderByCartID(ctx context.Context, cartID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE cart_id = $1`
	return s.scanOrder(s.db.QueryRowContext(ctx, query, cartID))
}

func (s *Store) scanOrder(row *sql.Row) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON, shippingJSON, billingJSON []byte
	err := row.Scan(
		&order.ID,
		&order.CartID,
		&order.PaymentSessionID,
		&order.Email,
		&order.CurrencyCode,
		&itemsJSON,
		&shippingJSON,
		&billingJSON,
		&order.ItemTotal,
		&order.ShippingTotal,
		&order.DiscountTotal,
		&order.Total,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if order.ShippingAddress, err = unmarshalAddress(shippingJSON); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if order.BillingAddress, err = unmarshalAddress(billingJSON); err != nil {
		return nil, fmt.Errorf("unmarshal billing address: %w", err)
	}

	return &order, nil
}

func marshalAddress(a *domain.Address) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func unmarshalAddress(data []byte) (*domain.Address, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var a domain.Address
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
