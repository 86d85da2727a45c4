// Package poller bridges the gap between "payment confirmed" and "order
// visible" when order creation runs off an asynchronous event. It asks "does
// an order exist for this cart yet" on a fixed interval with a hard attempt
// ceiling; non-arrival within the bound is reported as still-processing, not
// failure, because the payment may well have succeeded.
package poller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/repository"
)

type Outcome string

const (
	// OutcomeFound means the order showed up within the attempt budget.
	OutcomeFound Outcome = "FOUND"
	// OutcomeProcessing means the budget ran out with no order. This is NOT a
	// failure state: callers must surface "we will email you", never "failed".
	OutcomeProcessing Outcome = "PROCESSING"
)

type Result struct {
	Outcome  Outcome
	Order    *domain.Order
	Attempts int
}

type OrderFinder interface {
	GetOrderByCartID(ctx context.Context, cartID string) (*domain.Order, error)
}

type ReconciliationPoller struct {
	orders      OrderFinder
	interval    time.Duration
	maxAttempts int
	log         *zap.SugaredLogger
}

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 10
)

func New(orders OrderFinder, interval time.Duration, maxAttempts int, log *zap.SugaredLogger) *ReconciliationPoller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &ReconciliationPoller{
		orders:      orders,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// WaitForOrder polls until the order appears, the attempt budget runs out, or
// the context is canceled. The attempt count never exceeds the configured
// maximum.
func (p *ReconciliationPoller) WaitForOrder(ctx context.Context, cartID string) (*Result, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		order, err := p.orders.GetOrderByCartID(ctx, cartID)
		if err == nil {
			p.log.Infow("order found", "cart_id", cartID, "order_id", order.ID, "attempt", attempt)
			return &Result{Outcome: OutcomeFound, Order: order, Attempts: attempt}, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			p.log.Warnw("order lookup failed", "cart_id", cartID, "attempt", attempt, "error", err)
		}

		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.log.Infow("order still processing after poll budget",
		"cart_id", cartID, "attempts", p.maxAttempts)
	return &Result{Outcome: OutcomeProcessing, Attempts: p.maxAttempts}, nil
}

// CheckOnce answers the client-driven polling endpoint: one lookup, no wait.
func (p *ReconciliationPoller) CheckOnce(ctx context.Context, cartID string) (*Result, error) {
	order, err := p.orders.GetOrderByCartID(ctx, cartID)
	if err == nil {
		return &Result{Outcome: OutcomeFound, Order: order, Attempts: 1}, nil
	}
	if errors.Is(err, repository.ErrOrderNotFound) {
		return &Result{Outcome: OutcomeProcessing, Attempts: 1}, nil
	}
	return nil, err
}
