package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/repository"
)

// CompleteCart converts an authorized cart into an order exactly once. Both
// the webhook-driven consumer and the client-facing completion endpoint call
// this; the orders table's cart_id uniqueness serializes the race and the
// lookup-first path makes repeats return the existing order unchanged.
func (s *CheckoutService) CompleteCart(ctx context.Context, cartID string) (*domain.Order, error) {
	existing, err := s.orders.GetOrderByCartID(ctx, cartID)
	if err == nil {
		// Repair the completion mark if an earlier attempt lost it.
		s.markCartCompleted(ctx, cartID, existing.CreatedAt)
		return existing, nil
	}
	if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("lookup order by cart: %w", err)
	}

	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if err := cart.ValidateForCheckout(); err != nil && !errors.Is(err, domain.ErrCartCompleted) {
		return nil, &ValidationError{Reason: err.Error()}
	}

	session, err := s.authorizedSession(ctx, cartID)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrderFromCart(cart, session.ID)
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateCart) {
			// Lost the race; the winner's order is the order.
			winner, getErr := s.orders.GetOrderByCartID(ctx, cartID)
			if getErr != nil {
				return nil, fmt.Errorf("fetch winning order: %w", getErr)
			}
			s.markCartCompleted(ctx, cartID, winner.CreatedAt)
			return winner, nil
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.markCartCompleted(ctx, cartID, time.Now())
	s.capturePayment(ctx, session)
	s.invalidateCartCache(cartID)

	s.log.Infow("order committed",
		"order_id", order.ID,
		"cart_id", cartID,
		"session_id", session.ID,
		"total", order.Total)

	return order, nil
}

// authorizedSession finds a capturable session for the cart. When the local
// record lags the processor (webhook not delivered yet), non-terminal sessions
// are re-checked against the provider before giving up.
func (s *CheckoutService) authorizedSession(ctx context.Context, cartID string) (*domain.PaymentSession, error) {
	sessions, err := s.sessions.GetSessionsByCartID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("load payment sessions: %w", err)
	}

	for _, session := range sessions {
		if session.Status.Authorized() {
			return session, nil
		}
	}

	for _, session := range sessions {
		if session.Status.IsTerminal() || session.ProviderSessionID == "" {
			continue
		}
		provider, lookupErr := s.negotiator.Provider(session.ProviderID)
		if lookupErr != nil {
			continue
		}
		status, statusErr := provider.RetrieveStatus(ctx, session.ProviderSessionID)
		if statusErr != nil {
			s.log.Warnw("provider status check failed",
				"session_id", session.ID, "error", statusErr)
			continue
		}
		if status.Authorized() {
			if updateErr := s.sessions.UpdateSessionStatus(ctx, session.ID, status); updateErr != nil {
				s.log.Warnw("session status update failed",
					"session_id", session.ID, "error", updateErr)
			}
			session.Status = status
			return session, nil
		}
	}

	return nil, ErrPaymentNotReady
}

// markCartCompleted retries the completion mark to a stable state. The order
// row already exists at this point, so failure here is repairable on the next
// idempotent commit call; it never un-does the order.
func (s *CheckoutService) markCartCompleted(ctx context.Context, cartID string, at time.Time) {
	const maxRetries = 3

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.carts.MarkCompleted(ctx, cartID, at)
		if err == nil || errors.Is(err, repository.ErrCartNotFound) {
			return
		}
		s.log.Warnw("mark cart completed failed",
			"cart_id", cartID, "attempt", attempt, "error", err)
	}
}

func (s *CheckoutService) capturePayment(ctx context.Context, session *domain.PaymentSession) {
	if session.Status == domain.SessionStatusCaptured {
		return
	}
	provider, err := s.negotiator.Provider(session.ProviderID)
	if err != nil {
		return
	}
	if err := provider.Capture(ctx, session.ProviderSessionID); err != nil {
		// The order stands; the session stays AUTHORIZED and the funds hold
		// remains capturable by an operator.
		s.log.Errorw("payment capture failed",
			"session_id", session.ID, "error", err)
		return
	}
	if err := s.sessions.UpdateSessionStatus(ctx, session.ID, domain.SessionStatusCaptured); err != nil {
		s.log.Warnw("session capture mark failed", "session_id", session.ID, "error", err)
	}
}

func (s *CheckoutService) invalidateCartCache(cartID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cartID); err != nil {
		s.log.Warnw("cart cache invalidate failed", "cart_id", cartID, "error", err)
	}
}
