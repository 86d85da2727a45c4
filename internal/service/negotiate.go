package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/payment"
	"github.com/sartoro/checkout-service/internal/repository"
)

// InitiatePaymentSession negotiates a payment session for the cart's current
// total and records it. The returned session carries the client-usable data
// blob (client secret) for the out-of-band confirmation step.
func (s *CheckoutService) InitiatePaymentSession(ctx context.Context, cartID string) (*domain.PaymentSession, error) {
	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}

	if cart.IsCompleted() {
		return nil, domain.ErrCartCompleted
	}
	if len(cart.Items) == 0 {
		return nil, &ValidationError{Reason: "cart has no items"}
	}

	negotiated, err := s.negotiator.CreateSession(ctx, payment.SessionRequest{
		CartID:       cart.ID,
		Amount:       cart.Total(),
		CurrencyCode: cart.CurrencyCode,
		Email:        cart.Email,
	})
	if err != nil {
		var exhausted *payment.ExhaustedError
		if errors.As(err, &exhausted) {
			if exhausted.AllUnavailable() {
				return nil, fmt.Errorf("%w: %v", ErrExternalUnavailable, exhausted)
			}
			return nil, &ConfigurationError{Attempts: exhausted.Attempts}
		}
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	session := &domain.PaymentSession{
		ID:                uuid.NewString(),
		CartID:            cart.ID,
		ProviderID:        negotiated.ProviderID,
		ProviderSessionID: negotiated.Session.ProviderSessionID,
		Status:            negotiated.Session.Status,
		Amount:            cart.Total(),
		CurrencyCode:      cart.CurrencyCode,
		Data:              negotiated.Session.Data,
	}
	if session.Status == "" {
		session.Status = domain.SessionStatusPending
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		// The provider-side artifact exists but we could not record it. Cancel
		// it rather than leave a stray authorization behind.
		s.log.Errorw("failed to record payment session, canceling provider side",
			"cart_id", cart.ID, "provider_session_id", session.ProviderSessionID, "error", err)
		s.cancelProviderSession(ctx, session)
		return nil, fmt.Errorf("record payment session: %w", err)
	}

	s.log.Infow("payment session negotiated",
		"cart_id", cart.ID,
		"provider_id", negotiated.ProviderID,
		"session_id", session.ID,
		"amount", session.Amount)

	return session, nil
}

func (s *CheckoutService) cancelProviderSession(ctx context.Context, session *domain.PaymentSession) {
	provider, err := s.negotiator.Provider(session.ProviderID)
	if err != nil {
		return
	}
	if err := provider.Cancel(ctx, session.ProviderSessionID); err != nil {
		s.log.Warnw("provider-side cancel failed",
			"provider_session_id", session.ProviderSessionID, "error", err)
	}
}
