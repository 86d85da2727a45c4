package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/repository"
)

// AbandonCart cancels every uncaptured payment session for the cart with the
// processor, so an abandoned checkout leaves no stray authorization behind.
// The cart itself stays open.
func (s *CheckoutService) AbandonCart(ctx context.Context, cartID string) error {
	if _, err := s.carts.GetCart(ctx, cartID); err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return ErrCartNotFound
		}
		return fmt.Errorf("load cart: %w", err)
	}

	sessions, err := s.sessions.GetSessionsByCartID(ctx, cartID)
	if err != nil {
		return fmt.Errorf("load payment sessions: %w", err)
	}

	for _, session := range sessions {
		if err := s.CancelSession(ctx, session); err != nil {
			return err
		}
	}
	return nil
}

// CancelSession cancels one session provider-side and marks it locally. Used
// by explicit abandonment and by the stale-session sweep.
func (s *CheckoutService) CancelSession(ctx context.Context, session *domain.PaymentSession) error {
	if session.Status.IsTerminal() {
		return nil
	}

	if session.ProviderSessionID != "" {
		provider, err := s.negotiator.Provider(session.ProviderID)
		if err == nil {
			if cancelErr := provider.Cancel(ctx, session.ProviderSessionID); cancelErr != nil {
				return fmt.Errorf("cancel provider session %s: %w", session.ProviderSessionID, cancelErr)
			}
		}
	}

	if err := s.sessions.UpdateSessionStatus(ctx, session.ID, domain.SessionStatusCanceled); err != nil {
		return fmt.Errorf("mark session canceled: %w", err)
	}

	s.log.Infow("payment session canceled",
		"cart_id", session.CartID, "session_id", session.ID)
	return nil
}
