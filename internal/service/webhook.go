package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/repository"
)

// HandlePaymentAuthorized processes a verified processor confirmation event.
// The session flip and the outbox event land in one transaction; the outbox
// poller then hands the commit to the order consumer. Duplicate deliveries are
// absorbed by the terminal-status guard in the store.
func (s *CheckoutService) HandlePaymentAuthorized(ctx context.Context, providerRef string) (*domain.PaymentSession, error) {
	session, err := s.sessions.AuthorizeSessionByProviderRef(ctx, providerRef)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Confirmation for a session this deployment never recorded.
			// Acknowledged upstream; nothing to commit.
			s.log.Warnw("authorization event for unknown session", "provider_ref", providerRef)
			return nil, nil
		}
		return nil, fmt.Errorf("authorize session: %w", err)
	}

	s.log.Infow("payment authorized",
		"cart_id", session.CartID,
		"session_id", session.ID,
		"provider_ref", providerRef)
	return session, nil
}

// HandlePaymentAuthorizedRef is HandlePaymentAuthorized without the session
// return, for callers that only care about success.
func (s *CheckoutService) HandlePaymentAuthorizedRef(ctx context.Context, providerRef string) error {
	_, err := s.HandlePaymentAuthorized(ctx, providerRef)
	return err
}

// HandlePaymentFailed marks the session errored. The cart stays open so the
// shopper can try a new session; sessions are append-only.
func (s *CheckoutService) HandlePaymentFailed(ctx context.Context, providerRef string) error {
	err := s.sessions.FailSessionByProviderRef(ctx, providerRef)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return fmt.Errorf("fail session: %w", err)
	}
	if err == nil {
		s.log.Infow("payment failed", "provider_ref", providerRef)
	}
	return nil
}
