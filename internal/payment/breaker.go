package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/sartoro/checkout-service/domain"
)

// BreakerProvider wraps a Provider with a circuit breaker so a down processor
// trips fast instead of stacking up timed-out requests.
type BreakerProvider struct {
	inner   Provider
	session *gobreaker.CircuitBreaker[*ProviderSession]
	status  *gobreaker.CircuitBreaker[domain.SessionStatus]
	action  *gobreaker.CircuitBreaker[struct{}]
}

func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected provider id is a configuration problem, not a processor
		// outage. Only availability failures count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
	}
}

func NewBreakerProvider(inner Provider, name string) *BreakerProvider {
	return &BreakerProvider{
		inner:   inner,
		session: gobreaker.NewCircuitBreaker[*ProviderSession](breakerSettings(name + "-session")),
		status:  gobreaker.NewCircuitBreaker[domain.SessionStatus](breakerSettings(name + "-status")),
		action:  gobreaker.NewCircuitBreaker[struct{}](breakerSettings(name + "-action")),
	}
}

func (b *BreakerProvider) CreateSession(ctx context.Context, req SessionRequest) (*ProviderSession, error) {
	session, err := b.session.Execute(func() (*ProviderSession, error) {
		return b.inner.CreateSession(ctx, req)
	})
	return session, mapBreakerError(err)
}

func (b *BreakerProvider) RetrieveStatus(ctx context.Context, providerSessionID string) (domain.SessionStatus, error) {
	status, err := b.status.Execute(func() (domain.SessionStatus, error) {
		return b.inner.RetrieveStatus(ctx, providerSessionID)
	})
	return status, mapBreakerError(err)
}

func (b *BreakerProvider) Capture(ctx context.Context, providerSessionID string) error {
	_, err := b.action.Execute(func() (struct{}, error) {
		return struct{}{}, b.inner.Capture(ctx, providerSessionID)
	})
	return mapBreakerError(err)
}

func (b *BreakerProvider) Cancel(ctx context.Context, providerSessionID string) error {
	_, err := b.action.Execute(func() (struct{}, error) {
		return struct{}{}, b.inner.Cancel(ctx, providerSessionID)
	})
	return mapBreakerError(err)
}

func mapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit open", ErrUnavailable)
	}
	return err
}
