package payment

import (
	"context"
	"errors"

	"github.com/sartoro/checkout-service/domain"
)

var (
	// ErrUnknownProvider means the processor integration does not recognize the
	// provider identifier. This failure is deterministic, not transient.
	ErrUnknownProvider = errors.New("unknown payment provider id")
	// ErrUnavailable means the processor could not be reached at all.
	ErrUnavailable = errors.New("payment provider unavailable")
)

// SessionRequest carries everything a provider needs to open a session.
type SessionRequest struct {
	CartID       string
	Amount       int64 // minor units
	CurrencyCode string
	Email        string
}

// ProviderSession is the provider-side handle for one authorization attempt.
// Data holds whatever the client needs to confirm out of band (client secret).
type ProviderSession struct {
	ProviderSessionID string
	Status            domain.SessionStatus
	Data              map[string]string
}

// Provider is one payment processor integration.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*ProviderSession, error)
	RetrieveStatus(ctx context.Context, providerSessionID string) (domain.SessionStatus, error)
	Capture(ctx context.Context, providerSessionID string) error
	Cancel(ctx context.Context, providerSessionID string) error
}

// Registry maps provider identifier strings to integrations. The processor
// contract keys sessions by these ids, and the expected id has drifted across
// deployment versions, so several ids may point at the same integration.
type Registry map[string]Provider

func (r Registry) Lookup(providerID string) (Provider, error) {
	p, ok := r[providerID]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}
