package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sartoro/checkout-service/domain"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateCart   = errors.New("order already exists for this cart")
	ErrSessionNotFound = errors.New("payment session not found")
	ErrCartNotFound    = errors.New("cart not found")
	// ErrCartConflict means a concurrent writer updated the cart first.
	ErrCartConflict = errors.New("cart was modified concurrently")
)

type OutboxEvent struct {
	ID          int64
	AggregateID string // cart id, used as the kafka message key for ordering
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// OrderStore persists orders. CreateOrder must return ErrDuplicateCart when an
// order already exists for the cart; the committer resolves that to the
// existing row.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByCartID(ctx context.Context, cartID string) (*domain.Order, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.PaymentSession) error
	GetSessionsByCartID(ctx context.Context, cartID string) ([]*domain.PaymentSession, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error
	// AuthorizeSessionByProviderRef marks the session authorized and enqueues
	// the outbox event in one transaction. Returns the updated session.
	AuthorizeSessionByProviderRef(ctx context.Context, providerRef string) (*domain.PaymentSession, error)
	FailSessionByProviderRef(ctx context.Context, providerRef string) error
	// GetStaleSessions returns non-terminal sessions older than the cutoff,
	// candidates for provider-side cancellation.
	GetStaleSessions(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentSession, error)
}

type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type CartRepository interface {
	CreateCart(ctx context.Context, cart *domain.Cart) error
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	// UpdateCart persists the cart if its revision still matches, bumping the
	// revision. Returns ErrCartConflict on a lost race.
	UpdateCart(ctx context.Context, cart *domain.Cart) error
	MarkCompleted(ctx context.Context, cartID string, at time.Time) error
}
