package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/cache"
	"github.com/sartoro/checkout-service/internal/payment"
	"github.com/sartoro/checkout-service/internal/repository"
)

// mockCartRepository implements repository.CartRepository in memory with the
// same revision semantics as the mongo implementation.
type mockCartRepository struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
	err   error
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockCartRepository) CreateCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cart.Revision = 1
	cart.CreatedAt = time.Now()
	cart.UpdatedAt = cart.CreatedAt
	copied := *cart
	m.carts[cart.ID] = &copied
	return nil
}

func (m *mockCartRepository) GetCart(_ context.Context, cartID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	copied := *cart
	copied.Items = append([]domain.LineItem(nil), cart.Items...)
	return &copied, nil
}

func (m *mockCartRepository) UpdateCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	stored, ok := m.carts[cart.ID]
	if !ok {
		return repository.ErrCartNotFound
	}
	if stored.Revision != cart.Revision {
		return repository.ErrCartConflict
	}
	cart.Revision++
	copied := *cart
	m.carts[cart.ID] = &copied
	return nil
}

func (m *mockCartRepository) MarkCompleted(_ context.Context, cartID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	cart.CompletedAt = &at
	cart.Revision++
	return nil
}

// mockSessionStore keeps sessions in insertion order, append-only.
type mockSessionStore struct {
	mu       sync.Mutex
	sessions []*domain.PaymentSession
	err      error
}

func (m *mockSessionStore) CreateSession(_ context.Context, session *domain.PaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	copied := *session
	m.sessions = append(m.sessions, &copied)
	return nil
}

func (m *mockSessionStore) GetSessionsByCartID(_ context.Context, cartID string) ([]*domain.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.PaymentSession
	for _, s := range m.sessions {
		if s.CartID == cartID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockSessionStore) UpdateSessionStatus(_ context.Context, sessionID string, status domain.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == sessionID {
			s.Status = status
			return nil
		}
	}
	return repository.ErrSessionNotFound
}

func (m *mockSessionStore) AuthorizeSessionByProviderRef(_ context.Context, providerRef string) (*domain.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ProviderSessionID == providerRef {
			if !s.Status.IsTerminal() && !s.Status.Authorized() {
				s.Status = domain.SessionStatusAuthorized
			}
			copied := *s
			return &copied, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockSessionStore) FailSessionByProviderRef(_ context.Context, providerRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ProviderSessionID == providerRef {
			s.Status = domain.SessionStatusErrored
			return nil
		}
	}
	return repository.ErrSessionNotFound
}

func (m *mockSessionStore) GetStaleSessions(context.Context, time.Time, int) ([]*domain.PaymentSession, error) {
	return nil, nil
}

// mockOrderStore enforces cart_id uniqueness the way the postgres constraint
// does, so commit races behave like production.
type mockOrderStore struct {
	mu       sync.Mutex
	byCartID map[string]*domain.Order
	err      error
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{byCartID: map[string]*domain.Order{}}
}

func (m *mockOrderStore) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, exists := m.byCartID[order.CartID]; exists {
		return repository.ErrDuplicateCart
	}
	order.CreatedAt = time.Now()
	copied := *order
	m.byCartID[order.CartID] = &copied
	return nil
}

func (m *mockOrderStore) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byCartID {
		if o.ID == id {
			copied := *o
			return &copied, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderStore) GetOrderByCartID(_ context.Context, cartID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.byCartID[cartID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

// fakeProvider scripts provider behavior per test.
type fakeProvider struct {
	mu             sync.Mutex
	createErr      error
	createStatus   domain.SessionStatus
	retrieveStatus domain.SessionStatus
	retrieveErr    error
	captureErr     error
	canceled       []string
	createCalls    int
}

func (f *fakeProvider) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.ProviderSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	status := f.createStatus
	if status == "" {
		status = domain.SessionStatusPending
	}
	return &payment.ProviderSession{
		ProviderSessionID: "pi_" + req.CartID,
		Status:            status,
		Data:              map[string]string{"client_secret": "cs_test_" + req.CartID},
	}, nil
}

func (f *fakeProvider) RetrieveStatus(context.Context, string) (domain.SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveErr != nil {
		return "", f.retrieveErr
	}
	if f.retrieveStatus == "" {
		return domain.SessionStatusPending, nil
	}
	return f.retrieveStatus, nil
}

func (f *fakeProvider) Capture(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captureErr
}

func (f *fakeProvider) Cancel(_ context.Context, providerSessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, providerSessionID)
	return nil
}

// noopCache satisfies cache.CartCache without storing anything.
type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.Cart, error) {
	return nil, cache.ErrCacheMiss
}
func (noopCache) Set(context.Context, string, *domain.Cart) error { return nil }
func (noopCache) Delete(context.Context, string) error            { return nil }

func newTestCheckoutService(
	carts repository.CartRepository,
	sessions repository.SessionStore,
	orders repository.OrderStore,
	provider payment.Provider,
) *CheckoutService {
	registry := payment.Registry{"pp_stripe_stripe": provider, "stripe": provider}
	negotiator := payment.NewNegotiator(registry, []string{"pp_stripe_stripe", "stripe"})
	return NewCheckoutService(carts, sessions, orders, negotiator, noopCache{}, zap.NewNop().Sugar())
}
