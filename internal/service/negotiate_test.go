package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/payment"
)

func TestInitiatePaymentSession_RecordsNegotiatedSession(t *testing.T) {
	carts := newMockCartRepository()
	sessions := &mockSessionStore{}
	orders := newMockOrderStore()
	svc := newTestCheckoutService(carts, sessions, orders, &fakeProvider{})

	cart := checkoutReadyCart("cart-1")
	require.NoError(t, carts.CreateCart(context.Background(), cart))

	session, err := svc.InitiatePaymentSession(context.Background(), "cart-1")
	require.NoError(t, err)

	assert.Equal(t, "pp_stripe_stripe", session.ProviderID)
	assert.Equal(t, int64(11000), session.Amount)
	assert.Equal(t, "usd", session.CurrencyCode)
	assert.Contains(t, session.Data, "client_secret")

	stored, err := sessions.GetSessionsByCartID(context.Background(), "cart-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, session.ID, stored[0].ID)
}

func TestInitiatePaymentSession_EmptyCart(t *testing.T) {
	carts := newMockCartRepository()
	svc := newTestCheckoutService(carts, &mockSessionStore{}, newMockOrderStore(), &fakeProvider{})

	require.NoError(t, carts.CreateCart(context.Background(), &domain.Cart{ID: "cart-1", CurrencyCode: "usd"}))

	_, err := svc.InitiatePaymentSession(context.Background(), "cart-1")

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestInitiatePaymentSession_CompletedCart(t *testing.T) {
	carts := newMockCartRepository()
	sessions := &mockSessionStore{}
	orders := newMockOrderStore()
	svc := newTestCheckoutService(carts, sessions, orders, &fakeProvider{})

	seedAuthorizedCart(t, carts, sessions, "cart-1")
	_, err := svc.CompleteCart(context.Background(), "cart-1")
	require.NoError(t, err)

	_, err = svc.InitiatePaymentSession(context.Background(), "cart-1")
	assert.ErrorIs(t, err, domain.ErrCartCompleted)
}

func TestInitiatePaymentSession_AllCandidatesRejected(t *testing.T) {
	carts := newMockCartRepository()
	provider := &fakeProvider{createErr: errors.New("no such provider variant")}
	svc := newTestCheckoutService(carts, &mockSessionStore{}, newMockOrderStore(), provider)

	cart := checkoutReadyCart("cart-1")
	require.NoError(t, carts.CreateCart(context.Background(), cart))

	_, err := svc.InitiatePaymentSession(context.Background(), "cart-1")

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Len(t, configErr.Attempts, 2)
}

func TestInitiatePaymentSession_ProcessorDown(t *testing.T) {
	carts := newMockCartRepository()
	provider := &fakeProvider{createErr: payment.ErrUnavailable}
	svc := newTestCheckoutService(carts, &mockSessionStore{}, newMockOrderStore(), provider)

	cart := checkoutReadyCart("cart-1")
	require.NoError(t, carts.CreateCart(context.Background(), cart))

	_, err := svc.InitiatePaymentSession(context.Background(), "cart-1")
	assert.ErrorIs(t, err, ErrExternalUnavailable)
}

func TestInitiatePaymentSession_CancelsProviderSessionOnStoreFailure(t *testing.T) {
	carts := newMockCartRepository()
	provider := &fakeProvider{}
	sessions := &mockSessionStore{err: errors.New("insert failed")}
	registry := payment.Registry{"pp_stripe_stripe": provider}
	negotiator := payment.NewNegotiator(registry, []string{"pp_stripe_stripe"})
	svc := NewCheckoutService(carts, sessions, newMockOrderStore(), negotiator, noopCache{}, zap.NewNop().Sugar())

	cart := checkoutReadyCart("cart-1")
	require.NoError(t, carts.CreateCart(context.Background(), cart))

	_, err := svc.InitiatePaymentSession(context.Background(), "cart-1")
	require.Error(t, err)

	// The provider-side artifact must not be left dangling.
	assert.Equal(t, []string{"pi_cart-1"}, provider.canceled)
}
