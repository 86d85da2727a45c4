package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/repository"
)

func newTestCartService(repo repository.CartRepository) *CartService {
	return NewCartService(repo, noopCache{}, zap.NewNop().Sugar())
}

func TestCreateCart(t *testing.T) {
	svc := newTestCartService(newMockCartRepository())

	cart, err := svc.CreateCart(context.Background(), "eur")
	require.NoError(t, err)
	assert.NotEmpty(t, cart.ID)
	assert.Equal(t, "eur", cart.CurrencyCode)
	assert.Empty(t, cart.Items)
}

func TestAddItem_MergesSameVariant(t *testing.T) {
	repo := newMockCartRepository()
	svc := newTestCartService(repo)

	cart, err := svc.CreateCart(context.Background(), "usd")
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), cart.ID, domain.LineItem{
		VariantID: "v1", Title: "Navy Suit", Quantity: 1, UnitPrice: 5000,
	})
	require.NoError(t, err)

	// Same variant again, even at a new catalog price: quantity merges and the
	// originally snapshotted price wins.
	updated, err := svc.AddItem(context.Background(), cart.ID, domain.LineItem{
		VariantID: "v1", Title: "Navy Suit", Quantity: 2, UnitPrice: 9999,
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.Equal(t, int64(3), updated.Items[0].Quantity)
	assert.Equal(t, int64(5000), updated.Items[0].UnitPrice)
}

func TestAddItem_ZeroQuantity(t *testing.T) {
	svc := newTestCartService(newMockCartRepository())
	_, err := svc.AddItem(context.Background(), "cart-1", domain.LineItem{VariantID: "v1"})
	assert.ErrorIs(t, err, domain.ErrNoQuantity)
}

func TestUpdateQuantity_UnknownVariant(t *testing.T) {
	svc := newTestCartService(newMockCartRepository())

	cart, err := svc.CreateCart(context.Background(), "usd")
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(context.Background(), cart.ID, "nope", 2)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestRemoveItem(t *testing.T) {
	svc := newTestCartService(newMockCartRepository())

	cart, err := svc.CreateCart(context.Background(), "usd")
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), cart.ID, domain.LineItem{VariantID: "v1", Quantity: 1, UnitPrice: 100})
	require.NoError(t, err)

	updated, err := svc.RemoveItem(context.Background(), cart.ID, "v1")
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
}

func TestMutation_CompletedCartIsImmutable(t *testing.T) {
	repo := newMockCartRepository()
	svc := newTestCartService(repo)

	cart, err := svc.CreateCart(context.Background(), "usd")
	require.NoError(t, err)
	require.NoError(t, repo.MarkCompleted(context.Background(), cart.ID, cart.CreatedAt))

	_, err = svc.AddItem(context.Background(), cart.ID, domain.LineItem{VariantID: "v1", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrCartCompleted)
}

func TestMutation_CartNotFound(t *testing.T) {
	svc := newTestCartService(newMockCartRepository())
	_, err := svc.AddItem(context.Background(), "missing", domain.LineItem{VariantID: "v1", Quantity: 1})
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestGetCart_NotFound(t *testing.T) {
	svc := newTestCartService(newMockCartRepository())
	_, err := svc.GetCart(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

// conflictingCartRepository loses the revision race a fixed number of times
// before letting the write through.
type conflictingCartRepository struct {
	*mockCartRepository
	conflicts int
}

func (r *conflictingCartRepository) UpdateCart(ctx context.Context, cart *domain.Cart) error {
	if r.conflicts > 0 {
		r.conflicts--
		return repository.ErrCartConflict
	}
	return r.mockCartRepository.UpdateCart(ctx, cart)
}

func TestMutation_RetriesOnRevisionConflict(t *testing.T) {
	repo := &conflictingCartRepository{mockCartRepository: newMockCartRepository(), conflicts: 2}
	svc := newTestCartService(repo)

	cart, err := svc.CreateCart(context.Background(), "usd")
	require.NoError(t, err)

	updated, err := svc.AddItem(context.Background(), cart.ID, domain.LineItem{VariantID: "v1", Quantity: 1, UnitPrice: 100})
	require.NoError(t, err)
	assert.Len(t, updated.Items, 1)
}

func TestMutation_GivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &conflictingCartRepository{mockCartRepository: newMockCartRepository(), conflicts: 10}
	svc := newTestCartService(repo)

	cart, err := svc.CreateCart(context.Background(), "usd")
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), cart.ID, domain.LineItem{VariantID: "v1", Quantity: 1, UnitPrice: 100})
	assert.ErrorIs(t, err, repository.ErrCartConflict)
}
