package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/cache"
	"github.com/sartoro/checkout-service/internal/repository"
)

// CartService owns pre-purchase cart mutation. Reads go through the cache with
// singleflight; mutations read the repository directly so the optimistic
// concurrency revision is always fresh, then invalidate the cache.
type CartService struct {
	repo  repository.CartRepository
	cache cache.CartCache
	log   *zap.SugaredLogger
	sfg   singleflight.Group
}

func NewCartService(repo repository.CartRepository, cartCache cache.CartCache, log *zap.SugaredLogger) *CartService {
	return &CartService{
		repo:  repo,
		cache: cartCache,
		log:   log,
	}
}

func (s *CartService) CreateCart(ctx context.Context, currencyCode string) (*domain.Cart, error) {
	cart := &domain.Cart{
		ID:           uuid.NewString(),
		CurrencyCode: currencyCode,
		Items:        nil,
	}
	if err := s.repo.CreateCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(cartID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warnw("cart cache get failed", "cart_id", cartID, "error", err)
		}

		cart, errGet := s.repo.GetCart(ctx, cartID)
		if errGet != nil {
			if errors.Is(errGet, repository.ErrCartNotFound) {
				return nil, ErrCartNotFound
			}
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), cartID, cart); errSet != nil {
				s.log.Warnw("cart cache set failed", "cart_id", cartID, "error", errSet)
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem appends or merges a line item. The unit price is snapshotted here,
// at add-to-cart time; nothing downstream re-prices.
func (s *CartService) AddItem(ctx context.Context, cartID string, item domain.LineItem) (*domain.Cart, error) {
	if item.Quantity < 1 {
		return nil, domain.ErrNoQuantity
	}
	item.AddedAt = time.Now()

	return s.mutate(ctx, cartID, func(cart *domain.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].VariantID == item.VariantID {
				cart.Items[i].Quantity += item.Quantity
				cart.Items[i].AddedAt = item.AddedAt
				return nil
			}
		}
		cart.Items = append(cart.Items, item)
		return nil
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, cartID, variantID string, quantity int64) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrNoQuantity
	}

	return s.mutate(ctx, cartID, func(cart *domain.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].VariantID == variantID {
				cart.Items[i].Quantity = quantity
				return nil
			}
		}
		return &ValidationError{Reason: "item not in cart"}
	})
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, variantID string) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, func(cart *domain.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].VariantID == variantID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
		return &ValidationError{Reason: "item not in cart"}
	})
}

// CartDetails carries the optional checkout fields a storefront sets as the
// shopper progresses.
type CartDetails struct {
	Email           *string
	ShippingAddress *domain.Address
	BillingAddress  *domain.Address
	ShippingMethod  *domain.ShippingMethod
}

func (s *CartService) UpdateDetails(ctx context.Context, cartID string, details CartDetails) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, func(cart *domain.Cart) error {
		if details.Email != nil {
			cart.Email = *details.Email
		}
		if details.ShippingAddress != nil {
			cart.ShippingAddress = details.ShippingAddress
		}
		if details.BillingAddress != nil {
			cart.BillingAddress = details.BillingAddress
		}
		if details.ShippingMethod != nil {
			cart.ShippingMethod = details.ShippingMethod
		}
		return nil
	})
}

// mutate runs one read-modify-write cycle against the repository, retrying a
// bounded number of times when a concurrent writer wins the revision race.
func (s *CartService) mutate(ctx context.Context, cartID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	const maxRetries = 3

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		cart, err := s.repo.GetCart(ctx, cartID)
		if err != nil {
			if errors.Is(err, repository.ErrCartNotFound) {
				return nil, ErrCartNotFound
			}
			return nil, err
		}

		if cart.IsCompleted() {
			return nil, domain.ErrCartCompleted
		}

		if err := fn(cart); err != nil {
			return nil, err
		}

		err = s.repo.UpdateCart(ctx, cart)
		if err == nil {
			s.invalidateCache(cartID)
			return cart, nil
		}
		if !errors.Is(err, repository.ErrCartConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *CartService) invalidateCache(cartID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cartID); err != nil {
		s.log.Warnw("cart cache invalidate failed", "cart_id", cartID, "error", err)
	}
}
