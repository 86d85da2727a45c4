package service

import (
	"go.uber.org/zap"

	"github.com/sartoro/checkout-service/internal/cache"
	"github.com/sartoro/checkout-service/internal/payment"
	"github.com/sartoro/checkout-service/internal/repository"
)

// CheckoutService drives a cart through payment negotiation into a committed
// order.
type CheckoutService struct {
	carts      repository.CartRepository
	sessions   repository.SessionStore
	orders     repository.OrderStore
	negotiator *payment.Negotiator
	cache      cache.CartCache
	log        *zap.SugaredLogger
}

func NewCheckoutService(
	carts repository.CartRepository,
	sessions repository.SessionStore,
	orders repository.OrderStore,
	negotiator *payment.Negotiator,
	cartCache cache.CartCache,
	log *zap.SugaredLogger,
) *CheckoutService {
	return &CheckoutService{
		carts:      carts,
		sessions:   sessions,
		orders:     orders,
		negotiator: negotiator,
		cache:      cartCache,
		log:        log,
	}
}
