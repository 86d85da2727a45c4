package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/sartoro/checkout-service/domain"
)

// StripeProvider implements Provider on top of Stripe payment intents.
type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(apiKey string) *StripeProvider {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeProvider{api: api}
}

func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*ProviderSession, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.CurrencyCode),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.AddMetadata("cart_id", req.CartID)

	intent, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	return &ProviderSession{
		ProviderSessionID: intent.ID,
		Status:            mapIntentStatus(intent.Status),
		Data: map[string]string{
			"client_secret":     intent.ClientSecret,
			"payment_intent_id": intent.ID,
		},
	}, nil
}

func (p *StripeProvider) RetrieveStatus(ctx context.Context, providerSessionID string) (domain.SessionStatus, error) {
	intent, err := p.api.PaymentIntents.Get(providerSessionID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return "", mapStripeError(err)
	}
	return mapIntentStatus(intent.Status), nil
}

func (p *StripeProvider) Capture(ctx context.Context, providerSessionID string) error {
	_, err := p.api.PaymentIntents.Capture(providerSessionID, &stripe.PaymentIntentCaptureParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return mapStripeError(err)
	}
	return nil
}

func (p *StripeProvider) Cancel(ctx context.Context, providerSessionID string) error {
	_, err := p.api.PaymentIntents.Cancel(providerSessionID, &stripe.PaymentIntentCancelParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return mapStripeError(err)
	}
	return nil
}

func mapIntentStatus(status stripe.PaymentIntentStatus) domain.SessionStatus {
	switch status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusProcessing:
		return domain.SessionStatusPending
	case stripe.PaymentIntentStatusRequiresAction:
		return domain.SessionStatusRequiresAction
	case stripe.PaymentIntentStatusRequiresCapture:
		return domain.SessionStatusAuthorized
	case stripe.PaymentIntentStatusSucceeded:
		return domain.SessionStatusCaptured
	case stripe.PaymentIntentStatusCanceled:
		return domain.SessionStatusCanceled
	default:
		return domain.SessionStatusErrored
	}
}

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %s", ErrUnavailable, stripeErr.Msg)
		}
		return fmt.Errorf("stripe rejected request (%s): %s", stripeErr.Code, stripeErr.Msg)
	}
	// Transport-level failures (timeouts, DNS) surface as plain errors.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
