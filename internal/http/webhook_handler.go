package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/sartoro/checkout-service/internal/service"
)

// WebhookHandler receives asynchronous payment confirmations from the
// processor. Payloads are verified against the shared signing secret before
// anything is trusted; a bad signature is rejected, never silently accepted.
type WebhookHandler struct {
	checkout      *service.CheckoutService
	signingSecret string
	timeout       time.Duration
	log           *zap.SugaredLogger
}

func NewWebhookHandler(checkout *service.CheckoutService, signingSecret string, timeout time.Duration, log *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{
		checkout:      checkout,
		signingSecret: signingSecret,
		timeout:       timeout,
		log:           log,
	}
}

// POST /hooks/payment
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "could not read request body")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.signingSecret)
	if err != nil {
		h.log.Warnw("webhook signature verification failed", "error", err)
		respondError(w, http.StatusBadRequest, "invalid_signature", "signature verification failed")
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.handleIntentEvent(ctx, w, event, h.checkout.HandlePaymentAuthorizedRef)
	case "payment_intent.payment_failed":
		h.handleIntentEvent(ctx, w, event, h.checkout.HandlePaymentFailed)
	default:
		h.log.Debugw("ignoring webhook event", "type", event.Type)
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

func (h *WebhookHandler) handleIntentEvent(
	ctx context.Context,
	w http.ResponseWriter,
	event stripe.Event,
	apply func(ctx context.Context, providerRef string) error,
) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		h.log.Errorw("failed to parse webhook payload", "type", event.Type, "error", err)
		respondError(w, http.StatusBadRequest, "invalid_payload", "could not parse event object")
		return
	}

	if err := apply(ctx, intent.ID); err != nil {
		h.log.Errorw("failed to apply webhook event",
			"type", event.Type, "provider_ref", intent.ID, "error", err)
		// Non-2xx makes the processor redeliver; the apply path is idempotent.
		respondError(w, http.StatusInternalServerError, "internal_error", "event processing failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
