package domain

import "time"

type SessionStatus string

const (
	SessionStatusPending        SessionStatus = "PENDING"
	SessionStatusRequiresAction SessionStatus = "REQUIRES_ACTION"
	SessionStatusAuthorized     SessionStatus = "AUTHORIZED"
	SessionStatusCaptured       SessionStatus = "CAPTURED"
	SessionStatusCanceled       SessionStatus = "CANCELED"
	SessionStatusErrored        SessionStatus = "ERRORED"
)

func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCaptured || s == SessionStatusCanceled || s == SessionStatusErrored
}

// Authorized means the payment is capturable and the cart may be committed.
func (s SessionStatus) Authorized() bool {
	return s == SessionStatusAuthorized || s == SessionStatusCaptured
}

func (s SessionStatus) String() string {
	return string(s)
}

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusPending:        {SessionStatusRequiresAction, SessionStatusAuthorized, SessionStatusCanceled, SessionStatusErrored},
	SessionStatusRequiresAction: {SessionStatusAuthorized, SessionStatusCanceled, SessionStatusErrored},
	SessionStatusAuthorized:     {SessionStatusCaptured, SessionStatusCanceled},
}

func CanTransitionTo(from, to SessionStatus) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentSession is one attempt to authorize payment for a cart. Sessions are
// append-only: a failed attempt stays recorded, a new attempt is a new row.
type PaymentSession struct {
	ID     string `json:"id"`
	CartID string `json:"cart_id"`
	// ProviderID is the candidate identifier the processor accepted.
	ProviderID string `json:"provider_id"`
	// ProviderSessionID is the processor-side handle (e.g. a payment intent id).
	ProviderSessionID string        `json:"provider_session_id,omitempty"`
	Status            SessionStatus `json:"status"`
	Amount            int64         `json:"amount"` // minor units
	CurrencyCode      string        `json:"currency_code"`
	// Data carries the provider-specific blob the client needs to confirm the
	// payment out of band, e.g. a client secret.
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
