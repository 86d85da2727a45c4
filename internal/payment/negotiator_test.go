package payment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartoro/checkout-service/domain"
)

type scriptedProvider struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *scriptedProvider) CreateSession(_ context.Context, req SessionRequest) (*ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &ProviderSession{
		ProviderSessionID: "ps_" + req.CartID,
		Status:            domain.SessionStatusPending,
		Data:              map[string]string{"client_secret": "secret"},
	}, nil
}

func (p *scriptedProvider) RetrieveStatus(context.Context, string) (domain.SessionStatus, error) {
	return domain.SessionStatusPending, nil
}
func (p *scriptedProvider) Capture(context.Context, string) error { return nil }
func (p *scriptedProvider) Cancel(context.Context, string) error  { return nil }

func testRequest() SessionRequest {
	return SessionRequest{CartID: "cart-1", Amount: 11000, CurrencyCode: "usd"}
}

func TestNegotiator_ShortCircuitsOnFirstSuccess(t *testing.T) {
	a := &scriptedProvider{err: errors.New("rejected")}
	b := &scriptedProvider{}
	c := &scriptedProvider{}
	n := NewNegotiator(Registry{"a": a, "b": b, "c": c}, []string{"a", "b", "c"})

	session, err := n.CreateSession(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "b", session.ProviderID)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, c.calls, "candidates after the first success must not be attempted")
}

func TestNegotiator_RemembersWinner(t *testing.T) {
	a := &scriptedProvider{err: errors.New("rejected")}
	b := &scriptedProvider{}
	n := NewNegotiator(Registry{"a": a, "b": b}, []string{"a", "b"})

	_, err := n.CreateSession(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "b", n.Winner())

	// The second negotiation starts from the cached winner; the previously
	// failing candidate is not re-probed.
	_, err = n.CreateSession(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 2, b.calls)
}

func TestNegotiator_ExhaustionEnumeratesEveryAttempt(t *testing.T) {
	a := &scriptedProvider{err: errors.New("bad id a")}
	b := &scriptedProvider{err: errors.New("bad id b")}
	n := NewNegotiator(Registry{"a": a, "b": b}, []string{"a", "b", "unregistered"})

	_, err := n.CreateSession(context.Background(), testRequest())
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 3)

	assert.Equal(t, "a", exhausted.Attempts[0].ProviderID)
	assert.EqualError(t, exhausted.Attempts[0].Err, "bad id a")
	assert.Equal(t, "b", exhausted.Attempts[1].ProviderID)
	assert.EqualError(t, exhausted.Attempts[1].Err, "bad id b")
	assert.Equal(t, "unregistered", exhausted.Attempts[2].ProviderID)
	assert.ErrorIs(t, exhausted.Attempts[2].Err, ErrUnknownProvider)

	assert.Equal(t, "", n.Winner())
}

func TestExhaustedError_AllUnavailable(t *testing.T) {
	down := &ExhaustedError{Attempts: []CandidateAttempt{
		{ProviderID: "a", Err: ErrUnavailable},
		{ProviderID: "b", Err: errors.New("wrapped: " + ErrUnavailable.Error())},
	}}
	// Plain string match is not enough; the attempt must wrap ErrUnavailable.
	assert.False(t, down.AllUnavailable())

	reallyDown := &ExhaustedError{Attempts: []CandidateAttempt{
		{ProviderID: "a", Err: ErrUnavailable},
		{ProviderID: "b", Err: errors.Join(errors.New("ctx"), ErrUnavailable)},
	}}
	assert.True(t, reallyDown.AllUnavailable())

	misconfigured := &ExhaustedError{Attempts: []CandidateAttempt{
		{ProviderID: "a", Err: ErrUnknownProvider},
		{ProviderID: "b", Err: ErrUnavailable},
	}}
	assert.False(t, misconfigured.AllUnavailable())
}

func TestNegotiator_DefaultCandidates(t *testing.T) {
	n := NewNegotiator(Registry{}, nil)
	assert.Equal(t, DefaultCandidates, n.candidates)
}
