package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// DefaultCandidates is the ordered list of provider identifier aliases the
// processor integration has answered to across deployment versions.
var DefaultCandidates = []string{"pp_stripe_stripe", "stripe", "pp_system_default"}

// CandidateAttempt records one failed candidate during negotiation.
type CandidateAttempt struct {
	ProviderID string
	Err        error
}

// ExhaustedError is returned when no candidate provider id was accepted. It
// enumerates every attempt so an operator can tell a misconfigured integration
// from a processor outage.
type ExhaustedError struct {
	Attempts []CandidateAttempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.ProviderID, a.Err))
	}
	return "no payment provider candidate accepted: " + strings.Join(parts, "; ")
}

// AllUnavailable reports whether every candidate failed because the processor
// was unreachable, as opposed to rejecting the identifier.
func (e *ExhaustedError) AllUnavailable() bool {
	for _, a := range e.Attempts {
		if !errors.Is(a.Err, ErrUnavailable) {
			return false
		}
	}
	return len(e.Attempts) > 0
}

// NegotiatedSession is a successfully opened session tagged with the candidate
// that worked.
type NegotiatedSession struct {
	ProviderID string
	Session    *ProviderSession
}

// Negotiator opens a payment session despite uncertainty about which provider
// identifier the integration expects. It tries candidates in order, exactly
// once each: a rejected identifier fails deterministically, so there is no
// backoff and no re-attempt of the same candidate within a call. The first
// candidate that succeeds is remembered and moved to the front for the rest of
// the process lifetime.
type Negotiator struct {
	registry   Registry
	candidates []string

	mu     sync.RWMutex
	winner string
}

func NewNegotiator(registry Registry, candidates []string) *Negotiator {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return &Negotiator{
		registry:   registry,
		candidates: candidates,
	}
}

// CreateSession negotiates a session for the given request. On success the
// winning provider id is cached; on exhaustion the error lists every attempt.
func (n *Negotiator) CreateSession(ctx context.Context, req SessionRequest) (*NegotiatedSession, error) {
	attempts := make([]CandidateAttempt, 0, len(n.candidates))

	for _, candidate := range n.order() {
		provider, err := n.registry.Lookup(candidate)
		if err != nil {
			attempts = append(attempts, CandidateAttempt{ProviderID: candidate, Err: err})
			continue
		}

		session, err := provider.CreateSession(ctx, req)
		if err != nil {
			attempts = append(attempts, CandidateAttempt{ProviderID: candidate, Err: err})
			continue
		}

		n.remember(candidate)
		return &NegotiatedSession{ProviderID: candidate, Session: session}, nil
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// Provider resolves a previously negotiated provider id for follow-up calls
// (status, capture, cancel).
func (n *Negotiator) Provider(providerID string) (Provider, error) {
	return n.registry.Lookup(providerID)
}

// Winner returns the cached provider id, or "" if none has succeeded yet.
func (n *Negotiator) Winner() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.winner
}

func (n *Negotiator) remember(candidate string) {
	n.mu.Lock()
	n.winner = candidate
	n.mu.Unlock()
}

// order returns the candidate list with the cached winner first, preserving
// the configured order for the rest.
func (n *Negotiator) order() []string {
	winner := n.Winner()
	if winner == "" {
		return n.candidates
	}

	ordered := make([]string, 0, len(n.candidates))
	ordered = append(ordered, winner)
	for _, c := range n.candidates {
		if c != winner {
			ordered = append(ordered, c)
		}
	}
	return ordered
}
