package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/repository"
)

const Topic = "payment-events"

type SessionCanceler interface {
	CancelSession(ctx context.Context, session *domain.PaymentSession) error
}

type outboxStore interface {
	repository.OutboxStore
	GetStaleSessions(ctx context.Context, cutoff time.Time, limit int) ([]*domain.PaymentSession, error)
}

// OutboxPoller drains the transactional outbox into kafka and sweeps stale
// payment sessions. Sessions left pending past the TTL are canceled with the
// processor so abandoned checkouts do not accumulate stray authorizations.
type OutboxPoller struct {
	eventTick  time.Duration
	sweepTick  time.Duration
	sessionTTL time.Duration
	repo       outboxStore
	canceler   SessionCanceler
	writer     *kafka.Writer
	log        *zap.SugaredLogger
}

func NewOutboxPoller(repo outboxStore, canceler SessionCanceler, log *zap.SugaredLogger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		eventTick:  time.Second,
		sweepTick:  time.Minute,
		sessionTTL: time.Hour,
		repo:       repo,
		canceler:   canceler,
		writer:     w,
		log:        log,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	sweepTicker := time.NewTicker(p.sweepTick)
	defer eventTicker.Stop()
	defer sweepTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-sweepTicker.C:
			p.sweepStaleSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if err := p.writer.Close(); err != nil {
		p.log.Warnw("error closing kafka writer", "error", err)
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		p.log.Errorw("failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publish(ctx, event); errPublish != nil {
			p.log.Errorw("failed to publish outbox event", "event_id", event.ID, "error", errPublish)
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			p.log.Errorw("failed to mark outbox event processed", "event_id", event.ID, "error", errMark)
		}
	}
}

func (p *OutboxPoller) sweepStaleSessions(ctx context.Context) {
	cutoff := time.Now().Add(-p.sessionTTL)
	sessions, err := p.repo.GetStaleSessions(ctx, cutoff, 50)
	if err != nil {
		p.log.Errorw("failed to fetch stale sessions", "error", err)
		return
	}

	for _, session := range sessions {
		if err := p.canceler.CancelSession(ctx, session); err != nil {
			p.log.Warnw("stale session cancel failed",
				"session_id", session.ID, "cart_id", session.CartID, "error", err)
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // cart_id for per-cart ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
