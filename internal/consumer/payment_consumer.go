package consumer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sartoro/checkout-service/domain"
	"github.com/sartoro/checkout-service/internal/publisher"
)

type CartCommitter interface {
	CompleteCart(ctx context.Context, cartID string) (*domain.Order, error)
}

type PaymentAuthorizedEvent struct {
	CartID    string `json:"cart_id"`
	SessionID string `json:"session_id"`
}

// Consumer turns payment authorization events into committed orders. Commit is
// idempotent, so kafka's at-least-once delivery needs no dedup here.
type Consumer struct {
	committer CartCommitter
	reader    *kafka.Reader
	log       *zap.SugaredLogger
}

func NewConsumer(committer CartCommitter, log *zap.SugaredLogger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    publisher.Topic,
		GroupID:  "checkout-service-committer",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{committer: committer, reader: reader, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warnw("error closing kafka reader", "error", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Errorw("error reading message", "error", err)
		}
		return
	}
	c.handleEvent(ctx, m.Value)
}

func (c *Consumer) handleEvent(ctx context.Context, payload []byte) {
	var event PaymentAuthorizedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.log.Errorw("error parsing payment event", "error", err)
		return
	}
	if event.CartID == "" {
		c.log.Errorw("payment event missing cart_id")
		return
	}

	order, err := c.committer.CompleteCart(ctx, event.CartID)
	if err != nil {
		c.log.Errorw("failed to commit order from payment event",
			"cart_id", event.CartID, "error", err)
		return
	}
	c.log.Infow("order committed from payment event",
		"cart_id", event.CartID, "order_id", order.ID)
}
