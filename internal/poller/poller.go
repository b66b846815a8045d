// Package poller consumes checkout-completed events and empties the
// purchased account's cart. Checkout publishes the event after capture, so
// a missed message leaves a stale cart, never a lost order.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

const (
	topic   = "checkout-completed"
	groupID = "storefront-cart-consumer"
)

// CartClearer is the slice of the cart service the poller needs.
type CartClearer interface {
	ClearPurchased(ctx context.Context, accountID string) error
}

type checkoutCompleted struct {
	AccountID string `json:"account_id"`
	OrderID   string `json:"order_id"`
}

type Poller struct {
	carts  CartClearer
	reader *kafka.Reader
	logger *slog.Logger
}

func NewPoller(carts CartClearer, logger *slog.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, logger: logger}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.consumeOne(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Error("closing kafka reader", "error", err)
	}
}

func (p *Poller) consumeOne(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return
		}
		p.logger.Error("reading checkout event", "error", err)
		return
	}

	p.handle(ctx, m)
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) {
	var event checkoutCompleted
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Error("malformed checkout event, skipping",
			"error", err, "offset", m.Offset)
		return
	}
	if event.AccountID == "" {
		p.logger.Error("checkout event without account_id, skipping",
			"offset", m.Offset)
		return
	}

	if err := p.carts.ClearPurchased(ctx, event.AccountID); err != nil {
		p.logger.Error("clearing purchased cart",
			"account_id", event.AccountID, "order_id", event.OrderID, "error", err)
		return
	}

	p.logger.Info("cleared purchased cart",
		"account_id", event.AccountID, "order_id", event.OrderID)
}
