package services

import (
	"context"
	"log/slog"

	"ledger/internal/amqp"
)

// EventPublisher delivers ledger events. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

var _ EventPublisher = (*amqp.Client)(nil)

// publish never fails the caller: the ledger write already succeeded.
func publish(ctx context.Context, p EventPublisher, ev *amqp.LedgerEvent) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event", "type", ev.Type)
		return
	}
	if err := p.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}
