package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/auction/domain"
)

// Journal operations replayed by the repair processor.
const (
	OperationInvalidate = "cache.invalidate"
	OperationSettle     = "settlement.repair"
)

// EventPublisher fans committed lifecycle events out to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// RepairQueue journals follow-up work that failed inline so it can be
// retried in the background without failing the request that caused it.
type RepairQueue interface {
	QueueInvalidation(ctx context.Context, keys []string) error
	QueueSettlement(ctx context.Context, paymentID, itemID string) error
}

// InvalidationPayload is the journaled form of a failed cache delete.
type InvalidationPayload struct {
	Keys []string `json:"keys"`
}

// SettlementPayload is the journaled form of a failed item settlement.
type SettlementPayload struct {
	PaymentID string `json:"payment_id"`
	ItemID    string `json:"item_id"`
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.Event) error { return nil }

// NopPublisher discards every event.
func NopPublisher() EventPublisher { return nopPublisher{} }

// Publish sends event and logs, rather than returns, any failure.
func Publish(ctx context.Context, publisher EventPublisher, logger *zap.Logger, event domain.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish lifecycle event",
			zap.String("event", string(event.Name)),
			zap.String("item_id", event.ItemID),
			zap.Error(err),
		)
	}
}
