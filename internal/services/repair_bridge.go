package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/internal/infrastructure/journal"
	"github.com/fastygo/auction/usecase"
)

// RepairBridge journals repairs requested by the use cases. It writes to the
// journal only; the processor replays entries on its own schedule.
type RepairBridge struct {
	store *journal.Store
}

func NewRepairBridge(store *journal.Store) *RepairBridge {
	return &RepairBridge{store: store}
}

func (b *RepairBridge) QueueInvalidation(ctx context.Context, keys []string) error {
	if b.store == nil || len(keys) == 0 {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(usecase.InvalidationPayload{Keys: keys})
	if err != nil {
		return err
	}
	return b.store.Append(journal.Entry{
		Operation: usecase.OperationInvalidate,
		Subject:   keys[0],
		Data:      payload,
		Priority:  journal.PriorityInvalidation,
	})
}

func (b *RepairBridge) QueueSettlement(ctx context.Context, paymentID, itemID string) error {
	if b.store == nil || paymentID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(usecase.SettlementPayload{PaymentID: paymentID, ItemID: itemID})
	if err != nil {
		return err
	}
	return b.store.Append(journal.Entry{
		Operation: usecase.OperationSettle,
		Subject:   paymentID,
		Data:      payload,
		Priority:  journal.PrioritySettlement,
	})
}

var _ usecase.RepairQueue = (*RepairBridge)(nil)
