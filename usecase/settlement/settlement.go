// Package settlement records payment attempts for sold items and applies
// confirmed payments to the item exactly once.
package settlement

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
	"github.com/fastygo/auction/usecase"
)

type UseCase struct {
	items    repository.ItemRepository
	payments repository.PaymentRepository
	cache    *usecase.Cache
	repair   usecase.RepairQueue
	events   usecase.EventPublisher
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*UseCase)

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

func WithEvents(events usecase.EventPublisher) Option {
	return func(uc *UseCase) { uc.events = events }
}

// WithRepairQueue journals failed item settlements for background replay.
func WithRepairQueue(repair usecase.RepairQueue) Option {
	return func(uc *UseCase) { uc.repair = repair }
}

func New(
	items repository.ItemRepository,
	payments repository.PaymentRepository,
	cache *usecase.Cache,
	logger *zap.Logger,
	opts ...Option,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		items:    items,
		payments: payments,
		cache:    cache,
		events:   usecase.NopPublisher(),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CreatePayment opens a pending payment for a sold, unpaid item. The amount
// is the item's final price.
func (uc *UseCase) CreatePayment(ctx context.Context, itemID, payerID, method string) (*domain.Payment, error) {
	if err := domain.ValidateIDs(itemID, payerID); err != nil {
		return nil, err
	}
	paymentMethod, err := domain.ParsePaymentMethod(method)
	if err != nil {
		return nil, err
	}

	item, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	switch {
	case item.Paid:
		return nil, domain.ErrPaymentAlreadyPaid
	case !item.Sold:
		return nil, domain.ErrItemNotSold
	case item.CurrentPrice <= 0:
		return nil, domain.Detail(domain.ErrInvalidAmount, "item price is not a positive amount")
	}

	now := uc.now()
	payment := &domain.Payment{
		ID:             domain.NewID(),
		ItemID:         itemID,
		PayerID:        payerID,
		Amount:         item.CurrentPrice,
		Method:         paymentMethod,
		Status:         domain.PaymentPending,
		TransactionRef: transactionRef(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	uc.logger.Info("payment created",
		zap.String("payment_id", payment.ID),
		zap.String("item_id", itemID),
		zap.String("payer_id", payerID),
		zap.Stringer("amount", payment.Amount),
	)
	return payment, nil
}

// ConfirmPayment marks the payment paid and then settles the item. Calling it
// again for a paid payment returns the stored record unchanged. When the item
// update fails after the payment is paid, the failure is logged with both ids,
// journaled for repair and returned.
func (uc *UseCase) ConfirmPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if err := domain.ValidateID(paymentID); err != nil {
		return nil, err
	}

	payment, transitioned, err := uc.payments.Transition(ctx, paymentID, domain.PaymentPaid)
	if err != nil {
		return nil, err
	}

	if !transitioned {
		if payment.Status == domain.PaymentFailed {
			return nil, domain.ErrPaymentFailed
		}
		// A previous confirm may have stopped between the two writes.
		if _, err := uc.settle(ctx, payment); err != nil {
			uc.logger.Warn("paid payment still unsettled", zap.String("payment_id", payment.ID), zap.Error(err))
		}
		return payment, nil
	}

	item, err := uc.settle(ctx, payment)
	if err != nil {
		return nil, err
	}

	uc.cache.Invalidate(ctx, usecase.SellerKey(item.SellerID), usecase.UserKey(payment.PayerID))
	event := domain.NewEvent(domain.EventPaymentConfirmed, item.ID, payment.PayerID, uc.now())
	event.Amount = payment.Amount
	event.Metadata = map[string]string{"payment_id": payment.ID, "transaction_id": payment.TransactionRef}
	usecase.Publish(ctx, uc.events, uc.logger, event)
	return payment, nil
}

// settle applies a paid payment to its item. MarkPaid is a no-op when the item
// already carries this payment.
func (uc *UseCase) settle(ctx context.Context, payment *domain.Payment) (*domain.Item, error) {
	item, err := uc.items.MarkPaid(ctx, payment.ItemID, payment)
	if err == nil {
		return item, nil
	}

	uc.logger.Error("payment paid but item settlement failed",
		zap.String("payment_id", payment.ID),
		zap.String("item_id", payment.ItemID),
		zap.String("payer_id", payment.PayerID),
		zap.Error(err),
	)
	if uc.repair != nil {
		if qErr := uc.repair.QueueSettlement(ctx, payment.ID, payment.ItemID); qErr != nil {
			uc.logger.Error("failed to journal settlement repair",
				zap.String("payment_id", payment.ID),
				zap.String("item_id", payment.ItemID),
				zap.Error(qErr),
			)
		}
	}
	if domain.ReasonOf(err) != "" {
		return nil, err
	}
	return nil, domain.WrapError(domain.ErrCodeInternal, "payment recorded but item settlement failed", err)
}

// FailPayment moves a pending payment to failed. Failing a failed payment is
// a no-op; a paid payment cannot fail.
func (uc *UseCase) FailPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if err := domain.ValidateID(paymentID); err != nil {
		return nil, err
	}

	payment, transitioned, err := uc.payments.Transition(ctx, paymentID, domain.PaymentFailed)
	if err != nil {
		return nil, err
	}
	if !transitioned && payment.Status == domain.PaymentPaid {
		return nil, domain.ErrPaymentAlreadyPaid
	}
	if transitioned {
		uc.logger.Info("payment failed", zap.String("payment_id", payment.ID), zap.String("item_id", payment.ItemID))
	}
	return payment, nil
}

// PaymentStatus reports the status of the item's most recent payment, or
// PaymentNone when it has none.
func (uc *UseCase) PaymentStatus(ctx context.Context, itemID string) (domain.PaymentStatus, error) {
	if err := domain.ValidateID(itemID); err != nil {
		return "", err
	}
	payment, err := uc.payments.LatestForItem(ctx, itemID)
	if err != nil {
		if domain.ReasonOf(err) == domain.ReasonPaymentNotFound {
			return domain.PaymentNone, nil
		}
		return "", err
	}
	return payment.Status, nil
}

// ReconcilePayment re-applies a single paid payment to its item. Payments that
// are not paid need no repair.
func (uc *UseCase) ReconcilePayment(ctx context.Context, paymentID string) error {
	payment, err := uc.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.Status != domain.PaymentPaid {
		return nil
	}
	item, err := uc.items.MarkPaid(ctx, payment.ItemID, payment)
	if err != nil {
		return err
	}
	uc.cache.Invalidate(ctx, usecase.SellerKey(item.SellerID), usecase.UserKey(payment.PayerID))
	uc.logger.Info("payment reconciled", zap.String("payment_id", payment.ID), zap.String("item_id", item.ID))
	return nil
}

// ReconcileReport summarises one reconciliation scan.
type ReconcileReport struct {
	Scanned  int      `json:"scanned"`
	Repaired int      `json:"repaired"`
	Failed   []string `json:"failed"`
}

// ReconcilePayments scans paid payments whose item is not marked paid and
// applies the missing item update to each.
func (uc *UseCase) ReconcilePayments(ctx context.Context) (*ReconcileReport, error) {
	pending, err := uc.payments.ListPaidUnsettled(ctx, 0)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Scanned: len(pending), Failed: []string{}}
	for i := range pending {
		payment := &pending[i]
		item, err := uc.items.MarkPaid(ctx, payment.ItemID, payment)
		if err != nil {
			uc.logger.Error("reconciliation failed",
				zap.String("payment_id", payment.ID),
				zap.String("item_id", payment.ItemID),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, payment.ID)
			continue
		}
		uc.cache.Invalidate(ctx, usecase.SellerKey(item.SellerID), usecase.UserKey(payment.PayerID))
		report.Repaired++
	}

	if report.Scanned > 0 {
		uc.logger.Info("reconciliation pass finished",
			zap.Int("scanned", report.Scanned),
			zap.Int("repaired", report.Repaired),
			zap.Int("failed", len(report.Failed)),
		)
	}
	return report, nil
}

// RepairHandler replays a journaled settlement.
func (uc *UseCase) RepairHandler() usecase.RepairHandler {
	return func(ctx context.Context, payload []byte) error {
		var p usecase.SettlementPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		err := uc.ReconcilePayment(ctx, p.PaymentID)
		switch domain.ReasonOf(err) {
		case domain.ReasonPaymentNotFound, domain.ReasonItemNotFound:
			// Deleted along with its item; nothing left to settle.
			return nil
		}
		return err
	}
}

func transactionRef() string {
	return "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
