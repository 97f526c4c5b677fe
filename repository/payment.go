package repository

import (
	"context"

	"github.com/fastygo/auction/domain"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	// LatestForItem returns the most recently created payment for the item,
	// or ErrPaymentNotFound.
	LatestForItem(ctx context.Context, itemID string) (*domain.Payment, error)
	// Transition moves a pending payment to next. It reports false with the
	// stored record when the payment was no longer pending. Moving to paid
	// fails with ErrPaymentAlreadyPaid if another payment of the same item is
	// already paid.
	Transition(ctx context.Context, id string, next domain.PaymentStatus) (*domain.Payment, bool, error)
	// ListPaidUnsettled returns paid payments whose item is not marked paid.
	ListPaidUnsettled(ctx context.Context, limit int) ([]domain.Payment, error)
}
