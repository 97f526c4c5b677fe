package domain

import "time"

// PaymentStatus is the settlement state of a payment record. Transitions are
// pending→paid and pending→failed; paid is terminal.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"

	// PaymentNone is reported when an item has no payment record at all.
	PaymentNone PaymentStatus = "none"
)

// PaymentMethod tags how the payer settles.
type PaymentMethod string

const (
	MethodCard PaymentMethod = "card"
	MethodUPI  PaymentMethod = "upi"
	MethodCash PaymentMethod = "cash"
)

// ParsePaymentMethod resolves a method tag, defaulting to upi when empty.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(raw) {
	case "":
		return MethodUPI, nil
	case MethodCard, MethodUPI, MethodCash:
		return PaymentMethod(raw), nil
	}
	return "", Detail(ErrInvalidPayload, "unknown payment method "+raw)
}

// Payment is one settlement attempt for an item.
type Payment struct {
	ID             string        `json:"id"`
	ItemID         string        `json:"item_id"`
	PayerID        string        `json:"user_id"`
	Amount         Money         `json:"amount"`
	Method         PaymentMethod `json:"method"`
	Status         PaymentStatus `json:"status"`
	TransactionRef string        `json:"transaction_id"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// CanTransitionTo reports whether moving from the current status to next is allowed.
func (p *Payment) CanTransitionTo(next PaymentStatus) bool {
	return p.Status == PaymentPending && (next == PaymentPaid || next == PaymentFailed)
}
