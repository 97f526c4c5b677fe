package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
)

const paymentColumns = `
	p.id::text, p.item_id::text, p.payer_id, p.amount, p.method, p.status,
	p.transaction_ref, p.created_at, p.updated_at
`

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a Postgres-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool) repository.PaymentRepository {
	return &paymentRepository{pool: pool}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if payment == nil || payment.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO payments (id, item_id, payer_id, amount, method, status, transaction_ref, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	if _, err := r.pool.Exec(ctx, query,
		payment.ID,
		payment.ItemID,
		payment.PayerID,
		int64(payment.Amount),
		payment.Method,
		payment.Status,
		payment.TransactionRef,
		payment.CreatedAt,
	); err != nil {
		switch {
		case isForeignKeyViolation(err):
			return domain.ErrItemNotFound
		case isUniqueViolation(err):
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = $1`, id)
	return scanPayment(row)
}

func (r *paymentRepository) LatestForItem(ctx context.Context, itemID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.item_id = $1 ORDER BY p.seq DESC LIMIT 1`
	return scanPayment(r.pool.QueryRow(ctx, query, itemID))
}

func (r *paymentRepository) Transition(ctx context.Context, id string, next domain.PaymentStatus) (*domain.Payment, bool, error) {
	query := `
	UPDATE payments p
	SET status = $2, updated_at = NOW()
	WHERE p.id = $1 AND p.status = 'pending'
	RETURNING ` + paymentColumns

	payment, err := scanPayment(r.pool.QueryRow(ctx, query, id, next))
	switch {
	case err == nil:
		return payment, true, nil
	case isUniqueViolation(err):
		// Another payment of the same item already holds the paid slot.
		return nil, false, domain.ErrPaymentAlreadyPaid
	case !errors.Is(err, domain.ErrPaymentNotFound):
		return nil, false, err
	}

	// Either unknown or no longer pending.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *paymentRepository) ListPaidUnsettled(ctx context.Context, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
	FROM payments p
	JOIN items i ON i.id = p.item_id
	WHERE p.status = 'paid' AND NOT i.paid
	ORDER BY p.seq
	LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		payment domain.Payment
		amount  int64
	)
	if err := row.Scan(
		&payment.ID,
		&payment.ItemID,
		&payment.PayerID,
		&amount,
		&payment.Method,
		&payment.Status,
		&payment.TransactionRef,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	payment.Amount = domain.Money(amount)
	return &payment, nil
}
