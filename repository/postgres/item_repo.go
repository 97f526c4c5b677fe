package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
)

const itemColumns = `
	id::text, name, seller_id::text, seller_name, image_url, category,
	base_price, current_price, current_bidder, current_bidder_id, active,
	auction_date, start_time, end_time, sold, sold_at, buyer_id,
	paid, paid_amount, payment_id::text, paid_by, created_at, updated_at
`

type itemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns a Postgres-backed implementation of ItemRepository.
func NewItemRepository(pool *pgxpool.Pool) repository.ItemRepository {
	return &itemRepository{pool: pool}
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	return getItem(ctx, r.pool, id)
}

func (r *itemRepository) GetMany(ctx context.Context, ids []string) ([]domain.Item, error) {
	if len(ids) == 0 {
		return []domain.Item{}, nil
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ANY($1::uuid[]) ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	return items, attachLedgers(ctx, r.pool, items)
}

func (r *itemRepository) List(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + `
	FROM items
	WHERE ($1 = '' OR seller_id::text = $1)
	  AND ($2::timestamptz IS NULL OR (NOT sold AND (end_time IS NULL OR end_time > $2::timestamptz)))
	  AND (NOT $4::boolean OR active)
	ORDER BY created_at DESC
	LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, filter.SellerID, nullTime(filter.OpenAt), clampLimit(filter.Limit), filter.ActiveOnly)
	if err != nil {
		return nil, err
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	return items, attachLedgers(ctx, r.pool, items)
}

func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	if item == nil || item.ID == "" {
		return domain.ErrInvalidPayload
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertItem = `
		INSERT INTO items (
			id, name, seller_id, seller_name, image_url, category,
			base_price, current_price, active, auction_date, start_time, end_time,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		`
		if _, err := tx.Exec(ctx, insertItem,
			item.ID,
			item.Name,
			item.SellerID,
			item.SellerName,
			item.ImageURL,
			item.Category,
			int64(item.BasePrice),
			int64(item.CurrentPrice),
			item.Active,
			nullTime(item.Date),
			nullTime(item.StartTime),
			nullTime(item.EndTime),
			item.CreatedAt,
		); err != nil {
			switch {
			case isForeignKeyViolation(err):
				return domain.ErrSellerNotFound
			case isUniqueViolation(err):
				return domain.ErrDuplicate
			}
			return err
		}

		const register = `INSERT INTO seller_items (seller_id, item_id, state) VALUES ($1, $2, 'active')`
		_, err := tx.Exec(ctx, register, item.SellerID, item.ID)
		return err
	})
}

func (r *itemRepository) AcceptBid(ctx context.Context, itemID string, entry domain.BidEntry) (*domain.Item, error) {
	// The price comparison and the ledger append happen in one statement, so
	// two concurrent bids at the same price cannot both land.
	const query = `
	WITH moved AS (
		UPDATE items
		SET current_price = $2,
			current_bidder = $3,
			current_bidder_id = $4,
			updated_at = $5
		WHERE id = $1 AND NOT sold AND active AND current_price < $2
		RETURNING id
	)
	INSERT INTO item_bids (item_id, bidder_id, bidder_name, price, placed_at)
	SELECT id, $4, $3, $2, $5 FROM moved
	`
	tag, err := r.pool.Exec(ctx, query, itemID, int64(entry.Price), entry.BidderName, entry.BidderID, entry.PlacedAt)
	if err != nil {
		return nil, err
	}

	item, err := getItem(ctx, r.pool, itemID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 1 {
		return item, nil
	}

	switch {
	case item.Sold:
		return nil, domain.ErrItemSold
	case !item.Active:
		return nil, domain.ErrAuctionNotLive
	default:
		return nil, domain.ErrBidTooLow
	}
}

func (r *itemRepository) RecordVisit(ctx context.Context, itemID string, visit domain.Visit) error {
	const query = `
	INSERT INTO item_visits (item_id, viewer_id, contact, visited_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (item_id, viewer_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, itemID, visit.ViewerID, visit.Contact, visit.VisitedAt); err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrItemNotFound
		}
		return err
	}
	return nil
}

func (r *itemRepository) Sell(ctx context.Context, sellerID, itemID string, soldAt time.Time) (*repository.SaleResult, error) {
	var buyerID string

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			ownerID string
			sold    bool
		)
		const lockItem = `SELECT seller_id::text, sold, current_bidder_id FROM items WHERE id = $1 FOR UPDATE`
		if err := tx.QueryRow(ctx, lockItem, itemID).Scan(&ownerID, &sold, &buyerID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrItemNotFound
			}
			return err
		}

		if ok, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM sellers WHERE id = $1)`, sellerID); err != nil {
			return err
		} else if !ok {
			return domain.ErrSellerNotFound
		}

		switch {
		case ownerID != sellerID:
			return domain.ErrNotOwner
		case sold:
			return domain.ErrAlreadySold
		case buyerID == "":
			return domain.ErrNoBidsYet
		}

		if ok, err := exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM users WHERE id::text = $1)`, buyerID); err != nil {
			return err
		} else if !ok {
			return domain.ErrBuyerNotFound
		}

		const moveToSold = `
		INSERT INTO seller_items (seller_id, item_id, state) VALUES ($1, $2, 'sold')
		ON CONFLICT (seller_id, item_id) DO UPDATE SET state = 'sold'
		`
		if _, err := tx.Exec(ctx, moveToSold, sellerID, itemID); err != nil {
			return err
		}

		const purchase = `
		INSERT INTO user_purchases (user_id, item_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		`
		if _, err := tx.Exec(ctx, purchase, buyerID, itemID); err != nil {
			return err
		}

		const markSold = `
		UPDATE items
		SET sold = TRUE, sold_at = $2, buyer_id = $3, updated_at = $2
		WHERE id = $1
		`
		_, err := tx.Exec(ctx, markSold, itemID, soldAt, buyerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	item, err := getItem(ctx, r.pool, itemID)
	if err != nil {
		return nil, err
	}
	return &repository.SaleResult{Item: item, BuyerID: buyerID}, nil
}

func (r *itemRepository) Deactivate(ctx context.Context, itemID string) (*domain.Item, error) {
	const query = `
	UPDATE items
	SET updated_at = CASE WHEN active THEN NOW() ELSE updated_at END,
		active = FALSE
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrItemNotFound
	}
	return getItem(ctx, r.pool, itemID)
}

func (r *itemRepository) UpdateListing(ctx context.Context, edited *domain.Item) (*domain.Item, error) {
	if edited == nil || edited.ID == "" {
		return nil, domain.ErrInvalidPayload
	}

	var item *domain.Item
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// The bid guard lives in the WHERE clause so a concurrent first bid
		// either lands before this write or sees the new base price.
		const query = `
		UPDATE items
		SET name = $2, base_price = $3, current_price = $3, category = $4, image_url = $5,
			auction_date = $6, start_time = $7, end_time = $8, updated_at = $9
		WHERE id = $1 AND NOT sold AND current_bidder_id = ''
		`
		tag, err := tx.Exec(ctx, query,
			edited.ID,
			edited.Name,
			int64(edited.BasePrice),
			edited.Category,
			edited.ImageURL,
			nullTime(edited.Date),
			nullTime(edited.StartTime),
			nullTime(edited.EndTime),
			edited.UpdatedAt,
		)
		if err != nil {
			return err
		}

		current, err := getItem(ctx, tx, edited.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			if current.Sold {
				return domain.ErrItemSold
			}
			return domain.ErrBidsPlaced
		}
		item = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *itemRepository) MarkPaid(ctx context.Context, itemID string, payment *domain.Payment) (*domain.Item, error) {
	if payment == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	UPDATE items
	SET paid = TRUE, paid_amount = $2, payment_id = $3, paid_by = $4, updated_at = NOW()
	WHERE id = $1 AND sold AND NOT paid
	`
	tag, err := r.pool.Exec(ctx, query, itemID, int64(payment.Amount), payment.ID, payment.PayerID)
	if err != nil {
		return nil, err
	}

	item, err := getItem(ctx, r.pool, itemID)
	if err != nil {
		return nil, err
	}
	switch {
	case tag.RowsAffected() == 1:
		return item, nil
	case item.Paid && item.PaymentID == payment.ID:
		return item, nil
	case item.Paid:
		return nil, domain.ErrPaymentAlreadyPaid
	default:
		return nil, domain.ErrItemNotSold
	}
}

func (r *itemRepository) Delete(ctx context.Context, itemID string) (*repository.Cascade, error) {
	var cascade *repository.Cascade

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// The row lock blocks new reference rows until the delete commits.
		var lockedID string
		if err := tx.QueryRow(ctx, `SELECT id::text FROM items WHERE id = $1 FOR UPDATE`, itemID).Scan(&lockedID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrItemNotFound
			}
			return err
		}

		var err error
		if cascade, err = collectReferrers(ctx, tx, []string{itemID}); err != nil {
			return err
		}

		// Bids, visits, payments and every reference row cascade.
		_, err = tx.Exec(ctx, `DELETE FROM items WHERE id = $1`, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cascade, nil
}

// collectReferrers lists the sellers and users whose reference sets point at
// any of itemIDs.
func collectReferrers(ctx context.Context, q querier, itemIDs []string) (*repository.Cascade, error) {
	cascade := &repository.Cascade{ItemIDs: itemIDs}
	if len(itemIDs) == 0 {
		return cascade, nil
	}

	const sellers = `
	SELECT seller_id::text FROM seller_items WHERE item_id = ANY($1::uuid[])
	UNION
	SELECT seller_id::text FROM seller_liked_items WHERE item_id = ANY($1::uuid[])
	`
	rows, err := q.Query(ctx, sellers, itemIDs)
	if err != nil {
		return nil, err
	}
	if cascade.SellerIDs, err = collectIDs(rows); err != nil {
		return nil, err
	}

	const users = `
	SELECT user_id::text FROM user_purchases WHERE item_id = ANY($1::uuid[])
	UNION
	SELECT user_id::text FROM user_liked_items WHERE item_id = ANY($1::uuid[])
	`
	rows, err = q.Query(ctx, users, itemIDs)
	if err != nil {
		return nil, err
	}
	if cascade.UserIDs, err = collectIDs(rows); err != nil {
		return nil, err
	}
	return cascade, nil
}

func getItem(ctx context.Context, q querier, id string) (*domain.Item, error) {
	row := q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, err
	}
	items := []domain.Item{*item}
	if err := attachLedgers(ctx, q, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func collectItems(rows pgx.Rows) ([]domain.Item, error) {
	defer rows.Close()
	items := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// attachLedgers loads bid history and visits for items in two queries.
func attachLedgers(ctx context.Context, q querier, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	index := make(map[string]int, len(items))
	ids := make([]string, len(items))
	for i := range items {
		index[items[i].ID] = i
		ids[i] = items[i].ID
		items[i].History = []domain.BidEntry{}
		items[i].Visits = []domain.Visit{}
	}

	const bids = `
	SELECT item_id::text, bidder_id, bidder_name, price, placed_at
	FROM item_bids
	WHERE item_id = ANY($1::uuid[])
	ORDER BY seq
	`
	rows, err := q.Query(ctx, bids, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			itemID string
			entry  domain.BidEntry
			price  int64
		)
		if err := rows.Scan(&itemID, &entry.BidderID, &entry.BidderName, &price, &entry.PlacedAt); err != nil {
			rows.Close()
			return err
		}
		entry.Price = domain.Money(price)
		i := index[itemID]
		items[i].History = append(items[i].History, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const visits = `
	SELECT item_id::text, viewer_id, contact, visited_at
	FROM item_visits
	WHERE item_id = ANY($1::uuid[])
	ORDER BY visited_at
	`
	rows, err = q.Query(ctx, visits, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			itemID string
			visit  domain.Visit
		)
		if err := rows.Scan(&itemID, &visit.ViewerID, &visit.Contact, &visit.VisitedAt); err != nil {
			return err
		}
		i := index[itemID]
		items[i].Visits = append(items[i].Visits, visit)
	}
	return rows.Err()
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		item                     domain.Item
		base, current, paidTotal int64
		paymentID                *string
	)

	if err := row.Scan(
		&item.ID,
		&item.Name,
		&item.SellerID,
		&item.SellerName,
		&item.ImageURL,
		&item.Category,
		&base,
		&current,
		&item.CurrentBidder,
		&item.CurrentBidderID,
		&item.Active,
		&item.Date,
		&item.StartTime,
		&item.EndTime,
		&item.Sold,
		&item.SoldAt,
		&item.BuyerID,
		&item.Paid,
		&paidTotal,
		&paymentID,
		&item.PaidBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}

	item.BasePrice = domain.Money(base)
	item.CurrentPrice = domain.Money(current)
	item.PaidAmount = domain.Money(paidTotal)
	if paymentID != nil {
		item.PaymentID = *paymentID
	}
	return &item, nil
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, query, args...).Scan(&ok)
	return ok, err
}
