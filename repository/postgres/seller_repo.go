package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
)

type sellerRepository struct {
	pool *pgxpool.Pool
}

// NewSellerRepository returns a Postgres-backed seller repository.
func NewSellerRepository(pool *pgxpool.Pool) repository.SellerRepository {
	return &sellerRepository{pool: pool}
}

func (r *sellerRepository) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	const query = `
	SELECT id::text, name, email, phone, subscription, created_at, updated_at
	FROM sellers
	WHERE id = $1
	`
	var seller domain.Seller
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&seller.ID,
		&seller.Name,
		&seller.Email,
		&seller.Phone,
		&seller.Subscription,
		&seller.CreatedAt,
		&seller.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSellerNotFound
		}
		return nil, err
	}

	const refs = `
	SELECT item_id::text, state FROM seller_items WHERE seller_id = $1
	UNION ALL
	SELECT item_id::text, 'liked' FROM seller_liked_items WHERE seller_id = $1
	`
	rows, err := r.pool.Query(ctx, refs, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seller.ActiveItems, seller.SoldItems, seller.LikedItems = []string{}, []string{}, []string{}
	for rows.Next() {
		var itemID, state string
		if err := rows.Scan(&itemID, &state); err != nil {
			return nil, err
		}
		switch state {
		case "active":
			seller.ActiveItems = append(seller.ActiveItems, itemID)
		case "sold":
			seller.SoldItems = append(seller.SoldItems, itemID)
		case "liked":
			seller.LikedItems = append(seller.LikedItems, itemID)
		}
	}
	return &seller, rows.Err()
}

func (r *sellerRepository) Create(ctx context.Context, seller *domain.Seller) error {
	if seller == nil || seller.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO sellers (id, name, email, phone, subscription, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	if _, err := r.pool.Exec(ctx, query,
		seller.ID,
		seller.Name,
		seller.Email,
		seller.Phone,
		seller.Subscription,
		seller.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *sellerRepository) UpdateSubscription(ctx context.Context, id string, tier domain.Subscription) (*domain.Seller, error) {
	const query = `UPDATE sellers SET subscription = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, tier)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrSellerNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *sellerRepository) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Seller, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
		UPDATE sellers
		SET name = COALESCE($2::text, name),
			email = COALESCE($3::text, email),
			phone = COALESCE($4::text, phone),
			updated_at = NOW()
		WHERE id = $1
		`
		tag, err := tx.Exec(ctx, query, id, patch.Name, patch.Email, patch.Phone)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSellerNotFound
		}
		if patch.Name == nil {
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE items SET seller_name = $2 WHERE seller_id = $1`, id, *patch.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *sellerRepository) AddLikedItem(ctx context.Context, sellerID, itemID string) error {
	const query = `
	INSERT INTO seller_liked_items (seller_id, item_id) VALUES ($1, $2)
	ON CONFLICT DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, sellerID, itemID); err != nil {
		if isForeignKeyViolation(err) {
			return r.missingRef(ctx, sellerID)
		}
		return err
	}
	return nil
}

// missingRef works out which side of a failed reference insert is absent.
func (r *sellerRepository) missingRef(ctx context.Context, sellerID string) error {
	ok, err := exists(ctx, r.pool, `SELECT EXISTS (SELECT 1 FROM sellers WHERE id = $1)`, sellerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSellerNotFound
	}
	return domain.ErrItemNotFound
}

func (r *sellerRepository) Delete(ctx context.Context, id string) (*repository.Cascade, error) {
	var cascade *repository.Cascade

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var lockedID string
		if err := tx.QueryRow(ctx, `SELECT id::text FROM sellers WHERE id = $1 FOR UPDATE`, id).Scan(&lockedID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrSellerNotFound
			}
			return err
		}

		rows, err := tx.Query(ctx, `SELECT id::text FROM items WHERE seller_id = $1 ORDER BY id FOR UPDATE`, id)
		if err != nil {
			return err
		}
		itemIDs, err := collectIDs(rows)
		if err != nil {
			return err
		}
		if cascade, err = collectReferrers(ctx, tx, itemIDs); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM items WHERE seller_id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM sellers WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	cascade.SellerIDs = withoutID(cascade.SellerIDs, id)
	return cascade, nil
}
