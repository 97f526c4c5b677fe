package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
		SELECT id::text, name, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)

	var user domain.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	const refs = `
		SELECT item_id::text, 'purchased' FROM user_purchases WHERE user_id = $1
		UNION ALL
		SELECT item_id::text, 'liked' FROM user_liked_items WHERE user_id = $1
	`
	rows, err := r.pool.Query(ctx, refs, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	user.PurchasedItems, user.LikedItems = []string{}, []string{}
	for rows.Next() {
		var itemID, kind string
		if err := rows.Scan(&itemID, &kind); err != nil {
			return nil, err
		}
		if kind == "purchased" {
			user.PurchasedItems = append(user.PurchasedItems, itemID)
		} else {
			user.LikedItems = append(user.LikedItems, itemID)
		}
	}
	return &user, rows.Err()
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO users (id, name, email, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $4)
	`
	if _, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Email, user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *userRepository) AddLikedItem(ctx context.Context, userID, itemID string) error {
	const query = `
	INSERT INTO user_liked_items (user_id, item_id) VALUES ($1, $2)
	ON CONFLICT DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, userID, itemID); err != nil {
		if !isForeignKeyViolation(err) {
			return err
		}
		ok, err := exists(ctx, r.pool, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUserNotFound
		}
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.User, error) {
	const query = `
	UPDATE users
	SET name = COALESCE($2::text, name),
		email = COALESCE($3::text, email),
		updated_at = NOW()
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, patch.Name, patch.Email)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	// Purchase and like rows cascade; item bidder and buyer ids stay behind.
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
