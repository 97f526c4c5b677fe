package repository

import (
	"context"

	"github.com/fastygo/auction/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	AddLikedItem(ctx context.Context, userID, itemID string) error
	UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.User, error)
	// Delete removes the user and its own reference sets. Item bidder and
	// buyer ids pointing at the user are kept as tombstones.
	Delete(ctx context.Context, id string) error
}
