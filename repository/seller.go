package repository

import (
	"context"

	"github.com/fastygo/auction/domain"
)

type SellerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Seller, error)
	Create(ctx context.Context, seller *domain.Seller) error
	UpdateSubscription(ctx context.Context, id string, tier domain.Subscription) (*domain.Seller, error)
	// UpdateProfile applies the patch and renames the seller on its items.
	UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Seller, error)
	AddLikedItem(ctx context.Context, sellerID, itemID string) error
	// Delete removes every item owned by the seller, then the seller, as one
	// unit. The cascade lists the deleted items and their referrers.
	Delete(ctx context.Context, id string) (*Cascade, error)
}
