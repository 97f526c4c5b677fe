// Package account manages the seller and user aggregates outside the
// auction lifecycle: registration, subscription tier and liked items.
package account

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
	"github.com/fastygo/auction/usecase"
)

type UseCase struct {
	sellers repository.SellerRepository
	users   repository.UserRepository
	cache   *usecase.Cache
	now     func() time.Time
	logger  *zap.Logger
}

func New(sellers repository.SellerRepository, users repository.UserRepository, cache *usecase.Cache, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		sellers: sellers,
		users:   users,
		cache:   cache,
		now:     time.Now,
		logger:  logger,
	}
}

type SellerInput struct {
	Name         string
	Email        string
	Phone        string
	Subscription domain.Subscription
}

type UserInput struct {
	Name  string
	Email string
}

func (uc *UseCase) RegisterSeller(ctx context.Context, input SellerInput) (*domain.Seller, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, domain.Detail(domain.ErrInvalidPayload, "name and email are required")
	}
	tier := input.Subscription
	if tier == "" {
		tier = domain.SubscriptionFree
	}
	if !tier.Valid() {
		return nil, domain.Detail(domain.ErrInvalidPayload, "unknown subscription "+string(tier))
	}

	now := uc.now()
	seller := &domain.Seller{
		ID:           domain.NewID(),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		Subscription: tier,
		ActiveItems:  []string{},
		SoldItems:    []string{},
		LikedItems:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.sellers.Create(ctx, seller); err != nil {
		return nil, err
	}
	uc.logger.Info("seller registered", zap.String("seller_id", seller.ID))
	return seller, nil
}

func (uc *UseCase) RegisterUser(ctx context.Context, input UserInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.Detail(domain.ErrInvalidPayload, "name is required")
	}

	now := uc.now()
	user := &domain.User{
		ID:             domain.NewID(),
		Name:           name,
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		PurchasedItems: []string{},
		LikedItems:     []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	uc.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (uc *UseCase) UpdateSubscription(ctx context.Context, sellerID string, tier domain.Subscription) (*domain.Seller, error) {
	if err := domain.ValidateID(sellerID); err != nil {
		return nil, err
	}
	if !tier.Valid() {
		return nil, domain.Detail(domain.ErrInvalidPayload, "unknown subscription "+string(tier))
	}

	seller, err := uc.sellers.UpdateSubscription(ctx, sellerID, tier)
	if err != nil {
		return nil, err
	}
	uc.cache.Invalidate(ctx, usecase.SellerKey(sellerID))
	return seller, nil
}

// UpdateSeller edits the seller's contact details. A rename is copied onto
// the seller's items, so the open listing is dropped too.
func (uc *UseCase) UpdateSeller(ctx context.Context, sellerID string, patch domain.ProfilePatch) (*domain.Seller, error) {
	if err := domain.ValidateID(sellerID); err != nil {
		return nil, err
	}
	patch, err := patch.Normalize()
	if err != nil {
		return nil, err
	}

	seller, err := uc.sellers.UpdateProfile(ctx, sellerID, patch)
	if err != nil {
		return nil, err
	}
	keys := []string{usecase.SellerKey(sellerID)}
	if patch.Name != nil {
		keys = append(keys, usecase.ListingKey)
	}
	uc.cache.Invalidate(ctx, keys...)
	return seller, nil
}

func (uc *UseCase) UpdateUser(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.User, error) {
	if err := domain.ValidateID(userID); err != nil {
		return nil, err
	}
	if patch.Phone != nil {
		return nil, domain.Detail(domain.ErrInvalidPayload, "users have no phone")
	}
	patch, err := patch.Normalize()
	if err != nil {
		return nil, err
	}

	user, err := uc.users.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	uc.cache.Invalidate(ctx, usecase.UserKey(userID))
	return user, nil
}

// LikeItem adds itemID to the liked set of a seller or a user.
func (uc *UseCase) LikeItem(ctx context.Context, ownerKind domain.EntityKind, ownerID, itemID string) error {
	if err := domain.ValidateIDs(ownerID, itemID); err != nil {
		return err
	}

	switch ownerKind {
	case domain.KindSeller:
		if err := uc.sellers.AddLikedItem(ctx, ownerID, itemID); err != nil {
			return err
		}
		uc.cache.Invalidate(ctx, usecase.SellerKey(ownerID))
	case domain.KindUser:
		if err := uc.users.AddLikedItem(ctx, ownerID, itemID); err != nil {
			return err
		}
		uc.cache.Invalidate(ctx, usecase.UserKey(ownerID))
	default:
		return domain.Detail(domain.ErrInvalidEntityKind, "only sellers and users can like items")
	}
	return nil
}

// FlushCache drops every cached view. It reports whether the flush reached
// the cache; a failure is logged and never returned.
func (uc *UseCase) FlushCache(ctx context.Context) bool {
	if err := uc.cache.Flush(ctx); err != nil {
		uc.logger.Warn("cache flush failed", zap.Error(err))
		return false
	}
	return true
}
