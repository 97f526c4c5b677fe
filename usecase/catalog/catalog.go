// Package catalog serves the read-through home and listing views.
package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
	"github.com/fastygo/auction/usecase"
)

// MaxListing bounds every catalog query.
const MaxListing = 200

type UseCase struct {
	items   repository.ItemRepository
	sellers repository.SellerRepository
	users   repository.UserRepository
	cache   *usecase.Cache
	now     func() time.Time
	logger  *zap.Logger
}

func New(
	items repository.ItemRepository,
	sellers repository.SellerRepository,
	users repository.UserRepository,
	cache *usecase.Cache,
	logger *zap.Logger,
	opts ...Option,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		items:   items,
		sellers: sellers,
		users:   users,
		cache:   cache,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type Option func(*UseCase)

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

type SellerHome struct {
	Seller domain.Seller      `json:"seller"`
	Items  []usecase.ItemView `json:"items"`
	Source usecase.Source     `json:"source"`
}

type UserHome struct {
	User      domain.User        `json:"user"`
	Purchased []usecase.ItemView `json:"purchased"`
	Liked     []usecase.ItemView `json:"liked"`
	Source    usecase.Source     `json:"source"`
}

type Listing struct {
	Items  []usecase.ItemView `json:"items"`
	Source usecase.Source     `json:"source"`
}

// sellerSnapshot is the cached form of a seller's home page. Auction status
// is never part of it.
type sellerSnapshot struct {
	Seller domain.Seller `json:"seller"`
	Items  []domain.Item `json:"items"`
}

// SellerHome returns the seller with its unsold items that have not ended,
// newest first.
func (uc *UseCase) SellerHome(ctx context.Context, sellerID string) (*SellerHome, error) {
	if err := domain.ValidateID(sellerID); err != nil {
		return nil, err
	}

	snapshot, source, err := usecase.ReadThrough(ctx, uc.cache, usecase.SellerKey(sellerID), func(ctx context.Context) (sellerSnapshot, error) {
		seller, err := uc.sellers.GetByID(ctx, sellerID)
		if err != nil {
			return sellerSnapshot{}, err
		}
		now := uc.now()
		items, err := uc.items.List(ctx, repository.ItemFilter{SellerID: sellerID, OpenAt: &now, Limit: MaxListing})
		if err != nil {
			return sellerSnapshot{}, err
		}
		return sellerSnapshot{Seller: *seller, Items: items}, nil
	})
	if err != nil {
		return nil, err
	}

	now := uc.now()
	return &SellerHome{
		Seller: snapshot.Seller,
		Items:  usecase.NewItemViews(openAt(snapshot.Items, now, false), now),
		Source: source,
	}, nil
}

// UserHome returns the user aggregate, cached, with its purchased and liked
// items resolved from the store.
func (uc *UseCase) UserHome(ctx context.Context, userID string) (*UserHome, error) {
	if err := domain.ValidateID(userID); err != nil {
		return nil, err
	}

	user, source, err := usecase.ReadThrough(ctx, uc.cache, usecase.UserKey(userID), func(ctx context.Context) (domain.User, error) {
		user, err := uc.users.GetByID(ctx, userID)
		if err != nil {
			return domain.User{}, err
		}
		return *user, nil
	})
	if err != nil {
		return nil, err
	}

	purchased, err := uc.items.GetMany(ctx, user.PurchasedItems)
	if err != nil {
		return nil, err
	}
	liked, err := uc.items.GetMany(ctx, user.LikedItems)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	return &UserHome{
		User:      user,
		Purchased: usecase.NewItemViews(purchased, now),
		Liked:     usecase.NewItemViews(liked, now),
		Source:    source,
	}, nil
}

// OpenListing returns the active, unsold items that have not ended.
func (uc *UseCase) OpenListing(ctx context.Context) (*Listing, error) {
	items, source, err := usecase.ReadThrough(ctx, uc.cache, usecase.ListingKey, func(ctx context.Context) ([]domain.Item, error) {
		now := uc.now()
		return uc.items.List(ctx, repository.ItemFilter{OpenAt: &now, ActiveOnly: true, Limit: MaxListing})
	})
	if err != nil {
		return nil, err
	}

	now := uc.now()
	return &Listing{
		Items:  usecase.NewItemViews(openAt(items, now, true), now),
		Source: source,
	}, nil
}

// openAt re-applies the open filter at read time, since a cached page can
// outlive an item's end time.
func openAt(items []domain.Item, now time.Time, activeOnly bool) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for i := range items {
		if !items[i].IsOpen(now) || (activeOnly && !items[i].Active) {
			continue
		}
		out = append(out, items[i])
	}
	return out
}
