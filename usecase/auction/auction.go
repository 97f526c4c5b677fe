// Package auction is the item lifecycle engine: listing, bidding, closing
// and administrative deletion.
package auction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
	"github.com/fastygo/auction/usecase"
)

type UseCase struct {
	items   repository.ItemRepository
	sellers repository.SellerRepository
	users   repository.UserRepository
	cache   *usecase.Cache
	events  usecase.EventPublisher
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*UseCase)

// WithClock overrides the time source used for the auction window.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

func WithEvents(events usecase.EventPublisher) Option {
	return func(uc *UseCase) { uc.events = events }
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
		events:  usecase.NopPublisher(),
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Bid is a proposed bid on an item.
type Bid struct {
	BidderID   string
	BidderName string
	Price      domain.Money
}

func (uc *UseCase) CreateItem(ctx context.Context, sellerID string, spec domain.ItemSpec) (*domain.Item, error) {
	if err := domain.ValidateID(sellerID); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	seller, err := uc.sellers.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	item := domain.NewItem(domain.NewID(), seller, spec, now)
	if err := uc.items.Create(ctx, item); err != nil {
		return nil, err
	}

	uc.cache.Invalidate(ctx, usecase.SellerKey(sellerID), usecase.ListingKey)
	event := domain.NewEvent(domain.EventItemCreated, item.ID, sellerID, now)
	event.Amount = item.BasePrice
	usecase.Publish(ctx, uc.events, uc.logger, event)
	return item, nil
}

// PlaceBid validates the bid against the current state and the auction
// window, then lets the store apply it as a conditional write. Losing a
// concurrent race surfaces as BidTooLow.
func (uc *UseCase) PlaceBid(ctx context.Context, itemID string, bid Bid) (*domain.Item, error) {
	if err := domain.ValidateIDs(itemID, bid.BidderID); err != nil {
		return nil, err
	}
	if bid.BidderName == "" {
		return nil, domain.Detail(domain.ErrInvalidPayload, "bidder name is required")
	}
	if bid.Price <= 0 {
		return nil, domain.Detail(domain.ErrInvalidAmount, "bid must be a positive amount")
	}

	item, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	if err := item.CheckBid(now, bid.Price); err != nil {
		return nil, err
	}

	updated, err := uc.items.AcceptBid(ctx, itemID, domain.BidEntry{
		BidderID:   bid.BidderID,
		BidderName: bid.BidderName,
		Price:      bid.Price,
		PlacedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	if !updated.HasVisitor(bid.BidderID) {
		visit := domain.Visit{ViewerID: bid.BidderID, VisitedAt: now}
		if err := uc.items.RecordVisit(ctx, itemID, visit); err != nil {
			uc.logger.Warn("failed to record bidder visit", zap.String("item_id", itemID), zap.String("bidder_id", bid.BidderID), zap.Error(err))
		} else {
			updated.Visits = append(updated.Visits, visit)
		}
	}

	uc.cache.Invalidate(ctx, usecase.SellerKey(updated.SellerID), usecase.ListingKey)
	event := domain.NewEvent(domain.EventBidAccepted, itemID, bid.BidderID, now)
	event.Amount = bid.Price
	usecase.Publish(ctx, uc.events, uc.logger, event)
	return updated, nil
}

// CloseAndSell transfers the item to its current high bidder. The store
// re-checks every precondition inside the same unit that marks it sold.
func (uc *UseCase) CloseAndSell(ctx context.Context, sellerID, itemID string) (*domain.Item, error) {
	if err := domain.ValidateIDs(sellerID, itemID); err != nil {
		return nil, err
	}

	now := uc.now()
	result, err := uc.items.Sell(ctx, sellerID, itemID, now)
	if err != nil {
		if domain.ReasonOf(err) == "" {
			uc.logger.Error("sale failed in storage",
				zap.String("item_id", itemID),
				zap.String("seller_id", sellerID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	uc.cache.Invalidate(ctx,
		usecase.SellerKey(sellerID),
		usecase.UserKey(result.BuyerID),
		usecase.ListingKey,
	)
	event := domain.NewEvent(domain.EventItemSold, itemID, result.BuyerID, now)
	event.Amount = result.Item.CurrentPrice
	event.Metadata = map[string]string{"seller_id": sellerID}
	usecase.Publish(ctx, uc.events, uc.logger, event)
	return result.Item, nil
}

// DeactivateItem switches bidding off. An empty sellerID is an admin action;
// otherwise the seller must own the item.
func (uc *UseCase) DeactivateItem(ctx context.Context, itemID, sellerID string) (*domain.Item, error) {
	if err := domain.ValidateID(itemID); err != nil {
		return nil, err
	}
	if sellerID != "" {
		if err := domain.ValidateID(sellerID); err != nil {
			return nil, err
		}
	}

	current, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if sellerID != "" && current.SellerID != sellerID {
		return nil, domain.ErrNotOwner
	}

	item, err := uc.items.Deactivate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !current.Active {
		return item, nil
	}

	uc.cache.Invalidate(ctx, usecase.SellerKey(item.SellerID), usecase.ListingKey)
	actor := sellerID
	if actor == "" {
		actor = "admin"
	}
	usecase.Publish(ctx, uc.events, uc.logger, domain.NewEvent(domain.EventItemDeactivated, itemID, actor, uc.now()))
	return item, nil
}

// UpdateItem edits a listing on behalf of its seller. Edits are refused once
// the item has a bid or is sold; the store re-checks both in the write.
func (uc *UseCase) UpdateItem(ctx context.Context, sellerID, itemID string, patch domain.ItemPatch) (*domain.Item, error) {
	if err := domain.ValidateIDs(sellerID, itemID); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, domain.Detail(domain.ErrInvalidPayload, "nothing to update")
	}

	current, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if current.SellerID != sellerID {
		return nil, domain.ErrNotOwner
	}

	now := uc.now()
	edited, err := patch.Apply(*current, now)
	if err != nil {
		return nil, err
	}
	item, err := uc.items.UpdateListing(ctx, edited)
	if err != nil {
		return nil, err
	}

	uc.cache.Invalidate(ctx, usecase.SellerKey(sellerID), usecase.ListingKey)
	usecase.Publish(ctx, uc.events, uc.logger, domain.NewEvent(domain.EventItemUpdated, itemID, sellerID, now))
	return item, nil
}

// ViewItem reads an item from the store and records the viewer's visit.
func (uc *UseCase) ViewItem(ctx context.Context, itemID, viewerID, contact string) (*usecase.ItemView, error) {
	if err := domain.ValidateID(itemID); err != nil {
		return nil, err
	}

	item, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	if viewerID != "" && !item.HasVisitor(viewerID) {
		visit := domain.Visit{ViewerID: viewerID, Contact: contact, VisitedAt: now}
		if err := uc.items.RecordVisit(ctx, itemID, visit); err != nil {
			uc.logger.Warn("failed to record visit", zap.String("item_id", itemID), zap.String("viewer_id", viewerID), zap.Error(err))
		} else {
			item.Visits = append(item.Visits, visit)
		}
	}

	view := usecase.NewItemView(*item, now)
	return &view, nil
}
