package repository

import (
	"context"
	"time"

	"github.com/fastygo/auction/domain"
)

type ItemFilter struct {
	SellerID string
	// OpenAt keeps only unsold items whose end time is after OpenAt or unset.
	OpenAt *time.Time
	// ActiveOnly drops deactivated items before the limit is applied.
	ActiveOnly bool
	Limit      int
}

// Cascade reports what a delete removed and which aggregates held a
// reference to the removed items, so their cached views can be dropped.
type Cascade struct {
	ItemIDs   []string
	SellerIDs []string
	UserIDs   []string
}

// SaleResult reports the aggregates touched by a completed sale.
type SaleResult struct {
	Item    *domain.Item
	BuyerID string
}

type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	GetMany(ctx context.Context, ids []string) ([]domain.Item, error)
	List(ctx context.Context, filter ItemFilter) ([]domain.Item, error)

	// Create inserts the item and registers it in its seller's active set in
	// one unit. Fails with ErrSellerNotFound when the seller does not exist.
	Create(ctx context.Context, item *domain.Item) error

	// AcceptBid appends entry to the ledger and moves current price/bidder
	// only if the item is unsold, active and its stored current price is
	// strictly below entry.Price at the moment of the write. It returns the
	// updated item, or ErrBidTooLow / ErrItemSold / ErrAuctionNotLive /
	// ErrItemNotFound when the condition does not hold.
	AcceptBid(ctx context.Context, itemID string, entry domain.BidEntry) (*domain.Item, error)

	// RecordVisit appends a visit unless the viewer is already recorded.
	RecordVisit(ctx context.Context, itemID string, visit domain.Visit) error

	// Sell moves the item from the seller's active set to the sold set, adds
	// it to the winning bidder's purchases and marks it sold, all or nothing.
	// The not-sold precondition is re-checked inside the same unit.
	Sell(ctx context.Context, sellerID, itemID string, soldAt time.Time) (*SaleResult, error)

	Deactivate(ctx context.Context, itemID string) (*domain.Item, error)

	// UpdateListing writes the editable fields of item (name, prices, image,
	// category, schedule) only while the stored item is unsold and has no
	// bids. Otherwise it fails with ErrItemSold or ErrBidsPlaced.
	UpdateListing(ctx context.Context, item *domain.Item) (*domain.Item, error)

	// MarkPaid records the settlement fields once. A second call for the same
	// payment is a no-op; a different payment yields ErrPaymentAlreadyPaid.
	MarkPaid(ctx context.Context, itemID string, payment *domain.Payment) (*domain.Item, error)

	// Delete removes the item and prunes every reference set pointing at it.
	Delete(ctx context.Context, itemID string) (*Cascade, error)
}
