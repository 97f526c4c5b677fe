package domain

import "time"

// Item represents one auction listing together with its bid ledger and visits.
type Item struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	SellerID        string     `json:"seller_id"`
	SellerName      string     `json:"seller_name,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	Category        string     `json:"category,omitempty"`
	BasePrice       Money      `json:"base_price"`
	CurrentPrice    Money      `json:"current_price"`
	CurrentBidder   string     `json:"current_bidder,omitempty"`
	CurrentBidderID string     `json:"current_bidder_id,omitempty"`
	Active          bool       `json:"active"`
	Date            *time.Time `json:"date,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Sold            bool       `json:"sold"`
	SoldAt          *time.Time `json:"sold_at,omitempty"`
	BuyerID         string     `json:"buyer_id,omitempty"`
	Paid            bool       `json:"paid"`
	PaidAmount      Money      `json:"paid_amount"`
	PaymentID       string     `json:"payment_id,omitempty"`
	PaidBy          string     `json:"paid_by,omitempty"`
	History         []BidEntry `json:"history"`
	Visits          []Visit    `json:"visits"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BidEntry is one accepted bid. Entries are immutable once appended.
type BidEntry struct {
	BidderID   string    `json:"bidder_id"`
	BidderName string    `json:"bidder"`
	Price      Money     `json:"price"`
	PlacedAt   time.Time `json:"placed_at"`
}

// Visit is one view of an item. Informational only.
type Visit struct {
	ViewerID  string    `json:"id"`
	Contact   string    `json:"email,omitempty"`
	VisitedAt time.Time `json:"visited_at"`
}

// ItemSpec carries the seller-supplied fields of a new listing.
type ItemSpec struct {
	Name      string
	BasePrice Money
	Category  string
	ImageURL  string
	Date      *time.Time
	StartTime *time.Time
	EndTime   *time.Time
}

// Validate checks the required fields of a new listing.
func (s ItemSpec) Validate() error {
	if s.Name == "" {
		return Detail(ErrInvalidSpec, "name is required")
	}
	if s.BasePrice < 0 {
		return Detail(ErrInvalidSpec, "base price must not be negative")
	}
	if s.StartTime != nil && s.EndTime != nil && s.EndTime.Before(*s.StartTime) {
		return Detail(ErrInvalidSpec, "end time is before start time")
	}
	return nil
}

// ItemPatch carries the editable fields of a listing. Nil fields are left
// unchanged.
type ItemPatch struct {
	Name      *string
	BasePrice *Money
	Category  *string
	ImageURL  *string
	Date      *time.Time
	StartTime *time.Time
	EndTime   *time.Time
}

func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.BasePrice == nil && p.Category == nil && p.ImageURL == nil &&
		p.Date == nil && p.StartTime == nil && p.EndTime == nil
}

// Apply returns the edited copy of item. A listing is editable only while it
// is unsold and has no bids, so the current price always moves with the base
// price and never drops below it.
func (p ItemPatch) Apply(item Item, now time.Time) (*Item, error) {
	if item.Sold {
		return nil, ErrItemSold
	}
	if item.HasBidder() {
		return nil, ErrBidsPlaced
	}

	spec := ItemSpec{
		Name:      item.Name,
		BasePrice: item.BasePrice,
		Category:  item.Category,
		ImageURL:  item.ImageURL,
		Date:      item.Date,
		StartTime: item.StartTime,
		EndTime:   item.EndTime,
	}
	if p.Name != nil {
		spec.Name = *p.Name
	}
	if p.BasePrice != nil {
		spec.BasePrice = *p.BasePrice
	}
	if p.Category != nil {
		spec.Category = *p.Category
	}
	if p.ImageURL != nil {
		spec.ImageURL = *p.ImageURL
	}
	if p.Date != nil {
		spec.Date = p.Date
	}
	if p.StartTime != nil {
		spec.StartTime = p.StartTime
	}
	if p.EndTime != nil {
		spec.EndTime = p.EndTime
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	edited := item
	edited.Name = spec.Name
	edited.BasePrice = spec.BasePrice
	edited.CurrentPrice = spec.BasePrice
	edited.Category = spec.Category
	edited.ImageURL = spec.ImageURL
	edited.Date = spec.Date
	edited.StartTime = spec.StartTime
	edited.EndTime = spec.EndTime
	edited.UpdatedAt = now
	return &edited, nil
}

// NewItem builds an item in its initial state: active, unsold, unpaid and
// priced at its base price.
func NewItem(id string, seller *Seller, spec ItemSpec, now time.Time) *Item {
	return &Item{
		ID:           id,
		Name:         spec.Name,
		SellerID:     seller.ID,
		SellerName:   seller.Name,
		ImageURL:     spec.ImageURL,
		Category:     spec.Category,
		BasePrice:    spec.BasePrice,
		CurrentPrice: spec.BasePrice,
		Active:       true,
		Date:         spec.Date,
		StartTime:    spec.StartTime,
		EndTime:      spec.EndTime,
		History:      []BidEntry{},
		Visits:       []Visit{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// StatusAt evaluates the auction clock for this item.
func (i *Item) StatusAt(now time.Time) AuctionStatus {
	return StatusAt(now, i.StartTime, i.EndTime)
}

// HasBidder reports whether at least one bid has been accepted.
func (i *Item) HasBidder() bool {
	return i != nil && i.CurrentBidderID != ""
}

// CurrentHighBid is the stored current price. It is not recomputed from the
// ledger so a seeded base price still counts.
func (i *Item) CurrentHighBid() Money {
	return i.CurrentPrice
}

// CheckBid validates a proposed bid against the item's state as read from
// the store. The store's conditional write remains the final arbiter.
func (i *Item) CheckBid(now time.Time, price Money) error {
	if i.Sold {
		return ErrItemSold
	}
	if !i.Active || !i.StatusAt(now).AcceptsBids() {
		return ErrAuctionNotLive
	}
	if price <= i.CurrentHighBid() {
		return ErrBidTooLow
	}
	return nil
}

// IsOpen reports whether the item still belongs on a listing page at now:
// unsold and either unscheduled or not yet past its end time.
func (i *Item) IsOpen(now time.Time) bool {
	if i.Sold {
		return false
	}
	return i.EndTime == nil || i.EndTime.After(now)
}

// HasVisitor reports whether viewerID already appears in the visit records.
func (i *Item) HasVisitor(viewerID string) bool {
	for _, v := range i.Visits {
		if v.ViewerID == viewerID {
			return true
		}
	}
	return false
}
