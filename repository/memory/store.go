// Package memory is a single-process store implementing every repository
// port behind one mutex, so each method is atomic with respect to the others.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
)

type Store struct {
	mu       sync.Mutex
	items    map[string]*domain.Item
	sellers  map[string]*domain.Seller
	users    map[string]*domain.User
	payments map[string]*domain.Payment
	// seq orders payments by creation independently of clock resolution.
	seq    int64
	paySeq map[string]int64
	now    func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		items:    make(map[string]*domain.Item),
		sellers:  make(map[string]*domain.Seller),
		users:    make(map[string]*domain.User),
		payments: make(map[string]*domain.Payment),
		paySeq:   make(map[string]int64),
		now:      time.Now,
	}
}

func (s *Store) Items() repository.ItemRepository { return itemRepo{s} }

func (s *Store) Sellers() repository.SellerRepository { return sellerRepo{s} }

func (s *Store) Users() repository.UserRepository { return userRepo{s} }

func (s *Store) Payments() repository.PaymentRepository { return paymentRepo{s} }

// Ping always succeeds; it lets the monitor treat the store uniformly.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type itemRepo struct{ s *Store }

func (r itemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return cloneItem(item), nil
}

func (r itemRepo) GetMany(ctx context.Context, ids []string) ([]domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := r.s.items[id]; ok {
			out = append(out, *cloneItem(item))
		}
	}
	return out, nil
}

func (r itemRepo) List(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Item
	for _, item := range r.s.items {
		if filter.SellerID != "" && item.SellerID != filter.SellerID {
			continue
		}
		if filter.OpenAt != nil && !item.IsOpen(*filter.OpenAt) {
			continue
		}
		if filter.ActiveOnly && !item.Active {
			continue
		}
		out = append(out, *cloneItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit := clampLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r itemRepo) Create(ctx context.Context, item *domain.Item) error {
	if item == nil || item.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seller, ok := r.s.sellers[item.SellerID]
	if !ok {
		return domain.ErrSellerNotFound
	}
	if _, exists := r.s.items[item.ID]; exists {
		return domain.ErrDuplicate
	}
	r.s.items[item.ID] = cloneItem(item)
	seller.ActiveItems = appendUnique(seller.ActiveItems, item.ID)
	return nil
}

func (r itemRepo) AcceptBid(ctx context.Context, itemID string, entry domain.BidEntry) (*domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[itemID]
	switch {
	case !ok:
		return nil, domain.ErrItemNotFound
	case item.Sold:
		return nil, domain.ErrItemSold
	case !item.Active:
		return nil, domain.ErrAuctionNotLive
	case entry.Price <= item.CurrentPrice:
		return nil, domain.ErrBidTooLow
	}
	item.History = append(item.History, entry)
	item.CurrentPrice = entry.Price
	item.CurrentBidder = entry.BidderName
	item.CurrentBidderID = entry.BidderID
	item.UpdatedAt = r.s.now()
	return cloneItem(item), nil
}

func (r itemRepo) RecordVisit(ctx context.Context, itemID string, visit domain.Visit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	if !item.HasVisitor(visit.ViewerID) {
		item.Visits = append(item.Visits, visit)
	}
	return nil
}

func (r itemRepo) Sell(ctx context.Context, sellerID, itemID string, soldAt time.Time) (*repository.SaleResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	seller, ok := r.s.sellers[sellerID]
	if !ok {
		return nil, domain.ErrSellerNotFound
	}
	if item.SellerID != sellerID {
		return nil, domain.ErrNotOwner
	}
	if item.Sold {
		return nil, domain.ErrAlreadySold
	}
	if !item.HasBidder() {
		return nil, domain.ErrNoBidsYet
	}
	buyer, ok := r.s.users[item.CurrentBidderID]
	if !ok {
		return nil, domain.ErrBuyerNotFound
	}

	seller.ActiveItems = remove(seller.ActiveItems, itemID)
	seller.SoldItems = appendUnique(seller.SoldItems, itemID)
	buyer.PurchasedItems = appendUnique(buyer.PurchasedItems, itemID)
	item.Sold = true
	item.SoldAt = &soldAt
	item.BuyerID = buyer.ID
	item.UpdatedAt = soldAt

	return &repository.SaleResult{Item: cloneItem(item), BuyerID: buyer.ID}, nil
}

func (r itemRepo) Deactivate(ctx context.Context, itemID string) (*domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if item.Active {
		item.Active = false
		item.UpdatedAt = r.s.now()
	}
	return cloneItem(item), nil
}

func (r itemRepo) UpdateListing(ctx context.Context, edited *domain.Item) (*domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[edited.ID]
	switch {
	case !ok:
		return nil, domain.ErrItemNotFound
	case item.Sold:
		return nil, domain.ErrItemSold
	case item.HasBidder():
		return nil, domain.ErrBidsPlaced
	}
	item.Name = edited.Name
	item.BasePrice = edited.BasePrice
	item.CurrentPrice = edited.BasePrice
	item.Category = edited.Category
	item.ImageURL = edited.ImageURL
	item.Date = edited.Date
	item.StartTime = edited.StartTime
	item.EndTime = edited.EndTime
	item.UpdatedAt = edited.UpdatedAt
	return cloneItem(item), nil
}

func (r itemRepo) MarkPaid(ctx context.Context, itemID string, payment *domain.Payment) (*domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if item.Paid {
		if item.PaymentID == payment.ID {
			return cloneItem(item), nil
		}
		return nil, domain.ErrPaymentAlreadyPaid
	}
	if !item.Sold {
		return nil, domain.ErrItemNotSold
	}
	item.Paid = true
	item.PaidAmount = payment.Amount
	item.PaymentID = payment.ID
	item.PaidBy = payment.PayerID
	item.UpdatedAt = r.s.now()
	return cloneItem(item), nil
}

func (r itemRepo) Delete(ctx context.Context, itemID string) (*repository.Cascade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[itemID]; !ok {
		return nil, domain.ErrItemNotFound
	}
	cascade := &repository.Cascade{ItemIDs: []string{itemID}}
	r.s.deleteItemLocked(itemID, cascade)
	return cascade, nil
}

// deleteItemLocked removes the item, its payments and every reference to it,
// recording each aggregate whose sets changed.
func (s *Store) deleteItemLocked(itemID string, cascade *repository.Cascade) {
	delete(s.items, itemID)
	for id, p := range s.payments {
		if p.ItemID == itemID {
			delete(s.payments, id)
			delete(s.paySeq, id)
		}
	}
	for _, seller := range s.sellers {
		before := len(seller.ActiveItems) + len(seller.SoldItems) + len(seller.LikedItems)
		seller.ActiveItems = remove(seller.ActiveItems, itemID)
		seller.SoldItems = remove(seller.SoldItems, itemID)
		seller.LikedItems = remove(seller.LikedItems, itemID)
		if len(seller.ActiveItems)+len(seller.SoldItems)+len(seller.LikedItems) != before {
			cascade.SellerIDs = appendUnique(cascade.SellerIDs, seller.ID)
		}
	}
	for _, user := range s.users {
		before := len(user.PurchasedItems) + len(user.LikedItems)
		user.PurchasedItems = remove(user.PurchasedItems, itemID)
		user.LikedItems = remove(user.LikedItems, itemID)
		if len(user.PurchasedItems)+len(user.LikedItems) != before {
			cascade.UserIDs = appendUnique(cascade.UserIDs, user.ID)
		}
	}
}

type sellerRepo struct{ s *Store }

func (r sellerRepo) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seller, ok := r.s.sellers[id]
	if !ok {
		return nil, domain.ErrSellerNotFound
	}
	return cloneSeller(seller), nil
}

func (r sellerRepo) Create(ctx context.Context, seller *domain.Seller) error {
	if seller == nil || seller.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.sellers {
		if existing.ID == seller.ID || (seller.Email != "" && existing.Email == seller.Email) {
			return domain.ErrDuplicate
		}
	}
	r.s.sellers[seller.ID] = cloneSeller(seller)
	return nil
}

func (r sellerRepo) UpdateSubscription(ctx context.Context, id string, tier domain.Subscription) (*domain.Seller, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seller, ok := r.s.sellers[id]
	if !ok {
		return nil, domain.ErrSellerNotFound
	}
	seller.Subscription = tier
	seller.UpdatedAt = r.s.now()
	return cloneSeller(seller), nil
}

func (r sellerRepo) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Seller, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seller, ok := r.s.sellers[id]
	if !ok {
		return nil, domain.ErrSellerNotFound
	}
	if patch.Email != nil {
		for otherID, other := range r.s.sellers {
			if otherID != id && other.Email == *patch.Email {
				return nil, domain.ErrDuplicate
			}
		}
		seller.Email = *patch.Email
	}
	if patch.Phone != nil {
		seller.Phone = *patch.Phone
	}
	if patch.Name != nil {
		seller.Name = *patch.Name
		for _, item := range r.s.items {
			if item.SellerID == id {
				item.SellerName = seller.Name
			}
		}
	}
	seller.UpdatedAt = r.s.now()
	return cloneSeller(seller), nil
}

func (r sellerRepo) AddLikedItem(ctx context.Context, sellerID, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seller, ok := r.s.sellers[sellerID]
	if !ok {
		return domain.ErrSellerNotFound
	}
	if _, ok := r.s.items[itemID]; !ok {
		return domain.ErrItemNotFound
	}
	seller.LikedItems = appendUnique(seller.LikedItems, itemID)
	return nil
}

func (r sellerRepo) Delete(ctx context.Context, id string) (*repository.Cascade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sellers[id]; !ok {
		return nil, domain.ErrSellerNotFound
	}
	cascade := &repository.Cascade{}
	for itemID, item := range r.s.items {
		if item.SellerID == id {
			cascade.ItemIDs = append(cascade.ItemIDs, itemID)
		}
	}
	sort.Strings(cascade.ItemIDs)
	for _, itemID := range cascade.ItemIDs {
		r.s.deleteItemLocked(itemID, cascade)
	}
	delete(r.s.sellers, id)
	cascade.SellerIDs = remove(cascade.SellerIDs, id)
	return cascade, nil
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.users[user.ID]; exists {
		return domain.ErrDuplicate
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r userRepo) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	user.UpdatedAt = r.s.now()
	return cloneUser(user), nil
}

func (r userRepo) AddLikedItem(ctx context.Context, userID, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := r.s.items[itemID]; !ok {
		return domain.ErrItemNotFound
	}
	user.LikedItems = appendUnique(user.LikedItems, itemID)
	return nil
}

func (r userRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.s.users, id)
	return nil
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	if payment == nil || payment.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[payment.ItemID]; !ok {
		return domain.ErrItemNotFound
	}
	r.s.seq++
	copied := *payment
	r.s.payments[payment.ID] = &copied
	r.s.paySeq[payment.ID] = r.s.seq
	return nil
}

func (r paymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (r paymentRepo) LatestForItem(ctx context.Context, itemID string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var (
		latest *domain.Payment
		best   int64
	)
	for id, p := range r.s.payments {
		if p.ItemID == itemID && r.s.paySeq[id] > best {
			latest, best = p, r.s.paySeq[id]
		}
	}
	if latest == nil {
		return nil, domain.ErrPaymentNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r paymentRepo) Transition(ctx context.Context, id string, next domain.PaymentStatus) (*domain.Payment, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, false, domain.ErrPaymentNotFound
	}
	if !p.CanTransitionTo(next) {
		copied := *p
		return &copied, false, nil
	}
	if next == domain.PaymentPaid {
		for otherID, other := range r.s.payments {
			if otherID != id && other.ItemID == p.ItemID && other.Status == domain.PaymentPaid {
				return nil, false, domain.ErrPaymentAlreadyPaid
			}
		}
	}
	p.Status = next
	p.UpdatedAt = r.s.now()
	copied := *p
	return &copied, true, nil
}

func (r paymentRepo) ListPaidUnsettled(ctx context.Context, limit int) ([]domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.s.payments {
		item, ok := r.s.items[p.ItemID]
		if p.Status == domain.PaymentPaid && ok && !item.Paid {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.paySeq[out[i].ID] < r.s.paySeq[out[j].ID] })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
