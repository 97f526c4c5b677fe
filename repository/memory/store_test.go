package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
)

type fixture struct {
	store  *Store
	seller *domain.Seller
	user   *domain.User
	item   *domain.Item
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := New()

	seller := &domain.Seller{ID: domain.NewID(), Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, s.Sellers().Create(ctx, seller))
	user := &domain.User{ID: domain.NewID(), Name: "Bob"}
	require.NoError(t, s.Users().Create(ctx, user))

	item := domain.NewItem(domain.NewID(), seller, domain.ItemSpec{Name: "vase", BasePrice: 1000}, time.Now())
	require.NoError(t, s.Items().Create(ctx, item))

	return fixture{store: s, seller: seller, user: user, item: item}
}

func (f fixture) bid(t *testing.T, price domain.Money) {
	t.Helper()
	_, err := f.store.Items().AcceptBid(context.Background(), f.item.ID, domain.BidEntry{
		BidderID: f.user.ID, BidderName: f.user.Name, Price: price, PlacedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestCreateRegistersActiveItem(t *testing.T) {
	f := newFixture(t)
	seller, err := f.store.Sellers().GetByID(context.Background(), f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.item.ID}, seller.ActiveItems)

	orphan := domain.NewItem(domain.NewID(), &domain.Seller{ID: domain.NewID()}, domain.ItemSpec{Name: "x"}, time.Now())
	err = f.store.Items().Create(context.Background(), orphan)
	assert.True(t, errors.Is(err, domain.ErrSellerNotFound))
}

func TestDuplicateSellerEmail(t *testing.T) {
	f := newFixture(t)
	err := f.store.Sellers().Create(context.Background(), &domain.Seller{ID: domain.NewID(), Name: "Eve", Email: "ada@example.com"})
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
}

func TestAcceptBidIsConditional(t *testing.T) {
	f := newFixture(t)
	f.bid(t, 1500)

	_, err := f.store.Items().AcceptBid(context.Background(), f.item.ID, domain.BidEntry{BidderID: f.user.ID, BidderName: "Bob", Price: 1500})
	assert.True(t, errors.Is(err, domain.ErrBidTooLow))

	item, err := f.store.Items().GetByID(context.Background(), f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1500), item.CurrentPrice)
	assert.Len(t, item.History, 1)
}

func TestReadsAreCopies(t *testing.T) {
	f := newFixture(t)
	f.bid(t, 1200)

	item, err := f.store.Items().GetByID(context.Background(), f.item.ID)
	require.NoError(t, err)
	item.History[0].Price = 1
	item.CurrentPrice = 1

	again, err := f.store.Items().GetByID(context.Background(), f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1200), again.History[0].Price)
	assert.Equal(t, domain.Money(1200), again.CurrentPrice)
}

func TestSellMovesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Items().Sell(ctx, f.seller.ID, f.item.ID, time.Now())
	assert.True(t, errors.Is(err, domain.ErrNoBidsYet))

	f.bid(t, 2000)
	result, err := f.store.Items().Sell(ctx, f.seller.ID, f.item.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, result.BuyerID)
	assert.True(t, result.Item.Sold)

	seller, _ := f.store.Sellers().GetByID(ctx, f.seller.ID)
	assert.Empty(t, seller.ActiveItems)
	assert.Equal(t, []string{f.item.ID}, seller.SoldItems)
	user, _ := f.store.Users().GetByID(ctx, f.user.ID)
	assert.Equal(t, []string{f.item.ID}, user.PurchasedItems)

	_, err = f.store.Items().Sell(ctx, f.seller.ID, f.item.ID, time.Now())
	assert.True(t, errors.Is(err, domain.ErrAlreadySold))
}

func TestMarkPaidOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := &domain.Payment{ID: domain.NewID(), ItemID: f.item.ID, PayerID: f.user.ID, Amount: 2000}

	_, err := f.store.Items().MarkPaid(ctx, f.item.ID, payment)
	assert.True(t, errors.Is(err, domain.ErrItemNotSold))

	f.bid(t, 2000)
	_, err = f.store.Items().Sell(ctx, f.seller.ID, f.item.ID, time.Now())
	require.NoError(t, err)

	item, err := f.store.Items().MarkPaid(ctx, f.item.ID, payment)
	require.NoError(t, err)
	assert.True(t, item.Paid)
	assert.Equal(t, payment.ID, item.PaymentID)

	_, err = f.store.Items().MarkPaid(ctx, f.item.ID, payment)
	assert.NoError(t, err)

	other := &domain.Payment{ID: domain.NewID(), ItemID: f.item.ID, PayerID: f.user.ID, Amount: 2000}
	_, err = f.store.Items().MarkPaid(ctx, f.item.ID, other)
	assert.True(t, errors.Is(err, domain.ErrPaymentAlreadyPaid))
}

func TestTransitionAllowsOnePaidPerItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payments := f.store.Payments()

	first := &domain.Payment{ID: domain.NewID(), ItemID: f.item.ID, Status: domain.PaymentPending}
	second := &domain.Payment{ID: domain.NewID(), ItemID: f.item.ID, Status: domain.PaymentPending}
	require.NoError(t, payments.Create(ctx, first))
	require.NoError(t, payments.Create(ctx, second))

	latest, err := payments.LatestForItem(ctx, f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	paid, ok, err := payments.Transition(ctx, first.ID, domain.PaymentPaid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.PaymentPaid, paid.Status)

	_, _, err = payments.Transition(ctx, second.ID, domain.PaymentPaid)
	assert.True(t, errors.Is(err, domain.ErrPaymentAlreadyPaid))

	again, ok, err := payments.Transition(ctx, first.ID, domain.PaymentPaid)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.PaymentPaid, again.Status)

	unsettled, err := payments.ListPaidUnsettled(ctx, 0)
	require.NoError(t, err)
	require.Len(t, unsettled, 1)
	assert.Equal(t, first.ID, unsettled[0].ID)
}

func TestSellerDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bid(t, 2000)
	_, err := f.store.Items().Sell(ctx, f.seller.ID, f.item.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Users().AddLikedItem(ctx, f.user.ID, f.item.ID))
	require.NoError(t, f.store.Payments().Create(ctx, &domain.Payment{ID: domain.NewID(), ItemID: f.item.ID, Status: domain.PaymentPending}))

	cascade, err := f.store.Sellers().Delete(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.item.ID}, cascade.ItemIDs)
	assert.Equal(t, []string{f.user.ID}, cascade.UserIDs)
	assert.Empty(t, cascade.SellerIDs, "the deleted seller is not reported as a referrer")

	_, err = f.store.Items().GetByID(ctx, f.item.ID)
	assert.True(t, errors.Is(err, domain.ErrItemNotFound))
	user, err := f.store.Users().GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, user.PurchasedItems)
	assert.Empty(t, user.LikedItems)
	_, err = f.store.Payments().LatestForItem(ctx, f.item.ID)
	assert.True(t, errors.Is(err, domain.ErrPaymentNotFound))
}

func TestItemDeleteReportsReferrers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fan := &domain.Seller{ID: domain.NewID(), Name: "fan", Email: "fan@example.com"}
	require.NoError(t, f.store.Sellers().Create(ctx, fan))
	require.NoError(t, f.store.Sellers().AddLikedItem(ctx, fan.ID, f.item.ID))
	require.NoError(t, f.store.Users().AddLikedItem(ctx, f.user.ID, f.item.ID))

	cascade, err := f.store.Items().Delete(ctx, f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{f.item.ID}, cascade.ItemIDs)
	assert.ElementsMatch(t, []string{f.seller.ID, fan.ID}, cascade.SellerIDs)
	assert.Equal(t, []string{f.user.ID}, cascade.UserIDs)

	stored, err := f.store.Sellers().GetByID(ctx, fan.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LikedItems)

	_, err = f.store.Items().Delete(ctx, f.item.ID)
	assert.True(t, errors.Is(err, domain.ErrItemNotFound))
}

func TestListFiltersOpenItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	ended := now.Add(-time.Hour)

	past := domain.NewItem(domain.NewID(), f.seller, domain.ItemSpec{Name: "old", EndTime: &ended}, now.Add(time.Second))
	require.NoError(t, f.store.Items().Create(ctx, past))

	all, err := f.store.Items().List(ctx, repository.ItemFilter{SellerID: f.seller.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, past.ID, all[0].ID, "newest first")

	open, err := f.store.Items().List(ctx, repository.ItemFilter{SellerID: f.seller.ID, OpenAt: &now})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, f.item.ID, open[0].ID)
}

func TestRecordVisitDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	visit := domain.Visit{ViewerID: f.user.ID, VisitedAt: time.Now()}
	require.NoError(t, f.store.Items().RecordVisit(ctx, f.item.ID, visit))
	require.NoError(t, f.store.Items().RecordVisit(ctx, f.item.ID, visit))

	item, err := f.store.Items().GetByID(ctx, f.item.ID)
	require.NoError(t, err)
	assert.Len(t, item.Visits, 1)
}

func TestListActiveOnlyFiltersBeforeLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newer := domain.NewItem(domain.NewID(), f.seller, domain.ItemSpec{Name: "newer"}, time.Now().Add(time.Minute))
	require.NoError(t, f.store.Items().Create(ctx, newer))
	_, err := f.store.Items().Deactivate(ctx, newer.ID)
	require.NoError(t, err)

	page, err := f.store.Items().List(ctx, repository.ItemFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, newer.ID, page[0].ID)

	page, err = f.store.Items().List(ctx, repository.ItemFilter{ActiveOnly: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, f.item.ID, page[0].ID)
}

func TestUpdateListingLocksAfterFirstBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	edited := *f.item
	edited.Name = "blue vase"
	edited.BasePrice = 1500
	item, err := f.store.Items().UpdateListing(ctx, &edited)
	require.NoError(t, err)
	assert.Equal(t, "blue vase", item.Name)
	assert.Equal(t, domain.Money(1500), item.CurrentPrice)

	f.bid(t, 2000)
	edited.BasePrice = 100
	_, err = f.store.Items().UpdateListing(ctx, &edited)
	assert.True(t, errors.Is(err, domain.ErrBidsPlaced))

	stored, err := f.store.Items().GetByID(ctx, f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(2000), stored.CurrentPrice)

	_, err = f.store.Items().Sell(ctx, f.seller.ID, f.item.ID, time.Now())
	require.NoError(t, err)
	_, err = f.store.Items().UpdateListing(ctx, &edited)
	assert.True(t, errors.Is(err, domain.ErrItemSold))

	edited.ID = domain.NewID()
	_, err = f.store.Items().UpdateListing(ctx, &edited)
	assert.True(t, errors.Is(err, domain.ErrItemNotFound))
}

func TestSellerUpdateProfileRenamesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Sellers().Create(ctx, &domain.Seller{ID: domain.NewID(), Name: "Eve", Email: "eve@example.com"}))

	taken := "eve@example.com"
	_, err := f.store.Sellers().UpdateProfile(ctx, f.seller.ID, domain.ProfilePatch{Email: &taken})
	assert.True(t, errors.Is(err, domain.ErrDuplicate))

	name, phone := "Ada L", "555-0100"
	seller, err := f.store.Sellers().UpdateProfile(ctx, f.seller.ID, domain.ProfilePatch{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", seller.Name)
	assert.Equal(t, "555-0100", seller.Phone)
	assert.Equal(t, "ada@example.com", seller.Email)

	item, err := f.store.Items().GetByID(ctx, f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L", item.SellerName)

	_, err = f.store.Users().UpdateProfile(ctx, domain.NewID(), domain.ProfilePatch{Name: &name})
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))
}
