package auction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fastygo/auction/domain"
	"github.com/fastygo/auction/repository"
	"github.com/fastygo/auction/repository/memory"
	"github.com/fastygo/auction/usecase"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) names() []domain.EventName {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventName, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type harness struct {
	uc      *UseCase
	store   *memory.Store
	cache   *usecase.Cache
	events  *recordingPublisher
	clock   *clock
	seller  *domain.Seller
	bidderA *domain.User
	bidderB *domain.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithCache(t, nil)
}

// newHarnessWithCache wires the engine to cacheStore; nil disables caching.
func newHarnessWithCache(t *testing.T, cacheStore repository.CacheStore) *harness {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	events := &recordingPublisher{}
	clk := &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	logger := zaptest.NewLogger(t)
	cache := usecase.NewCache(cacheStore, time.Hour, nil, logger)

	uc := New(store.Items(), store.Sellers(), store.Users(), cache, logger,
		WithClock(clk.Now), WithEvents(events))

	seller := &domain.Seller{ID: domain.NewID(), Name: "Ada", Email: "ada@example.com", Subscription: domain.SubscriptionFree}
	require.NoError(t, store.Sellers().Create(ctx, seller))
	bidderA := &domain.User{ID: domain.NewID(), Name: "A"}
	require.NoError(t, store.Users().Create(ctx, bidderA))
	bidderB := &domain.User{ID: domain.NewID(), Name: "B"}
	require.NoError(t, store.Users().Create(ctx, bidderB))

	return &harness{uc: uc, store: store, cache: cache, events: events, clock: clk, seller: seller, bidderA: bidderA, bidderB: bidderB}
}

func (h *harness) createItem(t *testing.T, spec domain.ItemSpec) *domain.Item {
	t.Helper()
	item, err := h.uc.CreateItem(context.Background(), h.seller.ID, spec)
	require.NoError(t, err)
	return item
}

func bid(user *domain.User, price domain.Money) Bid {
	return Bid{BidderID: user.ID, BidderName: user.Name, Price: price}
}

func TestBiddingScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	item := h.createItem(t, domain.ItemSpec{Name: "clock", BasePrice: 100})
	assert.Equal(t, domain.Money(100), item.CurrentPrice)

	_, err := h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 100))
	assert.True(t, errors.Is(err, domain.ErrBidTooLow))

	updated, err := h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 150))
	require.NoError(t, err)
	assert.Equal(t, domain.Money(150), updated.CurrentPrice)
	require.Len(t, updated.History, 1)
	assert.Equal(t, "A", updated.History[0].BidderName)

	_, err = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderB, 150))
	assert.True(t, errors.Is(err, domain.ErrBidTooLow))

	updated, err = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderB, 200))
	require.NoError(t, err)
	assert.Equal(t, domain.Money(200), updated.CurrentPrice)
	assert.Equal(t, h.bidderB.ID, updated.CurrentBidderID)

	sold, err := h.uc.CloseAndSell(ctx, h.seller.ID, item.ID)
	require.NoError(t, err)
	assert.True(t, sold.Sold)
	assert.Equal(t, h.bidderB.ID, sold.BuyerID)

	seller, err := h.store.Sellers().GetByID(ctx, h.seller.ID)
	require.NoError(t, err)
	assert.NotContains(t, seller.ActiveItems, item.ID)
	assert.Contains(t, seller.SoldItems, item.ID)

	buyer, err := h.store.Users().GetByID(ctx, h.bidderB.ID)
	require.NoError(t, err)
	assert.Contains(t, buyer.PurchasedItems, item.ID)

	assert.Equal(t, []domain.EventName{
		domain.EventItemCreated,
		domain.EventBidAccepted,
		domain.EventBidAccepted,
		domain.EventItemSold,
	}, h.events.names())
}

func TestLedgerPricesStrictlyIncrease(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.createItem(t, domain.ItemSpec{Name: "chair", BasePrice: 10})

	for _, price := range []domain.Money{11, 11, 9, 25, 20, 30, 30, 31} {
		_, _ = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, price))
	}

	stored, err := h.store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	prices := make([]domain.Money, 0, len(stored.History))
	for _, entry := range stored.History {
		prices = append(prices, entry.Price)
	}
	assert.Equal(t, []domain.Money{11, 25, 30, 31}, prices)
	assert.Equal(t, domain.Money(31), stored.CurrentPrice)
}

func TestConcurrentBidsNeverRegressPrice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.createItem(t, domain.ItemSpec{Name: "race", BasePrice: 100})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(price domain.Money) {
			defer wg.Done()
			_, err := h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, price))
			if err != nil {
				assert.True(t, errors.Is(err, domain.ErrBidTooLow), "unexpected error %v", err)
			}
		}(domain.Money(100 + i))
	}
	wg.Wait()

	stored, err := h.store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.History)
	for i := 1; i < len(stored.History); i++ {
		assert.Greater(t, stored.History[i].Price, stored.History[i-1].Price)
	}
	assert.Equal(t, stored.History[len(stored.History)-1].Price, stored.CurrentPrice)
}

func TestNoBidAfterSale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.createItem(t, domain.ItemSpec{Name: "rug", BasePrice: 100})

	_, err := h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 150))
	require.NoError(t, err)
	_, err = h.uc.CloseAndSell(ctx, h.seller.ID, item.ID)
	require.NoError(t, err)

	_, err = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderB, 1000))
	assert.True(t, errors.Is(err, domain.ErrItemSold))

	_, err = h.uc.CloseAndSell(ctx, h.seller.ID, item.ID)
	assert.True(t, errors.Is(err, domain.ErrAlreadySold))
}

func TestBidWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := h.clock.Now().Add(time.Hour)
	end := start.Add(time.Hour)
	item := h.createItem(t, domain.ItemSpec{Name: "painting", BasePrice: 100, StartTime: &start, EndTime: &end})

	_, err := h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 150))
	assert.True(t, errors.Is(err, domain.ErrAuctionNotLive))

	h.clock.Set(start)
	_, err = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 150))
	assert.NoError(t, err)

	h.clock.Set(end)
	_, err = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderB, 160))
	assert.NoError(t, err)

	h.clock.Set(end.Add(time.Second))
	_, err = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 170))
	assert.True(t, errors.Is(err, domain.ErrAuctionNotLive))
}

func TestPlaceBidValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.createItem(t, domain.ItemSpec{Name: "box", BasePrice: 100})

	_, err := h.uc.PlaceBid(ctx, "nope", bid(h.bidderA, 150))
	assert.True(t, errors.Is(err, domain.ErrInvalidIdentifier))

	_, err = h.uc.PlaceBid(ctx, item.ID, Bid{BidderID: h.bidderA.ID, Price: 150})
	assert.True(t, errors.Is(err, domain.ErrInvalidPayload))

	_, err = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 0))
	assert.True(t, errors.Is(err, domain.ErrInvalidAmount))

	_, err = h.uc.PlaceBid(ctx, domain.NewID(), bid(h.bidderA, 150))
	assert.True(t, errors.Is(err, domain.ErrItemNotFound))
}

func TestSaleRequiresBidder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.createItem(t, domain.ItemSpec{Name: "desk", BasePrice: 100})

	_, err := h.uc.CloseAndSell(ctx, h.seller.ID, item.ID)
	assert.True(t, errors.Is(err, domain.ErrNoBidsYet))

	stored, err := h.store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.Sold)
	assert.True(t, stored.Active)
	seller, err := h.store.Sellers().GetByID(ctx, h.seller.ID)
	require.NoError(t, err)
	assert.Contains(t, seller.ActiveItems, item.ID)
}

func TestSaleByOtherSellerRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.createItem(t, domain.ItemSpec{Name: "lamp", BasePrice: 100})
	_, err := h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 150))
	require.NoError(t, err)

	other := &domain.Seller{ID: domain.NewID(), Name: "Eve", Email: "eve@example.com"}
	require.NoError(t, h.store.Sellers().Create(ctx, other))

	_, err = h.uc.CloseAndSell(ctx, other.ID, item.ID)
	assert.True(t, errors.Is(err, domain.ErrNotOwner))
}

func TestDeactivate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.createItem(t, domain.ItemSpec{Name: "mirror", BasePrice: 100})

	_, err := h.uc.DeactivateItem(ctx, item.ID, domain.NewID())
	assert.True(t, errors.Is(err, domain.ErrNotOwner))

	deactivated, err := h.uc.DeactivateItem(ctx, item.ID, h.seller.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	_, err = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 150))
	assert.True(t, errors.Is(err, domain.ErrAuctionNotLive))

	// second call is a no-op and publishes nothing new
	_, err = h.uc.DeactivateItem(ctx, item.ID, "")
	require.NoError(t, err)
	count := 0
	for _, name := range h.events.names() {
		if name == domain.EventItemDeactivated {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestViewItemRecordsVisitOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.createItem(t, domain.ItemSpec{Name: "globe", BasePrice: 100})

	view, err := h.uc.ViewItem(ctx, item.ID, h.bidderA.ID, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionNoSchedule, view.Status)
	assert.Len(t, view.Visits, 1)

	view, err = h.uc.ViewItem(ctx, item.ID, h.bidderA.ID, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, view.Visits, 1)
}

func TestCreateItemValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.uc.CreateItem(ctx, domain.NewID(), domain.ItemSpec{Name: "x"})
	assert.True(t, errors.Is(err, domain.ErrSellerNotFound))

	_, err = h.uc.CreateItem(ctx, h.seller.ID, domain.ItemSpec{})
	assert.True(t, errors.Is(err, domain.ErrInvalidSpec))
}

func TestUpdateItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := h.createItem(t, domain.ItemSpec{Name: "clock", BasePrice: 100})

	name := "wall clock"
	price := domain.Money(250)
	updated, err := h.uc.UpdateItem(ctx, h.seller.ID, item.ID, domain.ItemPatch{Name: &name, BasePrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "wall clock", updated.Name)
	assert.Equal(t, domain.Money(250), updated.CurrentPrice)
	assert.Contains(t, h.events.names(), domain.EventItemUpdated)

	_, err = h.uc.UpdateItem(ctx, h.seller.ID, item.ID, domain.ItemPatch{})
	assert.True(t, errors.Is(err, domain.ErrInvalidPayload))

	_, err = h.uc.UpdateItem(ctx, domain.NewID(), item.ID, domain.ItemPatch{Name: &name})
	assert.True(t, errors.Is(err, domain.ErrNotOwner))

	_, err = h.uc.PlaceBid(ctx, item.ID, bid(h.bidderA, 300))
	require.NoError(t, err)

	low := domain.Money(10)
	_, err = h.uc.UpdateItem(ctx, h.seller.ID, item.ID, domain.ItemPatch{BasePrice: &low})
	assert.True(t, errors.Is(err, domain.ErrBidsPlaced))

	stored, err := h.store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(300), stored.CurrentPrice)
}
