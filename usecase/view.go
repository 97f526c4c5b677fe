package usecase

import (
	"time"

	"github.com/fastygo/auction/domain"
)

// ItemView is an item with its auction status evaluated at read time.
type ItemView struct {
	domain.Item
	Status domain.AuctionStatus `json:"auction_status"`
}

func NewItemView(item domain.Item, now time.Time) ItemView {
	return ItemView{Item: item, Status: item.StatusAt(now)}
}

func NewItemViews(items []domain.Item, now time.Time) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, NewItemView(item, now))
	}
	return views
}
