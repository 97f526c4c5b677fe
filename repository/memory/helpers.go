package memory

import "github.com/fastygo/auction/domain"

func cloneItem(item *domain.Item) *domain.Item {
	copied := *item
	copied.History = append([]domain.BidEntry{}, item.History...)
	copied.Visits = append([]domain.Visit{}, item.Visits...)
	return &copied
}

func cloneSeller(seller *domain.Seller) *domain.Seller {
	copied := *seller
	copied.ActiveItems = append([]string{}, seller.ActiveItems...)
	copied.SoldItems = append([]string{}, seller.SoldItems...)
	copied.LikedItems = append([]string{}, seller.LikedItems...)
	return &copied
}

func cloneUser(user *domain.User) *domain.User {
	copied := *user
	copied.PurchasedItems = append([]string{}, user.PurchasedItems...)
	copied.LikedItems = append([]string{}, user.LikedItems...)
	return &copied
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 200
	}
	return limit
}
