package domain

import "time"

// User is the bidder/buyer aggregate.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	PurchasedItems []string  `json:"items"`
	LikedItems     []string  `json:"liked"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasPurchased reports whether itemID is in the purchased set.
func (u *User) HasPurchased(itemID string) bool {
	return u != nil && contains(u.PurchasedItems, itemID)
}
