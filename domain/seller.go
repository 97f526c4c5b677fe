package domain

import "time"

// Subscription is the seller's billing tier. It affects no lifecycle rule.
type Subscription string

const (
	SubscriptionFree     Subscription = "free"
	SubscriptionStandard Subscription = "standard"
	SubscriptionPremium  Subscription = "premium"
)

// Valid reports whether s is one of the known tiers.
func (s Subscription) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionStandard, SubscriptionPremium:
		return true
	}
	return false
}

// Seller is the seller aggregate. ActiveItems and SoldItems are disjoint.
type Seller struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone,omitempty"`
	Subscription Subscription `json:"subscription"`
	ActiveItems  []string     `json:"items"`
	SoldItems    []string     `json:"sold_items"`
	LikedItems   []string     `json:"liked_items"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Owns reports whether itemID is in either of the seller's item sets.
func (s *Seller) Owns(itemID string) bool {
	return contains(s.ActiveItems, itemID) || contains(s.SoldItems, itemID)
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
