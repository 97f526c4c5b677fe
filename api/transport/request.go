package transport

import "github.com/shopspring/decimal"

type RegisterSellerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Subscription string `json:"subscription"`
}

type RegisterUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SubscriptionRequest struct {
	Subscription string `json:"subscription"`
}

// ProfileRequest edits a seller or user; absent fields stay unchanged.
type ProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// CreateItemRequest carries prices as decimal numbers or strings; times are
// RFC 3339 or the "2006-01-02T15:04" form of a datetime-local input.
// BasePrice is a pointer so a missing field is told apart from zero.
type CreateItemRequest struct {
	Name      string           `json:"name"`
	BasePrice *decimal.Decimal `json:"base_price"`
	Type      string          `json:"type"`
	ImageURL  string          `json:"image_url"`
	Date      string          `json:"date"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
}

// UpdateItemRequest edits a listing before its first bid.
type UpdateItemRequest struct {
	Name      *string          `json:"name"`
	BasePrice *decimal.Decimal `json:"base_price"`
	Type      *string          `json:"type"`
	ImageURL  *string          `json:"image_url"`
	Date      *string          `json:"date"`
	StartTime *string          `json:"start_time"`
	EndTime   *string          `json:"end_time"`
}

type BidRequest struct {
	Price      decimal.Decimal `json:"price"`
	BidderName string          `json:"bidder_name"`
}

type PaymentRequest struct {
	ItemID string `json:"item_id"`
	Method string `json:"method"`
}
