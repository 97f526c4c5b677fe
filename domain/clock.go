package domain

import "time"

// AuctionStatus is the time-window state of an item's auction.
type AuctionStatus string

const (
	AuctionNotStarted AuctionStatus = "NOT_STARTED"
	AuctionLive       AuctionStatus = "LIVE"
	AuctionEnded      AuctionStatus = "ENDED"
	AuctionNoSchedule AuctionStatus = "NO_SCHEDULE"
)

// StatusAt maps the auction window onto a status. Both bounds are inclusive.
// It is evaluated on every read and bid attempt and never persisted.
func StatusAt(now time.Time, start, end *time.Time) AuctionStatus {
	if start == nil || end == nil {
		return AuctionNoSchedule
	}
	switch {
	case now.Before(*start):
		return AuctionNotStarted
	case now.After(*end):
		return AuctionEnded
	default:
		return AuctionLive
	}
}

// AcceptsBids reports whether the window permits bidding.
func (s AuctionStatus) AcceptsBids() bool {
	return s == AuctionLive || s == AuctionNoSchedule
}
