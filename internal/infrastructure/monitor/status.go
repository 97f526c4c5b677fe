package monitor

import "time"

// State is the health of one dependency.
type State string

const (
	StateUp       State = "up"
	StateDown     State = "down"
	StateDisabled State = "disabled"
)

type Status struct {
	Store       State     `json:"store"`
	StoreDriver string    `json:"store_driver"`
	Redis       State     `json:"redis"`
	Events      State     `json:"events"`
	Journal     State     `json:"journal"`
	JournalSize int       `json:"journal_size"`
	LastCheck   time.Time `json:"last_check"`
}
