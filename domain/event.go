package domain

import "time"

// EventName identifies a committed lifecycle transition.
type EventName string

const (
	EventItemCreated      EventName = "item.created"
	EventItemUpdated      EventName = "item.updated"
	EventBidAccepted      EventName = "bid.accepted"
	EventItemSold         EventName = "item.sold"
	EventItemDeactivated  EventName = "item.deactivated"
	EventPaymentConfirmed EventName = "payment.confirmed"
	EventEntityDeleted    EventName = "entity.deleted"
)

// Event describes a lifecycle transition after it has been committed.
type Event struct {
	ID         string            `json:"id"`
	Name       EventName         `json:"name"`
	ItemID     string            `json:"item_id,omitempty"`
	ActorID    string            `json:"actor_id,omitempty"`
	Amount     Money             `json:"amount,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewEvent stamps an event with an id and time.
func NewEvent(name EventName, itemID, actorID string, now time.Time) Event {
	return Event{
		ID:         NewID(),
		Name:       name,
		ItemID:     itemID,
		ActorID:    actorID,
		OccurredAt: now,
	}
}
