package domain

import (
	"github.com/google/uuid"
)

// EntityKind names an administratively deletable aggregate.
type EntityKind string

const (
	KindUser   EntityKind = "user"
	KindSeller EntityKind = "seller"
	KindItem   EntityKind = "item"
)

// DeleteTarget is the tagged variant for admin deletion. Exactly one of the
// variants is produced by ParseDeleteTarget; each carries its own cascade rule
// in the auction use case.
type DeleteTarget interface {
	Kind() EntityKind
	TargetID() string
}

type UserTarget struct{ ID string }
type SellerTarget struct{ ID string }
type ItemTarget struct{ ID string }

func (t UserTarget) Kind() EntityKind   { return KindUser }
func (t UserTarget) TargetID() string   { return t.ID }
func (t SellerTarget) Kind() EntityKind { return KindSeller }
func (t SellerTarget) TargetID() string { return t.ID }
func (t ItemTarget) Kind() EntityKind   { return KindItem }
func (t ItemTarget) TargetID() string   { return t.ID }

// ParseDeleteTarget validates kind and id before any storage is touched.
func ParseDeleteTarget(kind, id string) (DeleteTarget, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	switch EntityKind(kind) {
	case KindUser:
		return UserTarget{ID: id}, nil
	case KindSeller:
		return SellerTarget{ID: id}, nil
	case KindItem:
		return ItemTarget{ID: id}, nil
	}
	return nil, Detail(ErrInvalidEntityKind, "invalid type "+kind)
}

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidateID rejects identifiers that are not well-formed.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidIdentifier
	}
	return nil
}

// ValidateIDs validates several identifiers in order.
func ValidateIDs(ids ...string) error {
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return err
		}
	}
	return nil
}
