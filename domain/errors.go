package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Reason is the stable, typed rejection reason carried end-to-end to callers.
type Reason string

const (
	ReasonBidTooLow          Reason = "BID_TOO_LOW"
	ReasonAuctionNotLive     Reason = "AUCTION_NOT_LIVE"
	ReasonItemSold           Reason = "ITEM_SOLD"
	ReasonAlreadySold        Reason = "ALREADY_SOLD"
	ReasonNoBidsYet          Reason = "NO_BIDS_YET"
	ReasonBidsPlaced         Reason = "BIDS_PLACED"
	ReasonNotOwner           Reason = "NOT_OWNER"
	ReasonItemNotSold        Reason = "ITEM_NOT_SOLD"
	ReasonPaymentAlreadyPaid Reason = "PAYMENT_ALREADY_PAID"
	ReasonPaymentFailed      Reason = "PAYMENT_FAILED"
	ReasonItemNotFound       Reason = "ITEM_NOT_FOUND"
	ReasonSellerNotFound     Reason = "SELLER_NOT_FOUND"
	ReasonBuyerNotFound      Reason = "BUYER_NOT_FOUND"
	ReasonUserNotFound       Reason = "USER_NOT_FOUND"
	ReasonPaymentNotFound    Reason = "PAYMENT_NOT_FOUND"
	ReasonInvalidIdentifier  Reason = "INVALID_IDENTIFIER"
	ReasonInvalidSpec        Reason = "INVALID_SPEC"
	ReasonInvalidAmount      Reason = "INVALID_AMOUNT"
	ReasonInvalidEntityKind  Reason = "INVALID_ENTITY_KIND"
	ReasonInvalidPayload     Reason = "INVALID_PAYLOAD"
	ReasonDuplicate          Reason = "DUPLICATE"
	ReasonUnauthorized       Reason = "UNAUTHORIZED"
	ReasonForbidden          Reason = "FORBIDDEN"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, reason Reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

// WrapError wraps an existing error with a domain classification. The reason
// is inherited from err when err is itself a domain error.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Reason:  ReasonOf(err),
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrItemNotFound    = NewError(ErrCodeNotFound, ReasonItemNotFound, "item not found")
	ErrSellerNotFound  = NewError(ErrCodeNotFound, ReasonSellerNotFound, "seller not found")
	ErrBuyerNotFound   = NewError(ErrCodeNotFound, ReasonBuyerNotFound, "buyer not found")
	ErrUserNotFound    = NewError(ErrCodeNotFound, ReasonUserNotFound, "user not found")
	ErrPaymentNotFound = NewError(ErrCodeNotFound, ReasonPaymentNotFound, "payment not found")

	ErrBidTooLow          = NewError(ErrCodeConflict, ReasonBidTooLow, "bid must be greater than the current price")
	ErrAuctionNotLive     = NewError(ErrCodeConflict, ReasonAuctionNotLive, "auction is not live")
	ErrItemSold           = NewError(ErrCodeConflict, ReasonItemSold, "item already sold")
	ErrAlreadySold        = NewError(ErrCodeConflict, ReasonAlreadySold, "item has already been sold")
	ErrNoBidsYet          = NewError(ErrCodeConflict, ReasonNoBidsYet, "no bidder found, cannot sell item")
	ErrBidsPlaced         = NewError(ErrCodeConflict, ReasonBidsPlaced, "item already has bids, listing is locked")
	ErrItemNotSold        = NewError(ErrCodeConflict, ReasonItemNotSold, "item has not been sold")
	ErrPaymentAlreadyPaid = NewError(ErrCodeConflict, ReasonPaymentAlreadyPaid, "item already paid")
	ErrPaymentFailed      = NewError(ErrCodeConflict, ReasonPaymentFailed, "payment already failed")
	ErrDuplicate          = NewError(ErrCodeConflict, ReasonDuplicate, "record already exists")

	ErrNotOwner     = NewError(ErrCodeForbidden, ReasonNotOwner, "item does not belong to seller")
	ErrUnauthorized = NewError(ErrCodeUnauthorized, ReasonUnauthorized, "unauthorized")
	ErrForbidden    = NewError(ErrCodeForbidden, ReasonForbidden, "forbidden")

	ErrInvalidIdentifier = NewError(ErrCodeInvalid, ReasonInvalidIdentifier, "invalid id format")
	ErrInvalidSpec       = NewError(ErrCodeInvalid, ReasonInvalidSpec, "invalid item spec")
	ErrInvalidAmount     = NewError(ErrCodeInvalid, ReasonInvalidAmount, "invalid amount")
	ErrInvalidEntityKind = NewError(ErrCodeInvalid, ReasonInvalidEntityKind, "invalid entity kind")
	ErrInvalidPayload    = NewError(ErrCodeInvalid, ReasonInvalidPayload, "invalid payload")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// ReasonOf returns the reason of the outermost domain error in the chain, or
// an empty reason for non-domain errors.
func ReasonOf(err error) Reason {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Reason
	}
	return ""
}

// Detail narrows a sentinel with a descriptive message while keeping its code
// and reason, so errors.Is still matches the sentinel.
func Detail(sentinel *Error, message string) *Error {
	return &Error{
		Code:    sentinel.Code,
		Reason:  sentinel.Reason,
		Message: message,
		Err:     sentinel,
	}
}
