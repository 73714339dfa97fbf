// internal/auctionerrors/errors.go
package auctionerrors

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies an error for propagation policy: validation and business
// errors are surfaced verbatim and never retried, state conflicts may be
// retried once by the client after a fresh read, infrastructure failures are
// retryable with backoff.
type Kind string

const (
	KindUnauthorized   Kind = "unauthorized"
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindStateConflict  Kind = "state_conflict"
	KindInfrastructure Kind = "infrastructure"
)

// Error is a typed engine error. Sentinel instances below are matched with
// errors.Is via the Code field, so wrapped copies still compare equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Authentication / authorization
var (
	ErrAccountNotActive = &Error{KindUnauthorized, "ACCOUNT_NOT_ACTIVE", "account is not active"}
	ErrNotOwner         = &Error{KindUnauthorized, "NOT_OWNER", "only the seller may modify this auction"}
)

// Validation
var (
	ErrAmountNotInteger  = &Error{KindValidation, "AMOUNT_NOT_INTEGER", "bid amount must be a whole number"}
	ErrAmountNotPositive = &Error{KindValidation, "AMOUNT_NOT_POSITIVE", "bid amount must be positive"}
	ErrBidTooLow         = &Error{KindValidation, "BID_TOO_LOW", "bid amount is below the minimum bid"}
	ErrInvalidDuration   = &Error{KindValidation, "INVALID_DURATION", "auction end time is outside the allowed duration range"}
	ErrPhotoCount        = &Error{KindValidation, "PHOTO_COUNT", "auctions require between 1 and 5 photos"}
	ErrStartPriceTooLow  = &Error{KindValidation, "START_PRICE_TOO_LOW", "start price is below the allowed minimum"}
)

// Business-rule conflicts
var (
	ErrSelfBid           = &Error{KindConflict, "SELF_BID", "sellers may not bid on their own auction"}
	ErrAlreadyTopBidder  = &Error{KindConflict, "ALREADY_TOP_BIDDER", "you already hold the top bid"}
	ErrEditWindowClosed  = &Error{KindConflict, "EDIT_WINDOW_CLOSED", "the edit window for this auction has closed"}
	ErrEditAfterBids     = &Error{KindConflict, "EDIT_AFTER_BIDS", "auctions with bids can no longer be edited"}
	ErrActiveAuctionCap  = &Error{KindConflict, "ACTIVE_AUCTION_CAP", "active auction limit reached for this seller"}
	ErrContactRequired   = &Error{KindConflict, "CONTACT_REQUIRED", "high value auctions require contact information"}
	ErrDuplicateAuction  = &Error{KindConflict, "DUPLICATE_AUCTION", "an identical auction was submitted moments ago"}
	ErrAuctionNotActive  = &Error{KindStateConflict, "AUCTION_NOT_ACTIVE", "auction is no longer active"}
	ErrAuctionNotFound   = &Error{KindNotFound, "AUCTION_NOT_FOUND", "auction not found"}
	ErrStaleBid          = &Error{KindStateConflict, "STALE_BID", "auction price changed while placing the bid, please retry"}
)

// DuplicateError carries the existing auction's ID so clients can redirect
// to it instead of erroring blindly on a retried form submission.
type DuplicateError struct {
	ExistingAuctionID uuid.UUID
}

func (e *DuplicateError) Error() string {
	return ErrDuplicateAuction.Message
}

func (e *DuplicateError) Is(target error) bool {
	return ErrDuplicateAuction.Is(target)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateAuction
}

// Infra wraps a storage or connection failure. Distinct from every business
// rejection so clients know the bid may not have "lost" and can retry.
func Infra(err error) error {
	return fmt.Errorf("%w: %v", errInfra, err)
}

var errInfra = &Error{KindInfrastructure, "INFRASTRUCTURE", "internal error, safe to retry"}

// ErrInfrastructure is the sentinel infra failures match against.
var ErrInfrastructure = errInfra

// KindOf extracts the Kind from any error produced by the engine. Unknown
// errors classify as infrastructure failures.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		if _, ok := err.(*DuplicateError); ok {
			return KindConflict
		}
		err = unwrap(err)
	}
	return KindInfrastructure
}

// CodeOf extracts the stable error code, or "INTERNAL" for unknown errors.
func CodeOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		if _, ok := err.(*DuplicateError); ok {
			return ErrDuplicateAuction.Code
		}
		err = unwrap(err)
	}
	return "INTERNAL"
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
