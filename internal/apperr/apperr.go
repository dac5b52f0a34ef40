// Package apperr defines the error kinds returned by reservation and pickup operations.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	KindUnknown            Kind = "UNKNOWN"
	KindCapacityExceeded   Kind = "CAPACITY_EXCEEDED"
	KindReservationExpired Kind = "RESERVATION_EXPIRED"
	KindInvalidCredential  Kind = "INVALID_CREDENTIAL"
	KindItemNotActionable  Kind = "ITEM_NOT_ACTIONABLE"
	KindStorageFailure     Kind = "STORAGE_FAILURE"
	KindNotFound           Kind = "NOT_FOUND"
	KindCampaignClosed     Kind = "CAMPAIGN_CLOSED"
	KindInvalidArgument    Kind = "INVALID_ARGUMENT"
)

// Error carries a kind, the failing operation and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// Sentinels for errors.Is comparisons.
var (
	ErrCapacityExceeded   = &Error{Kind: KindCapacityExceeded}
	ErrReservationExpired = &Error{Kind: KindReservationExpired}
	ErrInvalidCredential  = &Error{Kind: KindInvalidCredential}
	ErrItemNotActionable  = &Error{Kind: KindItemNotActionable}
	ErrStorageFailure     = &Error{Kind: KindStorageFailure}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrCampaignClosed     = &Error{Kind: KindCampaignClosed}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
)

// E builds an *Error.
func E(op string, kind Kind, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Storage wraps an underlying read/write failure with operation context.
// An error that already carries a kind is returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorageFailure, Op: op, Err: err}
}

// KindOf extracts the kind from any error. Returns KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
