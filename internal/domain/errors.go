package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"
	EUNAUTHORIZED = "unauthorized"
	EPAYMENT      = "payment" // quota exhausted, tier too low, or membership lapsed
	ENOTFOUND     = "not_found"
	ERATELIMIT    = "rate_limit"
	EINTERNAL     = "internal"
)

// internalMessage replaces the message of every EINTERNAL error shown to a
// caller.
const internalMessage = "An internal error occurred. Please try again later."

// Error carries a machine code, the failing operation and a message that
// is safe to show the caller.
type Error struct {
	Code    string
	Op      string // e.g. "usage.track"
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code of the first *Error in the chain, or EINTERNAL
// if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the caller-facing message. Internal and foreign
// errors collapse to a generic message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	return internalMessage
}

// ErrorOp returns the operation of the first *Error in the chain, if any.
func ErrorOp(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

func NotFound(op, resource, id string) *Error {
	return &Error{Code: ENOTFOUND, Op: op, Message: fmt.Sprintf("%s with ID %q not found", resource, id)}
}

func Invalid(op, message string) *Error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

func Unauthorized(op, message string) *Error {
	return &Error{Code: EUNAUTHORIZED, Op: op, Message: message}
}

// Internal wraps err; its text never reaches the caller.
func Internal(err error, op, message string) *Error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}

func RateLimit(op string) *Error {
	return &Error{Code: ERATELIMIT, Op: op, Message: "Too many requests. Please try again later."}
}

// QuotaExceeded creates an upgrade error for an exhausted free quota.
// The message is shown to the user, so it reads as a call to action.
func QuotaExceeded(op string, used, limit int64) *Error {
	return &Error{
		Code:    EPAYMENT,
		Op:      op,
		Message: fmt.Sprintf("You've used %d of %d free uses. Upgrade your membership to keep going.", used, limit),
	}
}

// UpgradeRequired creates an upgrade error for content above the caller's tier.
func UpgradeRequired(op string, required Tier) *Error {
	return &Error{
		Code:    EPAYMENT,
		Op:      op,
		Message: fmt.Sprintf("This content is available to %s members. Upgrade to unlock it.", required.DisplayName()),
	}
}

// MembershipExpired creates an upgrade error for a paid tier whose
// membership is no longer active.
func MembershipExpired(op string) *Error {
	return &Error{Code: EPAYMENT, Op: op, Message: "Your membership has expired. Renew to regain access."}
}
