package billing

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that map failures onto a transport,
// e.g. HTTP status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindMalformedID
	KindNotFound
	KindConflict
	KindInsufficientFunds
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindMalformedID:
		return "malformed_id"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is the error type returned by billing and affiliate operations.
// Code is a stable snake_case identifier suitable for API responses.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Code, so wrapped copies of a sentinel
// still satisfy errors.Is(err, ErrX).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a sentinel-style error.
func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap returns a copy of sentinel carrying cause.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: sentinel.Message, Err: cause}
}

// Describe returns a copy of sentinel with a more specific message.
func Describe(sentinel *Error, message string) *Error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: message}
}

// KindOf reports the Kind of err, or KindInternal if err carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrInvalidSignature   = NewError(KindAuthentication, "invalid_signature", "notification signature mismatch")
	ErrMalformedOrderID   = NewError(KindMalformedID, "malformed_order_id", "order id is malformed")
	ErrInvalidRequest     = NewError(KindValidation, "invalid_request", "request is invalid")
	ErrInvalidPlan        = NewError(KindValidation, "invalid_plan", "plan cannot be purchased")
	ErrInvalidReferral    = NewError(KindValidation, "invalid_referral_code", "referral code is invalid or inactive")
	ErrSelfReferral       = NewError(KindValidation, "self_referral", "own referral code cannot be used")
	ErrVoucherUnavailable = NewError(KindValidation, "voucher_unavailable", "voucher is invalid, expired or fully used")
	ErrNonPositiveAmount  = NewError(KindValidation, "non_positive_amount", "discounts leave nothing to pay")
	ErrPaymentNotFound    = NewError(KindNotFound, "payment_not_found", "payment not found")
	ErrUserNotFound       = NewError(KindNotFound, "user_not_found", "user not found")
	ErrDuplicateOrder     = NewError(KindConflict, "duplicate_order", "order already exists")
	ErrDuplicateVoucher   = NewError(KindConflict, "duplicate_voucher", "voucher code already exists")
	ErrGatewayUnavailable = NewError(KindUpstream, "gateway_unavailable", "payment gateway request failed")
)
