package apperror

import (
	"errors"
	"fmt"
)

// Kind is the error category callers branch on. HTTP status is chosen from the
// kind at the response boundary only.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindInvalidState
	KindForbidden
	KindUnauthorized
	KindNotImplemented
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotImplemented:
		return "not_implemented"
	case KindTransient:
		return "transient"
	}
	return "internal"
}

const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeForbidden      = "FORBIDDEN"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeInternal       = "INTERNAL_ERROR"
	CodeTransient      = "TRANSIENT_ERROR"
	CodeNotImplemented = "NOT_IMPLEMENTED"
	CodeInvalidState   = "INVALID_STATE"

	CodeNotAvailable         = "NOT_AVAILABLE"
	CodeSoldOut              = "SOLD_OUT"
	CodeInsufficientCapacity = "INSUFFICIENT_CAPACITY"
	CodeInsufficientSeats    = "INSUFFICIENT_SEATS"
	CodeInvalidDateRange     = "INVALID_DATE_RANGE"
	CodeInvalidTicketType    = "INVALID_TICKET_TYPE"
	CodeInvalidDeparture     = "INVALID_DEPARTURE"

	CodeBookingNotFound     = "BOOKING_NOT_FOUND"
	CodeBookingNotCompleted = "BOOKING_NOT_COMPLETED"
	CodeReviewExists        = "REVIEW_EXISTS"
	CodeInvalidRating       = "INVALID_RATING"

	CodeAlreadySaved = "ALREADY_SAVED"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func InvalidState(message string) *Error {
	return New(KindInvalidState, CodeInvalidState, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, CodeUnauthorized, message)
}

func NotImplemented(message string) *Error {
	return New(KindNotImplemented, CodeNotImplemented, message)
}

// Transient marks a failure as safe to retry: nothing was committed.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Code: CodeTransient, Message: "The service is temporarily unavailable, please retry", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "An unexpected error occurred", Err: err}
}

// As returns err as *Error, wrapping anything else as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsCode reports whether err carries the given machine-readable code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
