package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers. Every kind except KindInternal is a
// deterministic outcome of the request and current data; none is retried.
type Kind string

const (
	KindValidation     Kind = "ValidationError"
	KindPastBooking    Kind = "PastBooking"
	KindNoAvailability Kind = "NoAvailability"
	KindConflict       Kind = "Conflict"
	KindNotFound       Kind = "NotFound"
	KindUnauthorized   Kind = "Unauthorized"
	KindForbidden      Kind = "Forbidden"
	KindInternal       Kind = "Internal"
)

// ErrorCode is a finer grained reason inside a kind
type ErrorCode string

const (
	CodeInvalidDateFormat   ErrorCode = "InvalidDateFormat"
	CodeInvalidTimeFormat   ErrorCode = "InvalidTimeFormat"
	CodeInvalidSlotDuration ErrorCode = "InvalidSlotDuration"
	CodeInvalidRange        ErrorCode = "InvalidRange"
	CodeInvalidWeekdays     ErrorCode = "InvalidWeekdays"
	CodeInvalidInput        ErrorCode = "InvalidInput"
	CodeBeyondHorizon       ErrorCode = "BeyondBookingHorizon"
	CodeRuleConflict        ErrorCode = "RuleConflict"
	CodeBookingConflict     ErrorCode = "BookingConflict"
	CodeSlotAlreadyDeleted  ErrorCode = "SlotAlreadyDeleted"
)

// AppError represents an application error
type AppError struct {
	Kind    Kind                   `json:"kind"`
	Code    ErrorCode              `json:"code,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind onto an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindPastBooking:
		return http.StatusBadRequest
	case KindNoAvailability, KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail returns e with one more diagnostic field set.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Error constructors

func Validation(code ErrorCode, message string, err error) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message, Err: err}
}

func BadRequest(message string, err error) *AppError {
	return Validation(CodeInvalidInput, message, err)
}

func PastBooking(message string) *AppError {
	return &AppError{Kind: KindPastBooking, Message: message}
}

func NoAvailability(message string) *AppError {
	return &AppError{Kind: KindNoAvailability, Message: message}
}

func Conflict(code ErrorCode, message string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: message}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: "unauthorized", Err: err}
}

func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As is errors.As restricted to *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}
