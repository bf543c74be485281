package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. Handlers map kinds to HTTP statuses and
// clients switch on the code field of the envelope.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindConflict            Kind = "conflict"
	KindNotFound            Kind = "not_found"
	KindInsufficientPayment Kind = "insufficient_payment"
	KindIncompletePayment   Kind = "incomplete_payment"
	KindSessionClosed       Kind = "session_closed"
	KindEmptyCart           Kind = "empty_cart"
	KindPaymentIncomplete   Kind = "payment_incomplete"
	KindPersistence         Kind = "persistence"
	KindUnauthorized        Kind = "unauthorized"
)

// Error is a domain failure with a kind, a user-facing message and an
// optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return string(e.Kind) + ": " + e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInsufficientPayment = &Error{Kind: KindInsufficientPayment}
	ErrIncompletePayment   = &Error{Kind: KindIncompletePayment}
	ErrSessionClosed       = &Error{Kind: KindSessionClosed}
	ErrEmptyCart           = &Error{Kind: KindEmptyCart}
	ErrPaymentIncomplete   = &Error{Kind: KindPaymentIncomplete}
	ErrPersistence         = &Error{Kind: KindPersistence}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
)

func newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return newf(KindValidation, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newf(KindConflict, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newf(KindNotFound, format, args...)
}

func InsufficientPayment(format string, args ...interface{}) error {
	return newf(KindInsufficientPayment, format, args...)
}

func IncompletePayment(format string, args ...interface{}) error {
	return newf(KindIncompletePayment, format, args...)
}

func SessionClosed(format string, args ...interface{}) error {
	return newf(KindSessionClosed, format, args...)
}

func EmptyCart(format string, args ...interface{}) error {
	return newf(KindEmptyCart, format, args...)
}

func PaymentIncomplete(format string, args ...interface{}) error {
	return newf(KindPaymentIncomplete, format, args...)
}

func Unauthorized(format string, args ...interface{}) error {
	return newf(KindUnauthorized, format, args...)
}

// Persistence wraps a database or network failure.
func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Msg: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain. Unclassified
// errors are treated as persistence failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict, KindSessionClosed:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientPayment, KindIncompletePayment, KindPaymentIncomplete, KindEmptyCart:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show a user. Persistence failures get a
// generic retry prompt.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindPersistence {
		if e.Msg != "" {
			return e.Msg
		}
		return string(e.Kind)
	}
	return "temporary error, please retry"
}
