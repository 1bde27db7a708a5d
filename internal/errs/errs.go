// Package errs provides the coded error envelope shared by the marketplace core.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies an error category.
type Code string

const (
	// CodeNotFound indicates a missing order, sale, bid, user or shipment.
	CodeNotFound Code = "not_found"
	// CodeInvalidTransition indicates a status edge absent from the entity's transition table.
	CodeInvalidTransition Code = "invalid_state_transition"
	// CodeBidAlreadyMatched indicates a bid lost a compare-and-set race to another matcher.
	CodeBidAlreadyMatched Code = "bid_already_matched"
	// CodeBidLinked indicates a bid is already linked to the opposite side.
	CodeBidLinked Code = "bid_linked_to_counterpart"
	// CodePaymentUserMismatch indicates the payment event user does not own the order.
	CodePaymentUserMismatch Code = "payment_user_mismatch"
	// CodePaymentGateway indicates a failure of the external payment gateway.
	CodePaymentGateway Code = "payment_gateway"
	// CodeExternalTracking indicates a failure of the external carrier tracker.
	CodeExternalTracking Code = "external_tracking"
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeForbidden indicates the caller does not own the resource.
	CodeForbidden Code = "forbidden"
	// CodeConflict indicates a concurrent mutation changed the row first.
	CodeConflict Code = "conflict"
)

// Sentinel values for errors.Is comparisons. Only the code is compared.
var (
	ErrNotFound            = &E{Code: CodeNotFound}
	ErrInvalidTransition   = &E{Code: CodeInvalidTransition}
	ErrBidAlreadyMatched   = &E{Code: CodeBidAlreadyMatched}
	ErrBidLinked           = &E{Code: CodeBidLinked}
	ErrPaymentUserMismatch = &E{Code: CodePaymentUserMismatch}
	ErrPaymentGateway      = &E{Code: CodePaymentGateway}
	ErrExternalTracking    = &E{Code: CodeExternalTracking}
	ErrInvalid             = &E{Code: CodeInvalid}
	ErrForbidden           = &E{Code: CodeForbidden}
	ErrConflict            = &E{Code: CodeConflict}
)

// E is the structured error produced across the core.
type E struct {
	Code    Code
	Entity  string
	ID      string
	Message string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the code.
func New(code Code, opts ...Option) *E {
	e := &E{Code: code}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithEntity records the entity kind and id the error refers to.
func WithEntity(entity, id string) Option {
	return func(e *E) {
		e.Entity = strings.TrimSpace(entity)
		e.ID = strings.TrimSpace(id)
	}
}

// WithMessage attaches a human-readable message.
func WithMessage(format string, args ...any) Option {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return func(e *E) {
		e.Message = strings.TrimSpace(msg)
	}
}

// WithCause sets the underlying cause.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// Error implements the error interface.
func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
		if e.ID != "" {
			b.WriteString(" ")
			b.WriteString(e.ID)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *E) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target carries the same code.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// CodeOf returns the code of the first envelope in the chain, or "" when err is uncoded.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Retryable reports whether an operation that failed with err may succeed when repeated.
// Gateway failures and uncoded infrastructure errors are retryable; not-found, validation,
// ownership and integrity failures are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case "", CodePaymentGateway, CodeConflict:
		return true
	default:
		return false
	}
}

// NotFound builds a not_found error for the entity.
func NotFound(entity, id string) *E {
	return New(CodeNotFound, WithEntity(entity, id))
}

// InvalidTransition builds an invalid_state_transition error.
func InvalidTransition(machine, from, to string) *E {
	return New(CodeInvalidTransition, WithEntity(machine, ""), WithMessage("%s -> %s is not allowed", from, to))
}

// BidAlreadyMatched builds a bid_already_matched error.
func BidAlreadyMatched(entity, id string) *E {
	return New(CodeBidAlreadyMatched, WithEntity(entity, id))
}

// BidLinked builds a bid_linked_to_counterpart error.
func BidLinked(entity, id string) *E {
	return New(CodeBidLinked, WithEntity(entity, id))
}

// Invalid builds an invalid_request error.
func Invalid(format string, args ...any) *E {
	return New(CodeInvalid, WithMessage(format, args...))
}

// Forbidden builds a forbidden error for the entity.
func Forbidden(entity, id string) *E {
	return New(CodeForbidden, WithEntity(entity, id))
}

// Gateway wraps a payment gateway failure.
func Gateway(op string, err error) *E {
	return New(CodePaymentGateway, WithMessage("%s", op), WithCause(err))
}

// Tracking wraps a carrier tracker failure for the tracking number.
func Tracking(trackingNumber string, err error) *E {
	return New(CodeExternalTracking, WithEntity("tracking", trackingNumber), WithCause(err))
}
