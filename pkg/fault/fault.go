// Package fault is the error taxonomy for contract calls.
//
// Every rejected call surfaces exactly one Kind. Callers branch with
// errors.Is against the sentinels or with KindOf; transports map a Kind to a
// namespaced code and an HTTP status.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies why a call was rejected.
type Kind string

const (
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindInvalidArgument   Kind = "INVALID_ARGUMENT"
	KindAlreadyRegistered Kind = "ALREADY_REGISTERED"
	KindAlreadyVoted      Kind = "ALREADY_VOTED"
	KindNotFound          Kind = "NOT_FOUND"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindNoRecipients      Kind = "NO_RECIPIENTS"
	// KindConditionNotMet is returned when the transfer policy expression
	// evaluates to false.
	KindConditionNotMet Kind = "CONDITION_NOT_MET"
	// KindInternal covers infrastructure failures such as a journal append.
	// The call is still rejected atomically.
	KindInternal Kind = "INTERNAL"
)

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrAlreadyRegistered = &Error{Kind: KindAlreadyRegistered}
	ErrAlreadyVoted      = &Error{Kind: KindAlreadyVoted}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrNoRecipients      = &Error{Kind: KindNoRecipients}
	ErrConditionNotMet   = &Error{Kind: KindConditionNotMet}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Error is a rejected call.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

// New builds an Error for op.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that keeps cause in the chain.
func Wrap(kind Kind, op string, cause error) *Error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &Error{Kind: kind, Op: op, Detail: detail, Err: cause}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Detail)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, KindInternal for any other non-nil
// error, and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Code returns the namespaced error code, e.g. CHARTER/AUTH/UNAUTHORIZED.
func (k Kind) Code() string {
	return "CHARTER/" + k.category() + "/" + string(k)
}

func (k Kind) category() string {
	switch k {
	case KindUnauthorized:
		return "AUTH"
	case KindInvalidArgument:
		return "VALIDATION"
	case KindAlreadyRegistered, KindAlreadyVoted:
		return "CONFLICT"
	case KindNotFound:
		return "RESOURCE"
	case KindInsufficientFunds, KindNoRecipients:
		return "TREASURY"
	case KindConditionNotMet:
		return "POLICY"
	default:
		return "CORE"
	}
}

// HTTPStatus maps a Kind to a response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized:
		return http.StatusForbidden
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindAlreadyRegistered, KindAlreadyVoted:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientFunds, KindNoRecipients, KindConditionNotMet:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Classification is the retry behaviour of a rejected call.
type Classification string

const (
	// Retryable failures may succeed unchanged, e.g. a journal outage.
	Retryable Classification = "RETRYABLE"
	// NonRetryable failures fail the same way until state changes.
	NonRetryable Classification = "NON_RETRYABLE"
)

// Classify reports whether a rejected call may be retried as-is.
func (k Kind) Classify() Classification {
	if k == KindInternal {
		return Retryable
	}
	return NonRetryable
}
