package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/shared"
)

// Backend error codes with special meaning on the client
const (
	CodeUnauthenticated = 1006
	CodeTokenExpired    = 1012
	CodeInvalidToken    = 1013
	CodeOutOfStock      = 2010
	CodeInsufficient    = 2011
	CodeCartNotFound    = 3001
	CodeCartItemMissing = 3002
	CodeCartIsEmpty     = 3003
)

// ErrResponseTooLarge reports a response body over the configured cap
var ErrResponseTooLarge = errors.New("response too large")

// Error is a failed call to the bookstore API
type Error struct {
	Op      string
	Status  int // 0 when no response was received
	Code    int // backend error code from the envelope, 0 if absent
	Message string
	kind    *shared.DomainError
	cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.kind.Message, e.cause)
	case e.Message != "":
		return fmt.Sprintf("%s: HTTP %d (code %d): %s", e.Op, e.Status, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	}
}

// Unwrap exposes both the cart failure kind and the transport cause
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Kind returns the cart failure sentinel this error maps to
func (e *Error) Kind() *shared.DomainError {
	return e.kind
}

func transportError(op string, cause error) *Error {
	return &Error{Op: op, kind: cart.ErrNetworkFailure, cause: cause}
}

func invalidResponse(op string, status int, cause error) *Error {
	return &Error{Op: op, Status: status, Message: "invalid response body", kind: cart.ErrNetworkFailure, cause: cause}
}

func tooLarge(op string, status int, limit int64) *Error {
	return &Error{
		Op:      op,
		Status:  status,
		Message: fmt.Sprintf("response body exceeds %d bytes", limit),
		kind:    cart.ErrNetworkFailure,
		cause:   ErrResponseTooLarge,
	}
}

// statusError classifies a non-2xx response
func statusError(op string, status, code int, message string) *Error {
	return &Error{Op: op, Status: status, Code: code, Message: message, kind: classify(status, code)}
}

func classify(status, code int) *shared.DomainError {
	switch code {
	case CodeUnauthenticated, CodeTokenExpired, CodeInvalidToken:
		return cart.ErrAuthorizationExpired
	}
	switch {
	case status == http.StatusUnauthorized:
		return cart.ErrAuthorizationExpired
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return cart.ErrNetworkFailure
	case status >= 400 && status < 500:
		return cart.ErrValidationRejected
	default:
		return cart.ErrNetworkFailure
	}
}
