package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// ErrCodeTooManyRequests is used when a connection limit is reached
const ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"

// Session error codes
const (
	// ErrCodeUnauthorized is used when the shopper is not signed in
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeTokenExpired is used when the backend reports expired credentials
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when a submitted credential cannot be used
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Cart error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
	ErrCodeCartLoading   = "ERR_CART_LOADING"
	ErrCodeEmptyCart     = "ERR_EMPTY_CART"
	ErrCodeOrderRejected = "ERR_ORDER_REJECTED"
)

// Upstream error codes
const (
	// ErrCodeUpstreamUnavailable is used when the bookstore backend could not be reached
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	// ErrCodeUpstreamRejected is used when the bookstore backend refused a change
	ErrCodeUpstreamRejected = "ERR_UPSTREAM_REJECTED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	ErrCodeTooManyRequests: http.StatusTooManyRequests,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
	ErrCodeCartLoading:   http.StatusConflict,
	ErrCodeEmptyCart:     http.StatusUnprocessableEntity,
	ErrCodeOrderRejected: http.StatusUnprocessableEntity,

	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeUpstreamRejected:    http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"UNAUTHORIZED":          ErrCodeUnauthorized,
	"SIGN_IN_REQUIRED":      ErrCodeUnauthorized,
	"CART_LOADING":          ErrCodeCartLoading,
	"INVALID_QUANTITY":      ErrCodeInvalidInput,
	"INVALID_PRODUCT":       ErrCodeInvalidInput,
	"ITEM_NOT_IN_CART":      ErrCodeNotFound,
	"EMPTY_CART":            ErrCodeEmptyCart,
	"NETWORK_FAILURE":       ErrCodeUpstreamUnavailable,
	"AUTHORIZATION_EXPIRED": ErrCodeTokenExpired,
	"VALIDATION_REJECTED":   ErrCodeUpstreamRejected,
	"INVALID_CHECKOUT":      ErrCodeValidation,
	"ORDER_REJECTED":        ErrCodeOrderRejected,
	"INVALID_CREDENTIAL":    ErrCodeTokenInvalid,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown pass through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
