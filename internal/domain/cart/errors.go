package cart

import (
	"errors"

	"github.com/bookstore/storefront/internal/domain/shared"
)

// Cart errors
var (
	ErrSignInRequired       = shared.NewDomainError("SIGN_IN_REQUIRED", "Sign in to add items to your cart")
	ErrCartLoading          = shared.NewDomainError("CART_LOADING", "The cart is still loading")
	ErrInvalidQuantity      = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	ErrInvalidProduct       = shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	ErrItemNotInCart        = shared.NewDomainError("ITEM_NOT_IN_CART", "Item is not in the cart")
	ErrEmptyCart            = shared.NewDomainError("EMPTY_CART", "Cart is empty")
	ErrNetworkFailure       = shared.NewDomainError("NETWORK_FAILURE", "Could not reach the cart service")
	ErrAuthorizationExpired = shared.NewDomainError("AUTHORIZATION_EXPIRED", "Your session has expired, please sign in again")
	ErrValidationRejected   = shared.NewDomainError("VALIDATION_REJECTED", "The cart service rejected the change")
)

// FailureKind classifies why a remote cart call failed
type FailureKind string

const (
	FailureNone                 FailureKind = ""
	FailureNetwork              FailureKind = "NetworkFailure"
	FailureAuthorizationExpired FailureKind = "AuthorizationExpired"
	FailureValidationRejected   FailureKind = "ValidationRejected"
)

// Classify maps err to a FailureKind. Errors that are not one of the remote
// failure sentinels count as network failures.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrAuthorizationExpired):
		return FailureAuthorizationExpired
	case errors.Is(err, ErrValidationRejected):
		return FailureValidationRejected
	default:
		return FailureNetwork
	}
}
