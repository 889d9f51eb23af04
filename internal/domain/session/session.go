// Package session describes who is using the storefront and how that changes.
package session

import (
	"context"

	"github.com/bookstore/storefront/internal/domain/shared"
)

// Identity is the current shopper as far as the client knows
type Identity struct {
	SignedIn bool   `json:"signed_in"`
	UserID   string `json:"user_id,omitempty"`
}

// Anonymous returns the signed-out identity
func Anonymous() Identity {
	return Identity{}
}

// SignedInAs returns the identity of a signed-in user
func SignedInAs(userID string) Identity {
	return Identity{SignedIn: true, UserID: userID}
}

// Reason says what caused a transition
type Reason string

const (
	ReasonLogin   Reason = "login"
	ReasonLogout  Reason = "logout"
	ReasonExpired Reason = "expired"
)

// Transition is one change of identity
type Transition struct {
	From   Identity `json:"from"`
	To     Identity `json:"to"`
	Reason Reason   `json:"reason"`
}

// Observer exposes the current identity and its transitions. Every
// transition is delivered to each callback exactly once, in order.
type Observer interface {
	Current() Identity
	// OnTransition registers callback and returns a function that removes it
	OnTransition(callback func(ctx context.Context, t Transition)) (unsubscribe func())
}

// Expirer forces the session to signed-out when the remote reports expired
// credentials
type Expirer interface {
	Expire(ctx context.Context) error
}

// EventTypeSessionTransitioned is published for every transition
const EventTypeSessionTransitioned = "SessionTransitioned"

// TransitionedEvent carries a Transition on the event bus
type TransitionedEvent struct {
	shared.BaseDomainEvent
	Transition Transition `json:"transition"`
}

// NewTransitionedEvent creates a new TransitionedEvent
func NewTransitionedEvent(t Transition) *TransitionedEvent {
	return &TransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionTransitioned),
		Transition:      t,
	}
}

// Session errors
var (
	ErrInvalidCredential = shared.NewDomainError("INVALID_CREDENTIAL", "Credential is malformed or expired")
)
