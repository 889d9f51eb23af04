package cart

import (
	"github.com/bookstore/storefront/internal/domain/shared"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

// Event type constants
const (
	EventTypeCartChanged        = "CartChanged"
	EventTypeCartMutationFailed = "CartMutationFailed"
	EventTypeCartLoaded         = "CartLoaded"
)

// Operation names a cart command
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationUpdate Operation = "update"
	OperationRemove Operation = "remove"
	OperationClear  Operation = "clear"
	OperationLoad   Operation = "load"
)

// ChangeReason says why the live cart changed
type ChangeReason string

const (
	ReasonMutation ChangeReason = "mutation"
	ReasonRollback ChangeReason = "rollback"
	ReasonLoad     ChangeReason = "load"
	ReasonSession  ChangeReason = "session"
	ReasonRemote   ChangeReason = "remote_ack"
)

// LoadSource says where a load took its contents from
type LoadSource string

const (
	SourceLocal    LoadSource = "local"
	SourceRemote   LoadSource = "remote"
	SourceFallback LoadSource = "fallback"
)

// CartChangedEvent carries the new immutable cart after every change
type CartChangedEvent struct {
	shared.BaseDomainEvent
	Reason     ChangeReason      `json:"reason"`
	Phase      Phase             `json:"phase"`
	Cart       State             `json:"cart"`
	TotalItems int               `json:"total_items"`
	TotalPrice valueobject.Money `json:"total_price"`
}

// NewCartChangedEvent creates a new CartChangedEvent
func NewCartChangedEvent(reason ChangeReason, phase Phase, state State) *CartChangedEvent {
	return &CartChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartChanged),
		Reason:          reason,
		Phase:           phase,
		Cart:            state,
		TotalItems:      state.TotalItems(),
		TotalPrice:      state.TotalPrice(),
	}
}

// CartMutationFailedEvent is the user-facing notification for a failed
// remote call
type CartMutationFailedEvent struct {
	shared.BaseDomainEvent
	Operation  Operation   `json:"operation"`
	ProductID  string      `json:"product_id,omitempty"`
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	RolledBack bool        `json:"rolled_back"`
}

// NewCartMutationFailedEvent creates a new CartMutationFailedEvent
func NewCartMutationFailedEvent(op Operation, productID string, err error, rolledBack bool) *CartMutationFailedEvent {
	kind := Classify(err)
	return &CartMutationFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartMutationFailed),
		Operation:       op,
		ProductID:       productID,
		Kind:            kind,
		Message:         userMessage(kind),
		RolledBack:      rolledBack,
	}
}

// CartLoadedEvent is raised when a load finishes and its result was applied
type CartLoadedEvent struct {
	shared.BaseDomainEvent
	Source     LoadSource `json:"source"`
	Items      int        `json:"items"`
	Enrichment int        `json:"enrichment_failures"`
}

// NewCartLoadedEvent creates a new CartLoadedEvent
func NewCartLoadedEvent(source LoadSource, items, enrichmentFailures int) *CartLoadedEvent {
	return &CartLoadedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartLoaded),
		Source:          source,
		Items:           items,
		Enrichment:      enrichmentFailures,
	}
}

func userMessage(kind FailureKind) string {
	switch kind {
	case FailureAuthorizationExpired:
		return ErrAuthorizationExpired.Message
	case FailureValidationRejected:
		return ErrValidationRejected.Message
	default:
		return ErrNetworkFailure.Message
	}
}
