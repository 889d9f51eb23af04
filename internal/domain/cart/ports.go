package cart

import (
	"context"

	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

// LocalStore persists the cart on the device under a single fixed key.
// Snapshots never expire and are overwritten wholesale.
type LocalStore interface {
	// Load returns the stored snapshot; found is false when none exists
	Load(ctx context.Context) (state State, found bool, err error)
	// Save overwrites the stored snapshot
	Save(ctx context.Context, state State) error
}

// RemoteLine is one line as the remote cart store reports it
type RemoteLine struct {
	LineID        string
	ProductID     string
	Quantity      int
	Title         string
	Author        string
	Publisher     string
	Format        string
	ImageURL      string
	Price         valueobject.Money
	StockQuantity int
}

// RemoteCart is the authoritative cart of the signed-in user
type RemoteCart struct {
	CartID string
	Lines  []RemoteLine
}

// Line returns the line for productID
func (c RemoteCart) Line(productID string) (RemoteLine, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return RemoteLine{}, false
}

// RemoteGateway is the per-user remote cart store. Failures wrap
// ErrNetworkFailure, ErrAuthorizationExpired or ErrValidationRejected.
// Implementations do not retry.
type RemoteGateway interface {
	Fetch(ctx context.Context) (RemoteCart, error)
	// Add returns the remote cart after the add
	Add(ctx context.Context, productID string, quantity int) (RemoteCart, error)
	Update(ctx context.Context, lineID string, quantity int) error
	Remove(ctx context.Context, lineID string) error
	Clear(ctx context.Context) error
}

// Catalog resolves display fields for a product
type Catalog interface {
	FetchProductDisplay(ctx context.Context, productID string) (ProductSummary, error)
}
