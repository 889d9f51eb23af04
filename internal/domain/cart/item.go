package cart

import (
	"strings"

	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

// ProductSummary is the display snapshot of a product held in the cart.
// It is captured when the item is added or enriched and never re-validated.
type ProductSummary struct {
	ProductID     string            `json:"productId"`
	Title         string            `json:"title"`
	Author        string            `json:"author"`
	Publisher     string            `json:"publisher,omitempty"`
	Format        string            `json:"format,omitempty"`
	Price         valueobject.Money `json:"price"`
	ImageURL      string            `json:"imageUrl,omitempty"`
	StockQuantity int               `json:"stockQuantity,omitempty"`
}

// Validate checks the fields the cart relies on
func (p ProductSummary) Validate() error {
	if strings.TrimSpace(p.ProductID) == "" {
		return ErrInvalidProduct
	}
	if p.Price.IsNegative() {
		return ErrInvalidProduct.WithMessage("Product price cannot be negative")
	}
	return nil
}

// CartItem is one line of the cart
type CartItem struct {
	Product  ProductSummary `json:"product"`
	Quantity int            `json:"quantity"`
	// RemoteLineID is empty while the line is only known locally
	RemoteLineID string `json:"remoteLineId,omitempty"`
}

// ProductID returns the key of the line
func (i CartItem) ProductID() string {
	return i.Product.ProductID
}

// Subtotal returns price times quantity
func (i CartItem) Subtotal() valueobject.Money {
	return i.Product.Price.MultiplyByInt(int64(i.Quantity))
}

// LineRef returns the identifier to use for remote line operations,
// falling back to the product ID for lines the remote never acknowledged.
func (i CartItem) LineRef() string {
	if i.RemoteLineID != "" {
		return i.RemoteLineID
	}
	return i.Product.ProductID
}
