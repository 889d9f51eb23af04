package cart

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

// State is an immutable, ordered set of cart lines keyed by product ID.
// Every operation returns a new State and leaves the receiver untouched, so a
// State can be handed to readers without copying.
//
// Invariants: product IDs are unique, quantities are positive, all prices
// share the cart currency.
type State struct {
	currency valueobject.Currency
	items    []CartItem
}

// Empty returns an empty cart in currency
func Empty(currency valueobject.Currency) State {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return State{currency: currency}
}

// FromItems builds a State from raw lines: lines for the same product are
// merged by summing quantities, lines with a non-positive quantity are
// dropped, first-seen order is kept.
func FromItems(currency valueobject.Currency, items []CartItem) (State, error) {
	s := Empty(currency)
	out := make([]CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		product, err := s.normalize(item.Product)
		if err != nil {
			return State{}, err
		}
		item.Product = product
		if idx := indexOf(out, product.ProductID); idx >= 0 {
			out[idx].Quantity += item.Quantity
			if out[idx].RemoteLineID == "" {
				out[idx].RemoteLineID = item.RemoteLineID
			}
			continue
		}
		out = append(out, item)
	}
	s.items = out
	return s, nil
}

// Currency returns the cart currency
func (s State) Currency() valueobject.Currency {
	if s.currency == "" {
		return valueobject.DefaultCurrency
	}
	return s.currency
}

// Items returns a copy of the lines in display order
func (s State) Items() []CartItem {
	return slices.Clone(s.items)
}

// Len returns the number of distinct products
func (s State) Len() int {
	return len(s.items)
}

// IsEmpty reports whether the cart has no lines
func (s State) IsEmpty() bool {
	return len(s.items) == 0
}

// Get returns the line for productID
func (s State) Get(productID string) (CartItem, bool) {
	if idx := indexOf(s.items, productID); idx >= 0 {
		return s.items[idx], true
	}
	return CartItem{}, false
}

// IndexOf returns the position of productID, or -1
func (s State) IndexOf(productID string) int {
	return indexOf(s.items, productID)
}

// Add adds quantity units of product. An existing line is incremented and
// keeps its original display snapshot.
func (s State) Add(product ProductSummary, quantity int) (State, error) {
	if quantity < 1 {
		return s, ErrInvalidQuantity
	}
	product, err := s.normalize(product)
	if err != nil {
		return s, err
	}

	items := slices.Clone(s.items)
	if idx := indexOf(items, product.ProductID); idx >= 0 {
		items[idx].Quantity += quantity
	} else {
		items = append(items, CartItem{Product: product, Quantity: quantity})
	}
	return s.with(items), nil
}

// SetQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line.
func (s State) SetQuantity(productID string, quantity int) (State, error) {
	idx := indexOf(s.items, productID)
	if idx < 0 {
		return s, ErrItemNotInCart
	}
	if quantity <= 0 {
		return s.Remove(productID), nil
	}
	items := slices.Clone(s.items)
	items[idx].Quantity = quantity
	return s.with(items), nil
}

// Remove drops the line for productID; absent products are a no-op
func (s State) Remove(productID string) State {
	idx := indexOf(s.items, productID)
	if idx < 0 {
		return s
	}
	return s.with(slices.Delete(slices.Clone(s.items), idx, idx+1))
}

// Clear returns an empty cart in the same currency
func (s State) Clear() State {
	return Empty(s.Currency())
}

// Put writes item back into the cart. An existing line for the same product
// is replaced in place; otherwise the item is inserted at index, clamped to
// the cart bounds. Items with a non-positive quantity remove the line.
func (s State) Put(item CartItem, index int) State {
	if item.Quantity <= 0 {
		return s.Remove(item.ProductID())
	}
	items := slices.Clone(s.items)
	if idx := indexOf(items, item.ProductID()); idx >= 0 {
		items[idx] = item
		return s.with(items)
	}
	index = max(0, min(index, len(items)))
	return s.with(slices.Insert(items, index, item))
}

// WithRemoteLineID records the remote identifier of a line
func (s State) WithRemoteLineID(productID, lineID string) State {
	idx := indexOf(s.items, productID)
	if idx < 0 || lineID == "" || s.items[idx].RemoteLineID == lineID {
		return s
	}
	items := slices.Clone(s.items)
	items[idx].RemoteLineID = lineID
	return s.with(items)
}

// TotalPrice returns the sum of price times quantity over all lines
func (s State) TotalPrice() valueobject.Money {
	total := valueobject.Zero(s.Currency())
	for _, item := range s.items {
		if sum, err := total.Add(item.Subtotal()); err == nil {
			total = sum
		}
	}
	return total
}

// TotalItems returns the sum of quantities over all lines
func (s State) TotalItems() int {
	n := 0
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

// Equal reports whether both carts hold the same lines in the same order
func (s State) Equal(other State) bool {
	if s.Currency() != other.Currency() || len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		a, b := s.items[i], other.items[i]
		if a.Quantity != b.Quantity || a.RemoteLineID != b.RemoteLineID {
			return false
		}
		pa, pb := a.Product, b.Product
		if !pa.Price.Equals(pb.Price) {
			return false
		}
		pa.Price, pb.Price = valueobject.Money{}, valueobject.Money{}
		if pa != pb {
			return false
		}
	}
	return true
}

type stateJSON struct {
	Currency valueobject.Currency `json:"currency"`
	Items    []CartItem           `json:"items"`
}

// MarshalJSON implements json.Marshaler
func (s State) MarshalJSON() ([]byte, error) {
	items := s.items
	if items == nil {
		items = []CartItem{}
	}
	return json.Marshal(stateJSON{Currency: s.Currency(), Items: items})
}

// UnmarshalJSON implements json.Unmarshaler and re-establishes the invariants
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	st, err := FromItems(raw.Currency, raw.Items)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s State) with(items []CartItem) State {
	return State{currency: s.Currency(), items: items}
}

// normalize gives unpriced products the cart currency and rejects prices in
// a different currency.
func (s State) normalize(p ProductSummary) (ProductSummary, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}
	switch p.Price.Currency() {
	case s.Currency():
		return p, nil
	case "":
		price, err := valueobject.NewMoney(p.Price.Amount(), s.Currency())
		if err != nil {
			return p, err
		}
		p.Price = price
		return p, nil
	default:
		return p, ErrInvalidProduct.WithMessage(fmt.Sprintf(
			"Price currency %s does not match cart currency %s", p.Price.Currency(), s.Currency()))
	}
}

func indexOf(items []CartItem, productID string) int {
	return slices.IndexFunc(items, func(it CartItem) bool {
		return it.Product.ProductID == productID
	})
}
