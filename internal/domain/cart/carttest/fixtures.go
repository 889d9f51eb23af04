// Package carttest provides product fixtures for cart tests.
package carttest

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

// Faker generates reproducible products for a given seed
type Faker struct {
	f *gofakeit.Faker
}

// NewFaker returns a Faker seeded with seed
func NewFaker(seed uint64) *Faker {
	return &Faker{f: gofakeit.New(seed)}
}

// Product returns a random book priced in VND
func (x *Faker) Product() cart.ProductSummary {
	return cart.ProductSummary{
		ProductID:     x.f.UUID(),
		Title:         x.f.BookTitle(),
		Author:        x.f.BookAuthor(),
		Publisher:     x.f.Company(),
		Format:        x.f.RandomString([]string{"Paperback", "Hardcover", "Ebook"}),
		Price:         valueobject.MustMoney(float64(x.f.IntRange(10, 500)*1000), valueobject.VND),
		ImageURL:      x.f.URL(),
		StockQuantity: x.f.IntRange(0, 200),
	}
}

// Products returns n distinct random books
func (x *Faker) Products(n int) []cart.ProductSummary {
	out := make([]cart.ProductSummary, n)
	for i := range out {
		out[i] = x.Product()
	}
	return out
}

// Quantity returns a random quantity in [1, max]
func (x *Faker) Quantity(max int) int {
	return x.f.IntRange(1, max)
}

// Intn returns a random int in [0, n)
func (x *Faker) Intn(n int) int {
	return x.f.IntRange(0, n-1)
}

// Book returns a deterministic product with the given ID and whole VND price
func Book(id string, price int64) cart.ProductSummary {
	return cart.ProductSummary{
		ProductID: id,
		Title:     fmt.Sprintf("Book %s", id),
		Author:    "Author " + id,
		Price:     valueobject.MustMoney(float64(price), valueobject.VND),
	}
}

// State builds a VND cart from product ID / quantity pairs, priced at 1000
// per unit, in argument order.
func State(pairs ...any) cart.State {
	s := cart.Empty(valueobject.VND)
	for i := 0; i+1 < len(pairs); i += 2 {
		id := pairs[i].(string)
		qty := pairs[i+1].(int)
		var err error
		s, err = s.Add(Book(id, 1000), qty)
		if err != nil {
			panic(err)
		}
	}
	return s
}

// Quantities flattens a cart into product ID to quantity
func Quantities(s cart.State) map[string]int {
	out := make(map[string]int, s.Len())
	for _, item := range s.Items() {
		out[item.ProductID()] = item.Quantity
	}
	return out
}

// Order returns the product IDs of s in display order
func Order(s cart.State) []string {
	out := make([]string, 0, s.Len())
	for _, item := range s.Items() {
		out = append(out, item.ProductID())
	}
	return out
}
