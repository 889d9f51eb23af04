package remote

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

// flexID accepts both JSON numbers and strings; the backend is not
// consistent about identifier types.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type cartItemDTO struct {
	BookID        flexID   `json:"bookId"`
	BookTitle     string   `json:"bookTitle"`
	AuthorName    string   `json:"authorName"`
	PublisherName string   `json:"publisherName"`
	Price         *float64 `json:"price"`
	Quantity      int      `json:"quantity"`
	Subtotal      *float64 `json:"subtotal"`
	Images        string   `json:"images"`
	Format        string   `json:"format"`
	StockQuantity int      `json:"stockQuantity"`
}

type cartDTO struct {
	CartID     flexID        `json:"cartId"`
	UserID     flexID        `json:"userId"`
	Items      []cartItemDTO `json:"items"`
	TotalPrice *float64      `json:"totalPrice"`
	TotalItems int           `json:"totalItems"`
}

type addItemRequest struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type publisherDTO struct {
	Name          string `json:"name"`
	PublisherName string `json:"publisherName"`
}

type bookDTO struct {
	BookID        flexID        `json:"bookId"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	AuthorName    string        `json:"authorName"`
	Publisher     *publisherDTO `json:"publisher"`
	Price         *float64      `json:"price"`
	StockQuantity int           `json:"stockQuantity"`
	Format        string        `json:"format"`
	ImageURL      string        `json:"imageUrl"`
}

type orderDetailDTO struct {
	BookID   int `json:"bookId"`
	Quantity int `json:"quantity"`
}

type createOrderRequest struct {
	AddressID       *int             `json:"addressId,omitempty"`
	ShippingAddress string           `json:"shippingAddress,omitempty"`
	CustomerName    string           `json:"customerName,omitempty"`
	CustomerPhone   string           `json:"customerPhone,omitempty"`
	PromoCode       string           `json:"promoCode,omitempty"`
	PaymentMethod   string           `json:"paymentMethod"`
	Note            string           `json:"note,omitempty"`
	OrderDetails    []orderDetailDTO `json:"orderDetails"`
}

type orderDTO struct {
	ID          flexID   `json:"id"`
	TotalAmount *float64 `json:"totalAmount"`
	Status      string   `json:"status"`
}

func (c *Client) money(v *float64) valueobject.Money {
	if v == nil {
		return valueobject.Zero(c.currency)
	}
	m, err := valueobject.NewMoney(decimal.NewFromFloat(*v), c.currency)
	if err != nil {
		return valueobject.Zero(c.currency)
	}
	return m
}

func atoiID(id string) (int, bool) {
	n, err := strconv.Atoi(id)
	return n, err == nil
}
