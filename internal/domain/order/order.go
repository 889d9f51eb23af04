// Package order describes the hand-off of a cart to the order service.
package order

import (
	"context"

	"github.com/bookstore/storefront/internal/domain/shared"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

// PaymentMethod is how the shopper pays
type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentBanking PaymentMethod = "BANKING"
)

// Line is one ordered product
type Line struct {
	LineID    string            `json:"line_id"`
	ProductID string            `json:"product_id"`
	Title     string            `json:"title"`
	Author    string            `json:"author"`
	ImageURL  string            `json:"image_url,omitempty"`
	UnitPrice valueobject.Money `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	Subtotal  valueobject.Money `json:"subtotal"`
}

// Details are the shopper-entered checkout fields
type Details struct {
	PaymentMethod   PaymentMethod `json:"payment_method" validate:"required,oneof=COD BANKING"`
	AddressID       string        `json:"address_id" validate:"required_without=ShippingAddress,max=64"`
	ShippingAddress string        `json:"shipping_address" validate:"required_without=AddressID,max=500"`
	CustomerName    string        `json:"customer_name" validate:"omitempty,max=100"`
	CustomerPhone   string        `json:"customer_phone" validate:"omitempty,e164|numeric"`
	PromoID         string        `json:"promo_id" validate:"omitempty,max=64"`
	Note            string        `json:"note" validate:"omitempty,max=1000"`
}

// Request is everything the order service needs to create an order
type Request struct {
	Lines   []Line            `json:"lines" validate:"required,min=1,dive"`
	Total   valueobject.Money `json:"total"`
	Details Details           `json:"details"`
}

// Confirmation is what the order service returns
type Confirmation struct {
	OrderID     string            `json:"order_id"`
	OrderNumber string            `json:"order_number,omitempty"`
	Total       valueobject.Money `json:"total"`
	Status      string            `json:"status,omitempty"`
}

// Creator places orders with the external order service
type Creator interface {
	CreateOrder(ctx context.Context, req Request) (Confirmation, error)
}

// Order errors
var (
	ErrInvalidCheckout = shared.NewDomainError("INVALID_CHECKOUT", "Checkout details are invalid")
	ErrOrderRejected   = shared.NewDomainError("ORDER_REJECTED", "The order service rejected the order")
)
