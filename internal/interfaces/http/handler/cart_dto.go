package handler

import (
	"github.com/shopspring/decimal"

	cartapp "github.com/bookstore/storefront/internal/application/cart"
	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/order"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
)

// ProductInput is the display snapshot the UI sends when adding a book
type ProductInput struct {
	ProductID     string          `json:"productId" binding:"required,max=64"`
	Title         string          `json:"title" binding:"max=300"`
	Author        string          `json:"author" binding:"max=200"`
	Publisher     string          `json:"publisher" binding:"max=200"`
	Format        string          `json:"format" binding:"max=50"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"imageUrl" binding:"omitempty,url"`
	StockQuantity int             `json:"stockQuantity" binding:"gte=0"`
}

// AddItemRequest adds units of a product
type AddItemRequest struct {
	Product  ProductInput `json:"product" binding:"required"`
	Quantity int          `json:"quantity" binding:"required,min=1,max=999"`
}

// UpdateItemRequest sets the quantity of a line; zero removes it
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=999"`
}

// CheckoutRequest carries the shopper-entered checkout fields
type CheckoutRequest struct {
	PaymentMethod   string `json:"paymentMethod" binding:"required,oneof=COD BANKING"`
	AddressID       string `json:"addressId" binding:"required_without=ShippingAddress,max=64"`
	ShippingAddress string `json:"shippingAddress" binding:"required_without=AddressID,max=500"`
	CustomerName    string `json:"customerName" binding:"max=100"`
	CustomerPhone   string `json:"customerPhone" binding:"omitempty,e164|numeric"`
	PromoID         string `json:"promoId" binding:"max=64"`
	Note            string `json:"note" binding:"max=1000"`
}

// LoginRequest hands the session a bearer token
type LoginRequest struct {
	Token string `json:"token" binding:"required"`
}

// CartItemResponse is one cart line
type CartItemResponse struct {
	ProductID    string            `json:"productId"`
	Title        string            `json:"title"`
	Author       string            `json:"author"`
	ImageURL     string            `json:"imageUrl,omitempty"`
	UnitPrice    valueobject.Money `json:"unitPrice"`
	Quantity     int               `json:"quantity"`
	Subtotal     valueobject.Money `json:"subtotal"`
	RemoteLineID string            `json:"remoteLineId,omitempty"`
}

// CartResponse is the live cart with its phase and totals
type CartResponse struct {
	Phase      cart.Phase         `json:"phase"`
	Items      []CartItemResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice valueobject.Money  `json:"totalPrice"`
}

// OrderResponse confirms a placed order
type OrderResponse struct {
	OrderID     string            `json:"orderId"`
	OrderNumber string            `json:"orderNumber,omitempty"`
	Status      string            `json:"status,omitempty"`
	Total       valueobject.Money `json:"total"`
}

func (p ProductInput) toSummary(currency valueobject.Currency) (cart.ProductSummary, error) {
	price, err := valueobject.NewMoney(p.Price, currency)
	if err != nil {
		return cart.ProductSummary{}, cart.ErrInvalidProduct.WithMessage(err.Error())
	}
	return cart.ProductSummary{
		ProductID:     p.ProductID,
		Title:         p.Title,
		Author:        p.Author,
		Publisher:     p.Publisher,
		Format:        p.Format,
		Price:         price,
		ImageURL:      p.ImageURL,
		StockQuantity: p.StockQuantity,
	}, nil
}

func (r CheckoutRequest) toDetails() order.Details {
	return order.Details{
		PaymentMethod:   order.PaymentMethod(r.PaymentMethod),
		AddressID:       r.AddressID,
		ShippingAddress: r.ShippingAddress,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		PromoID:         r.PromoID,
		Note:            r.Note,
	}
}

func toCartResponse(snap cartapp.Snapshot) CartResponse {
	items := make([]CartItemResponse, 0, snap.Cart.Len())
	for _, item := range snap.Cart.Items() {
		items = append(items, CartItemResponse{
			ProductID:    item.ProductID(),
			Title:        item.Product.Title,
			Author:       item.Product.Author,
			ImageURL:     item.Product.ImageURL,
			UnitPrice:    item.Product.Price,
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal(),
			RemoteLineID: item.RemoteLineID,
		})
	}
	return CartResponse{
		Phase:      snap.Phase,
		Items:      items,
		TotalItems: snap.TotalItems,
		TotalPrice: snap.TotalPrice,
	}
}

func toOrderResponse(conf order.Confirmation) OrderResponse {
	return OrderResponse{
		OrderID:     conf.OrderID,
		OrderNumber: conf.OrderNumber,
		Status:      conf.Status,
		Total:       conf.Total,
	}
}
