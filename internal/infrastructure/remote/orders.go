package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bookstore/storefront/internal/domain/order"
)

// OrderClient places orders with the order service
type OrderClient struct {
	client *Client
}

// NewOrderClient creates an order client over client
func NewOrderClient(client *Client) *OrderClient {
	return &OrderClient{client: client}
}

// CreateOrder posts req to the order service. The backend prices the order
// itself; only product IDs and quantities are sent.
func (o *OrderClient) CreateOrder(ctx context.Context, req order.Request) (order.Confirmation, error) {
	body := createOrderRequest{
		ShippingAddress: req.Details.ShippingAddress,
		CustomerName:    req.Details.CustomerName,
		CustomerPhone:   req.Details.CustomerPhone,
		PromoCode:       req.Details.PromoID,
		PaymentMethod:   string(req.Details.PaymentMethod),
		Note:            req.Details.Note,
		OrderDetails:    make([]orderDetailDTO, 0, len(req.Lines)),
	}
	if req.Details.AddressID != "" {
		id, ok := atoiID(req.Details.AddressID)
		if !ok {
			return order.Confirmation{}, order.ErrInvalidCheckout.WithMessage(fmt.Sprintf("Address ID %q is not numeric", req.Details.AddressID))
		}
		body.AddressID = &id
	}
	for _, line := range req.Lines {
		id, ok := atoiID(line.ProductID)
		if !ok {
			return order.Confirmation{}, order.ErrInvalidCheckout.WithMessage(fmt.Sprintf("Product ID %q is not numeric", line.ProductID))
		}
		body.OrderDetails = append(body.OrderDetails, orderDetailDTO{BookID: id, Quantity: line.Quantity})
	}

	var dto orderDTO
	if err := o.client.do(ctx, "orders.create", http.MethodPost, "/orders", body, &dto); err != nil {
		return order.Confirmation{}, err
	}

	total := req.Total
	if dto.TotalAmount != nil {
		total = o.client.money(dto.TotalAmount)
	}
	return order.Confirmation{
		OrderID: string(dto.ID),
		Total:   total,
		Status:  dto.Status,
	}, nil
}

var _ order.Creator = (*OrderClient)(nil)
