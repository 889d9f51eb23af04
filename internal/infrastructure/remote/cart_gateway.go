package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bookstore/storefront/internal/domain/cart"
)

// CartGateway is the HTTP implementation of cart.RemoteGateway
type CartGateway struct {
	client *Client
}

// NewCartGateway creates a gateway over client
func NewCartGateway(client *Client) *CartGateway {
	return &CartGateway{client: client}
}

// Fetch returns the signed-in user's cart
func (g *CartGateway) Fetch(ctx context.Context) (cart.RemoteCart, error) {
	var dto cartDTO
	if err := g.client.do(ctx, "remote_cart.fetch", http.MethodGet, "/cart", nil, &dto); err != nil {
		return cart.RemoteCart{}, err
	}
	return g.toRemoteCart(dto), nil
}

// Add adds quantity units of productID and returns the resulting cart
func (g *CartGateway) Add(ctx context.Context, productID string, quantity int) (cart.RemoteCart, error) {
	var dto cartDTO
	req := addItemRequest{BookID: productID, Quantity: quantity}
	if err := g.client.do(ctx, "remote_cart.add", http.MethodPost, "/cart/items", req, &dto); err != nil {
		return cart.RemoteCart{}, err
	}
	return g.toRemoteCart(dto), nil
}

// Update sets the quantity of a line
func (g *CartGateway) Update(ctx context.Context, lineID string, quantity int) error {
	path := "/cart/items/" + url.PathEscape(lineID)
	return g.client.do(ctx, "remote_cart.update", http.MethodPut, path, updateItemRequest{Quantity: quantity}, nil)
}

// Remove deletes a line
func (g *CartGateway) Remove(ctx context.Context, lineID string) error {
	path := "/cart/items/" + url.PathEscape(lineID)
	return g.client.do(ctx, "remote_cart.remove", http.MethodDelete, path, nil, nil)
}

// Clear empties the remote cart
func (g *CartGateway) Clear(ctx context.Context) error {
	return g.client.do(ctx, "remote_cart.clear", http.MethodDelete, "/cart/clear", nil, nil)
}

// Lines are addressed by product ID on this backend
func (g *CartGateway) toRemoteCart(dto cartDTO) cart.RemoteCart {
	rc := cart.RemoteCart{CartID: string(dto.CartID), Lines: make([]cart.RemoteLine, 0, len(dto.Items))}
	for _, it := range dto.Items {
		id := string(it.BookID)
		rc.Lines = append(rc.Lines, cart.RemoteLine{
			LineID:        id,
			ProductID:     id,
			Quantity:      it.Quantity,
			Title:         it.BookTitle,
			Author:        it.AuthorName,
			Publisher:     it.PublisherName,
			Format:        it.Format,
			ImageURL:      it.Images,
			Price:         g.client.money(it.Price),
			StockQuantity: it.StockQuantity,
		})
	}
	return rc
}

var _ cart.RemoteGateway = (*CartGateway)(nil)
