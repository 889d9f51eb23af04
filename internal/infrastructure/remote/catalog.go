package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bookstore/storefront/internal/domain/cart"
)

// CatalogClient resolves product display fields from the book catalog
type CatalogClient struct {
	client *Client
}

// NewCatalogClient creates a catalog client over client
func NewCatalogClient(client *Client) *CatalogClient {
	return &CatalogClient{client: client}
}

// FetchProductDisplay returns the display snapshot of productID
func (c *CatalogClient) FetchProductDisplay(ctx context.Context, productID string) (cart.ProductSummary, error) {
	var dto bookDTO
	path := "/books/detail/" + url.PathEscape(productID)
	if err := c.client.do(ctx, "catalog.fetch_product", http.MethodGet, path, nil, &dto); err != nil {
		return cart.ProductSummary{}, err
	}

	id := string(dto.BookID)
	if id == "" {
		id = productID
	}
	author := dto.AuthorName
	if author == "" {
		author = dto.Author
	}
	var publisher string
	if dto.Publisher != nil {
		publisher = dto.Publisher.Name
		if publisher == "" {
			publisher = dto.Publisher.PublisherName
		}
	}

	return cart.ProductSummary{
		ProductID:     id,
		Title:         dto.Title,
		Author:        author,
		Publisher:     publisher,
		Format:        dto.Format,
		Price:         c.client.money(dto.Price),
		ImageURL:      dto.ImageURL,
		StockQuantity: dto.StockQuantity,
	}, nil
}

var _ cart.Catalog = (*CatalogClient)(nil)
