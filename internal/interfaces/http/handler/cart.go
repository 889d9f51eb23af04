package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	cartapp "github.com/bookstore/storefront/internal/application/cart"
	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/order"
	"github.com/bookstore/storefront/internal/interfaces/http/middleware"
)

// CartService is the live cart as the HTTP surface uses it
type CartService interface {
	Snapshot() cartapp.Snapshot
	AddItem(ctx context.Context, product cart.ProductSummary, quantity int) (*cartapp.Pending, error)
	UpdateQuantity(ctx context.Context, productID string, quantity int) (*cartapp.Pending, error)
	RemoveItem(ctx context.Context, productID string) (*cartapp.Pending, error)
	ClearCart(ctx context.Context) (*cartapp.Pending, error)
	Load(ctx context.Context) error
}

// CheckoutService hands the cart to the order service
type CheckoutService interface {
	Checkout(ctx context.Context, details order.Details) (order.Confirmation, error)
}

// CartHandler serves cart commands. A command applies optimistically and
// the response is written once its remote call resolves, so a failure is
// reported to the caller after the rollback.
type CartHandler struct {
	BaseHandler
	cart     CartService
	checkout CheckoutService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cart CartService, checkout CheckoutService) *CartHandler {
	return &CartHandler{cart: cart, checkout: checkout}
}

// GetCart returns the live cart
func (h *CartHandler) GetCart(c *gin.Context) {
	h.Success(c, toCartResponse(h.cart.Snapshot()))
}

// AddItem adds units of a product
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	product, err := req.Product.toSummary(h.cart.Snapshot().Cart.Currency())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.resolve(c, func(ctx context.Context) (*cartapp.Pending, error) {
		return h.cart.AddItem(ctx, product, req.Quantity)
	})
}

// UpdateItem sets the quantity of a line
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	productID := c.Param("productId")
	h.resolve(c, func(ctx context.Context) (*cartapp.Pending, error) {
		return h.cart.UpdateQuantity(ctx, productID, *req.Quantity)
	})
}

// RemoveItem deletes a line
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID := c.Param("productId")
	h.resolve(c, func(ctx context.Context) (*cartapp.Pending, error) {
		return h.cart.RemoveItem(ctx, productID)
	})
}

// ClearCart empties the cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	h.resolve(c, h.cart.ClearCart)
}

// Reload reloads the cart from its source of truth
func (h *CartHandler) Reload(c *gin.Context) {
	if err := h.cart.Load(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCartResponse(h.cart.Snapshot()))
}

// Checkout places an order for the live cart
func (h *CartHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	conf, err := h.checkout.Checkout(c.Request.Context(), req.toDetails())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toOrderResponse(conf))
}

func (h *CartHandler) resolve(c *gin.Context, command func(ctx context.Context) (*cartapp.Pending, error)) {
	ctx := c.Request.Context()
	pending, err := command(ctx)
	if err == nil {
		err = pending.WaitContext(ctx)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCartResponse(h.cart.Snapshot()))
}

// RegisterRoutes registers the cart routes
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/cart")
	group.GET("", h.GetCart)
	group.DELETE("", h.ClearCart)
	group.POST("/items", h.AddItem)
	group.PUT("/items/:productId", h.UpdateItem)
	group.DELETE("/items/:productId", h.RemoveItem)
	group.POST("/reload", h.Reload)
	group.POST("/checkout", h.Checkout)
}
