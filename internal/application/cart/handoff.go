package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bookstore/storefront/internal/domain/cart"
	"github.com/bookstore/storefront/internal/domain/order"
	"github.com/bookstore/storefront/internal/infrastructure/logger"
)

// Handoff turns the live cart into an order
type Handoff struct {
	store    *Store
	orders   order.Creator
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandoff creates a Handoff for store
func NewHandoff(store *Store, orders order.Creator, l *zap.Logger) *Handoff {
	if l == nil {
		l = zap.NewNop()
	}
	return &Handoff{
		store:    store,
		orders:   orders,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   l,
	}
}

// BuildOrderRequest converts state into order lines with a computed total
func BuildOrderRequest(state cart.State, details order.Details) order.Request {
	lines := make([]order.Line, 0, state.Len())
	for _, item := range state.Items() {
		lines = append(lines, order.Line{
			LineID:    uuid.NewString(),
			ProductID: item.ProductID(),
			Title:     item.Product.Title,
			Author:    item.Product.Author,
			ImageURL:  item.Product.ImageURL,
			UnitPrice: item.Product.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		})
	}
	return order.Request{
		Lines:   lines,
		Total:   state.TotalPrice(),
		Details: details,
	}
}

// Checkout places an order for the live cart and clears the cart once the
// order exists. A failed clear is logged; the order stands.
func (h *Handoff) Checkout(ctx context.Context, details order.Details) (order.Confirmation, error) {
	snap := h.store.Snapshot()
	if snap.Cart.IsEmpty() {
		return order.Confirmation{}, cart.ErrEmptyCart
	}
	if !snap.Phase.AllowsMutations() {
		return order.Confirmation{}, cart.ErrSignInRequired
	}

	req := BuildOrderRequest(snap.Cart, details)
	if err := h.validate.StructCtx(ctx, req); err != nil {
		return order.Confirmation{}, invalidCheckout(err)
	}

	log := logger.Enrich(ctx, h.logger)
	conf, err := h.orders.CreateOrder(ctx, req)
	if err != nil {
		log.Warn("order creation failed", zap.Int("lines", len(req.Lines)), zap.Error(err))
		return order.Confirmation{}, err
	}
	log.Info("order created",
		zap.String("order_id", conf.OrderID),
		zap.Int("lines", len(req.Lines)),
		zap.String("total", req.Total.String()),
	)

	pending, err := h.store.ClearCart(ctx)
	if err == nil {
		err = pending.Wait()
	}
	if err != nil {
		log.Error("order placed but cart could not be cleared",
			zap.String("order_id", conf.OrderID),
			zap.Error(err),
		)
	}
	return conf, nil
}

func invalidCheckout(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return order.ErrInvalidCheckout.
			WithMessage(fmt.Sprintf("%s failed %q validation", first.Namespace(), first.Tag())).
			Wrap(err)
	}
	return order.ErrInvalidCheckout.Wrap(err)
}
