package restaurant

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/restaurant-desk/internal/domain/customer"
	"github.com/xenking/restaurant-desk/internal/domain/menu"
	"github.com/xenking/restaurant-desk/internal/domain/order"
)

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Customer string
	Online   bool
	// DistanceKm is the delivery distance; it is only checked for online
	// orders.
	DistanceKm float64
	// Items are menu item names, matched exactly. Repeating a name orders
	// the item again.
	Items []string
}

// PlaceOrder validates the request against the menu and the delivery
// radius, registers the customer on first order, and records the order.
// Nothing is changed when an error is returned.
func (r *Restaurant) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*order.Order, error) {
	if req.Customer == "" {
		return nil, ErrCustomerNameRequired
	}
	if req.Online && req.DistanceKm > r.cfg.MaxDeliveryKm {
		return nil, errors.Wrapf(ErrOutOfDeliveryRange, "%g km exceeds %g km", req.DistanceKm, r.cfg.MaxDeliveryKm)
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	// Resolve every item before touching any state.
	items := make([]menu.Item, len(req.Items))
	for i, name := range req.Items {
		item, ok := r.menu.Find(name)
		if !ok {
			return nil, &ItemNotFoundError{Name: name}
		}
		if !item.Available {
			return nil, &ItemUnavailableError{Name: name}
		}
		items[i] = item
	}

	c, ok := r.FindCustomer(req.Customer)
	if !ok {
		c = customer.New(req.Customer, false)
	}

	o := order.New(c, req.Online)
	for _, item := range items {
		o.AddItem(item)
	}
	if err := r.AddOrder(o); err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("customer", c.Name),
		zap.Bool("online", o.IsOnline),
		zap.Int("items", o.Len()),
		zap.String("total", o.Total().String()),
	)
	return o, nil
}
