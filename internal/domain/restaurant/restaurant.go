// Package restaurant is the aggregation root of the domain: it owns the
// menu, tables, couriers, customers and orders, and persists all five
// collections through a storage.Store.
package restaurant

import (
	"iter"
	"slices"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/restaurant-desk/internal/domain/courier"
	"github.com/xenking/restaurant-desk/internal/domain/customer"
	"github.com/xenking/restaurant-desk/internal/domain/menu"
	"github.com/xenking/restaurant-desk/internal/domain/order"
	"github.com/xenking/restaurant-desk/internal/domain/table"
	"github.com/xenking/restaurant-desk/internal/storage"
)

// DefaultMaxDeliveryKm is the delivery radius used when Config leaves it
// unset.
const DefaultMaxDeliveryKm = 5

// Config holds the construction parameters of a Restaurant.
type Config struct {
	Name string
	// TableCount is the number of tables, numbered 1..TableCount, a fresh
	// restaurant starts with.
	TableCount int
	// MaxDeliveryKm bounds the distance of online orders.
	MaxDeliveryKm float64
}

// Restaurant aggregates the domain collections. It is not safe for
// concurrent use.
type Restaurant struct {
	cfg   Config
	store storage.Store

	menu      *menu.Menu
	tables    []*table.Table
	couriers  []courier.Courier
	customers []*customer.Customer
	orders    []*order.Order

	tracer  trace.Tracer
	rows    metric.Int64Counter
	dropped metric.Int64Counter
}

// New returns a restaurant in its default state: an empty menu,
// cfg.TableCount tables of default capacity, and no couriers, customers or
// orders. Nothing is read from or written to store until Initialize,
// SaveAll or LoadAll is called.
func New(cfg Config, store storage.Store, opts ...Option) (*Restaurant, error) {
	if cfg.MaxDeliveryKm <= 0 {
		cfg.MaxDeliveryKm = DefaultMaxDeliveryKm
	}
	o := newOptions(opts)

	meter := o.meterProvider.Meter(instrumentationName)
	rows, err := meter.Int64Counter("restaurant.artifact.rows",
		metric.WithDescription("Rows written to or read from storage"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create rows counter")
	}
	dropped, err := meter.Int64Counter("restaurant.orders.dropped",
		metric.WithDescription("Orders dropped on load because their customer is unknown"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create dropped counter")
	}

	r := &Restaurant{
		cfg:     cfg,
		store:   store,
		menu:    menu.New(),
		tracer:  o.tracerProvider.Tracer(instrumentationName),
		rows:    rows,
		dropped: dropped,
	}
	for i := range max(cfg.TableCount, 0) {
		r.tables = append(r.tables, table.New(i+1, table.DefaultCapacity))
	}
	return r, nil
}

// Name returns the restaurant's display name.
func (r *Restaurant) Name() string {
	return r.cfg.Name
}

// Menu returns the restaurant's menu. It is owned by the restaurant.
func (r *Restaurant) Menu() *menu.Menu {
	return r.menu
}

// Tables returns the tables in order.
func (r *Restaurant) Tables() []*table.Table {
	return slices.Clone(r.tables)
}

// FindTable returns the table with the given id.
func (r *Restaurant) FindTable(id int) (*table.Table, bool) {
	for _, t := range r.tables {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// AddTable appends t, rejecting a duplicate id with ErrTableExists.
func (r *Restaurant) AddTable(t *table.Table) error {
	if _, ok := r.FindTable(t.ID); ok {
		return errors.Wrapf(ErrTableExists, "table %d", t.ID)
	}
	r.tables = append(r.tables, t)
	return nil
}

// DisplayTables yields one line per table, reading the tables at iteration
// time.
func (r *Restaurant) DisplayTables() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, t := range r.tables {
			if !yield(t.String()) {
				return
			}
		}
	}
}

// Couriers returns the couriers in order.
func (r *Restaurant) Couriers() []courier.Courier {
	return slices.Clone(r.couriers)
}

// AddCourier appends c.
func (r *Restaurant) AddCourier(c courier.Courier) {
	r.couriers = append(r.couriers, c)
}

// Customers returns the customers in registration order.
func (r *Restaurant) Customers() []*customer.Customer {
	return slices.Clone(r.customers)
}

// FindCustomer returns the customer registered under name.
func (r *Restaurant) FindCustomer(name string) (*customer.Customer, bool) {
	for _, c := range r.customers {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AddCustomer registers c, rejecting a taken name with ErrCustomerExists.
func (r *Restaurant) AddCustomer(c *customer.Customer) error {
	if _, ok := r.FindCustomer(c.Name); ok {
		return errors.Wrapf(ErrCustomerExists, "customer %q", c.Name)
	}
	r.customers = append(r.customers, c)
	return nil
}

// Orders returns all orders in placement order.
func (r *Restaurant) Orders() []*order.Order {
	return slices.Clone(r.orders)
}

// AddOrder records o. The order list is the only copy of order history, so
// the customer's view (PreviousOrders) reflects o immediately. A customer
// not yet registered is registered; a customer whose name is registered is
// replaced by the registered instance. An order without a named customer
// is rejected with ErrCustomerNameRequired.
func (r *Restaurant) AddOrder(o *order.Order) error {
	if o.CustomerName() == "" {
		return ErrCustomerNameRequired
	}
	if c, ok := r.FindCustomer(o.CustomerName()); ok {
		o.Customer = c
	} else {
		r.customers = append(r.customers, o.Customer)
	}
	r.orders = append(r.orders, o)
	return nil
}

// PreviousOrders returns the orders placed by the named customer, oldest
// first.
func (r *Restaurant) PreviousOrders(name string) []*order.Order {
	var orders []*order.Order
	for _, o := range r.orders {
		if o.CustomerName() == name {
			orders = append(orders, o)
		}
	}
	return orders
}

// ViewOrders yields a one-line summary of each order of the named customer.
// The sequence reads the order list lazily and can be iterated repeatedly.
func (r *Restaurant) ViewOrders(name string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, o := range r.orders {
			if o.CustomerName() != name {
				continue
			}
			if !yield(o.String()) {
				return
			}
		}
	}
}
