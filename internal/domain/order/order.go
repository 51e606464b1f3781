// Package order models customer orders: line items, the online flag and a
// running total.
package order

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-desk/internal/domain/customer"
	"github.com/xenking/restaurant-desk/internal/domain/menu"
	"github.com/xenking/restaurant-desk/internal/record"
)

// Schema is the column set of the orders artifact. The customer column holds
// the customer's name, resolved against the live customers on load.
var Schema = record.Schema{
	Name: "orders",
	Columns: []record.Column{
		{Name: "order_id", Type: record.TypeString},
		{Name: "customer", Type: record.TypeString},
		{Name: "items", Type: record.TypeJSON},
		{Name: "is_online", Type: record.TypeBool},
		{Name: "total_price", Type: record.TypeNumber},
	},
}

// Order is a collection of item snapshots placed by one customer. The
// customer is referenced, not owned.
type Order struct {
	ID       string
	Customer *customer.Customer
	IsOnline bool

	items []menu.Item
	total decimal.Decimal
}

// New returns an empty order for c.
func New(c *customer.Customer, online bool) *Order {
	return &Order{
		ID:       uuid.New().String(),
		Customer: c,
		IsOnline: online,
		total:    decimal.Zero,
	}
}

// AddItem appends a copy of item and adds its price to the total. Adding the
// same item twice yields two entries, each priced on its own.
func (o *Order) AddItem(item menu.Item) {
	o.items = append(o.items, item)
	o.total = o.total.Add(item.Price)
}

// Items returns a copy of the order's items in the order they were added.
func (o *Order) Items() []menu.Item {
	return slices.Clone(o.items)
}

// Len returns the number of line items.
func (o *Order) Len() int {
	return len(o.items)
}

// Total returns the sum of the prices of all added items.
func (o *Order) Total() decimal.Decimal {
	return o.total
}

// CustomerName returns the name of the referenced customer.
func (o *Order) CustomerName() string {
	if o.Customer == nil {
		return ""
	}
	return o.Customer.Name
}

// ToRecord maps the order to its flat field set, referencing the customer by
// name.
func (o *Order) ToRecord() record.Record {
	return record.Record{
		"order_id":    o.ID,
		"customer":    o.CustomerName(),
		"items":       menu.EncodeItems(o.items),
		"is_online":   strconv.FormatBool(o.IsOnline),
		"total_price": o.total.String(),
	}
}

func (o *Order) String() string {
	kind := "In-Person"
	if o.IsOnline {
		kind = "Online"
	}
	return fmt.Sprintf("Order for %s (%s): $%s", o.CustomerName(), kind, o.total.StringFixed(2))
}
