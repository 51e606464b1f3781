package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-desk/internal/domain/customer"
	"github.com/xenking/restaurant-desk/internal/domain/menu"
	"github.com/xenking/restaurant-desk/internal/record"
)

// Pending is an order row that has been parsed and validated but whose
// customer name has not been resolved yet.
type Pending struct {
	ID           string
	CustomerName string
	Items        []menu.Item
	IsOnline     bool
	Total        decimal.Decimal
}

// ReferentialIntegrityError reports an order whose customer name matches no
// live customer.
type ReferentialIntegrityError struct {
	OrderID  string
	Customer string
	Row      int
}

func (e *ReferentialIntegrityError) Error() string {
	return "order " + e.OrderID + " references unknown customer " + e.Customer
}

// Lookup resolves a customer by name.
type Lookup func(name string) (*customer.Customer, bool)

// ParseRecord validates an orders row without resolving its customer. The
// recorded total must equal the sum of the recorded item prices.
func ParseRecord(r record.Record) (Pending, error) {
	id, err := r.String("order_id")
	if err != nil {
		return Pending{}, err
	}
	if id == "" {
		return Pending{}, record.Invalid("order_id", "", "must not be empty")
	}
	name, err := r.String("customer")
	if err != nil {
		return Pending{}, err
	}
	p, err := parseBody(r)
	if err != nil {
		return Pending{}, err
	}
	p.ID = id
	p.CustomerName = name
	return p, nil
}

// parseBody reads the items, is_online and total_price columns shared by
// order rows and embedded history entries.
func parseBody(r record.Record) (Pending, error) {
	cell, err := r.JSON("items")
	if err != nil {
		return Pending{}, err
	}
	items, err := menu.DecodeItems(cell)
	if err != nil {
		return Pending{}, err
	}
	online, err := r.Bool("is_online")
	if err != nil {
		return Pending{}, err
	}
	total, err := r.Decimal("total_price")
	if err != nil {
		return Pending{}, err
	}

	if err := checkTotal(items, total); err != nil {
		return Pending{}, err
	}

	return Pending{Items: items, IsOnline: online, Total: total}, nil
}

// checkTotal verifies that total equals the sum of the item prices.
func checkTotal(items []menu.Item, total decimal.Decimal) error {
	sum := decimal.Zero
	for _, i := range items {
		sum = sum.Add(i.Price)
	}
	if !sum.Equal(total) {
		return record.Invalid("total_price", total.String(), "does not match item prices "+sum.String())
	}
	return nil
}

// Resolve links the pending order to its customer. It fails with a
// *ReferentialIntegrityError when lookup has no customer of that name.
func (p Pending) Resolve(lookup Lookup) (*Order, error) {
	c, ok := lookup(p.CustomerName)
	if !ok {
		return nil, &ReferentialIntegrityError{OrderID: p.ID, Customer: p.CustomerName}
	}
	return p.build(c), nil
}

func (p Pending) build(c *customer.Customer) *Order {
	o := &Order{
		ID:       p.ID,
		Customer: c,
		IsOnline: p.IsOnline,
		total:    decimal.Zero,
	}
	for _, i := range p.Items {
		o.AddItem(i)
	}
	return o
}

// FromRecord reconstructs an order from its row, resolving the customer name
// through lookup.
func FromRecord(r record.Record, lookup Lookup) (*Order, error) {
	p, err := ParseRecord(r)
	if err != nil {
		return nil, err
	}
	return p.Resolve(lookup)
}

// Detach returns o as a pending order keyed by its customer's name, so it can
// be resolved again against a different customer collection.
func (o *Order) Detach() Pending {
	return Pending{
		ID:           o.ID,
		CustomerName: o.CustomerName(),
		Items:        o.Items(),
		IsOnline:     o.IsOnline,
		Total:        o.total,
	}
}
