// Package customer models the restaurant's patrons.
package customer

import (
	"strconv"

	"github.com/xenking/restaurant-desk/internal/record"
)

// Schema is the column set of the customers artifact. The previous_orders
// cell is a derived copy of the customer's order history; it is produced and
// checked by the restaurant, which owns the canonical order list.
var Schema = record.Schema{
	Name: "customers",
	Columns: []record.Column{
		{Name: "name", Type: record.TypeString},
		{Name: "is_member", Type: record.TypeBool},
		{Name: "previous_orders", Type: record.TypeJSON},
	},
}

// Customer is a named patron. The name identifies the customer across
// sessions.
type Customer struct {
	Name     string
	IsMember bool
}

// New returns a customer.
func New(name string, member bool) *Customer {
	return &Customer{Name: name, IsMember: member}
}

// ToRecord maps the customer's own fields. The previous_orders cell is added
// by the caller.
func (c *Customer) ToRecord() record.Record {
	return record.Record{
		"name":      c.Name,
		"is_member": strconv.FormatBool(c.IsMember),
	}
}

// FromRecord reconstructs a customer from its own fields. The
// previous_orders cell is left to the caller.
func FromRecord(r record.Record) (*Customer, error) {
	name, err := r.String("name")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, record.Invalid("name", "", "must not be empty")
	}
	member, err := r.Bool("is_member")
	if err != nil {
		return nil, err
	}
	return &Customer{Name: name, IsMember: member}, nil
}

func (c *Customer) String() string {
	if c.IsMember {
		return c.Name + " (member)"
	}
	return c.Name
}
