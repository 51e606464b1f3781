// Package table models the restaurant's seating.
package table

import (
	"fmt"
	"strconv"

	"github.com/xenking/restaurant-desk/internal/record"
)

// DefaultCapacity is the number of seats of a table created without an
// explicit capacity.
const DefaultCapacity = 4

// Schema is the column set of the tables artifact.
var Schema = record.Schema{
	Name: "tables",
	Columns: []record.Column{
		{Name: "table_id", Type: record.TypeInt},
		{Name: "capacity", Type: record.TypeInt},
		{Name: "is_reserved", Type: record.TypeBool},
	},
}

// Table is a seating resource with a reservation flag.
type Table struct {
	ID       int
	Capacity int
	reserved bool
}

// New returns an unreserved table.
func New(id, capacity int) *Table {
	return &Table{ID: id, Capacity: capacity}
}

// Reserve marks the table reserved. Reserving a reserved table is harmless;
// callers that care must check IsReserved first.
func (t *Table) Reserve() {
	t.reserved = true
}

// Release marks the table free.
func (t *Table) Release() {
	t.reserved = false
}

// IsReserved reports whether the table is reserved.
func (t *Table) IsReserved() bool {
	return t.reserved
}

// ToRecord maps the table to its flat field set.
func (t *Table) ToRecord() record.Record {
	return record.Record{
		"table_id":    strconv.Itoa(t.ID),
		"capacity":    strconv.Itoa(t.Capacity),
		"is_reserved": strconv.FormatBool(t.reserved),
	}
}

// FromRecord reconstructs a table, keeping its reservation state. A capacity
// below one is rejected.
func FromRecord(r record.Record) (*Table, error) {
	id, err := r.Int("table_id")
	if err != nil {
		return nil, err
	}
	capacity, err := r.Int("capacity")
	if err != nil {
		return nil, err
	}
	if capacity < 1 {
		return nil, record.Invalid("capacity", strconv.Itoa(capacity), "must be at least 1")
	}
	reserved, err := r.Bool("is_reserved")
	if err != nil {
		return nil, err
	}
	return &Table{ID: id, Capacity: capacity, reserved: reserved}, nil
}

func (t *Table) String() string {
	status := "Available"
	if t.reserved {
		status = "Reserved"
	}
	return fmt.Sprintf("Table %d (%d seats): %s", t.ID, t.Capacity, status)
}
