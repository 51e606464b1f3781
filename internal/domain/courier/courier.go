// Package courier holds delivery agent identities.
package courier

import (
	"github.com/google/uuid"

	"github.com/xenking/restaurant-desk/internal/record"
)

// Schema is the column set of the couriers artifact.
var Schema = record.Schema{
	Name: "couriers",
	Columns: []record.Column{
		{Name: "courier_id", Type: record.TypeString},
	},
}

// Courier identifies a delivery agent.
type Courier struct {
	ID string
}

// New returns a courier with the given id, or a generated one when id is
// empty.
func New(id string) Courier {
	if id == "" {
		id = uuid.New().String()
	}
	return Courier{ID: id}
}

// ToRecord maps the courier to its single courier_id field.
func (c Courier) ToRecord() record.Record {
	return record.Record{"courier_id": c.ID}
}

// FromRecord reconstructs a courier; the id must not be empty.
func FromRecord(r record.Record) (Courier, error) {
	id, err := r.String("courier_id")
	if err != nil {
		return Courier{}, err
	}
	if id == "" {
		return Courier{}, record.Invalid("courier_id", "", "must not be empty")
	}
	return Courier{ID: id}, nil
}

func (c Courier) String() string {
	return "Courier " + c.ID
}
