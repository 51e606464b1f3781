package menu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-desk/internal/record"
)

// Kind is the category an item is listed under.
type Kind string

const (
	KindFood  Kind = "food"
	KindDrink Kind = "drink"
)

// Kinds lists the categories in display order.
var Kinds = []Kind{KindFood, KindDrink}

// Valid reports whether k is a known category.
func (k Kind) Valid() bool {
	return k == KindFood || k == KindDrink
}

// Schema is the column set of the menu artifact.
var Schema = record.Schema{
	Name: "menu",
	Columns: []record.Column{
		{Name: "name", Type: record.TypeString},
		{Name: "price", Type: record.TypeNumber},
		{Name: "item_type", Type: record.TypeString},
		{Name: "available", Type: record.TypeBool},
	},
}

// Item is a catalog entry. Items are values: orders keep their own copy.
type Item struct {
	Name      string
	Price     decimal.Decimal
	Kind      Kind
	Available bool
}

// Validate checks the item's field invariants.
func (i Item) Validate() error {
	if i.Name == "" {
		return record.Invalid("name", "", "must not be empty")
	}
	// Text cells are trimmed on read, so such a name would not survive a
	// save.
	if strings.TrimSpace(i.Name) != i.Name {
		return record.Invalid("name", i.Name, "must not have surrounding whitespace")
	}
	if i.Price.IsNegative() {
		return record.Invalid("price", i.Price.String(), "must not be negative")
	}
	if !i.Kind.Valid() {
		return record.Invalid("item_type", string(i.Kind), "must be food or drink")
	}
	return nil
}

// ToRecord maps the item to its flat field set.
func (i Item) ToRecord() record.Record {
	return record.Record{
		"name":      i.Name,
		"price":     i.Price.String(),
		"item_type": string(i.Kind),
		"available": strconv.FormatBool(i.Available),
	}
}

// FromRecord reconstructs an item, failing with a *record.ValidationError
// when a field is absent or mistyped.
func FromRecord(r record.Record) (Item, error) {
	name, err := r.String("name")
	if err != nil {
		return Item{}, err
	}
	price, err := r.Decimal("price")
	if err != nil {
		return Item{}, err
	}
	kind, err := r.String("item_type")
	if err != nil {
		return Item{}, err
	}
	available, err := r.Bool("available")
	if err != nil {
		return Item{}, err
	}

	i := Item{
		Name:      name,
		Price:     price,
		Kind:      Kind(kind),
		Available: available,
	}
	if err := i.Validate(); err != nil {
		return Item{}, err
	}
	return i, nil
}

func (i Item) String() string {
	status := "Available"
	if !i.Available {
		status = "Unavailable"
	}
	return fmt.Sprintf("%s (%s): $%s - %s", i.Name, i.Kind, i.Price.StringFixed(2), status)
}
