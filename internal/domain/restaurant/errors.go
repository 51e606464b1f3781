package restaurant

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrTableExists is returned when adding a table whose id is taken.
	ErrTableExists = errors.New("table already exists")
	// ErrCustomerExists is returned when registering a name that is taken.
	ErrCustomerExists = errors.New("customer already exists")
	// ErrCustomerNameRequired is returned for orders without a customer name.
	ErrCustomerNameRequired = errors.New("customer name required")
	// ErrEmptyOrder is returned when an order would contain no items.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrOutOfDeliveryRange is returned for online orders beyond the
	// delivery radius.
	ErrOutOfDeliveryRange = errors.New("delivery address out of range")
)

// ItemNotFoundError indicates an ordered item is not on the menu.
type ItemNotFoundError struct {
	Name string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %q not found", e.Name)
}

// ItemUnavailableError indicates an ordered item is on the menu but not
// currently available.
type ItemUnavailableError struct {
	Name string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("item %q is unavailable", e.Name)
}
