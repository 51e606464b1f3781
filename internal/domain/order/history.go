package order

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-desk/internal/domain/menu"
	"github.com/xenking/restaurant-desk/internal/record"
)

// EncodeHistory writes orders as the JSON array stored in a customer's
// previous_orders cell. The customer is implied by the owning row and the
// items live in the orders artifact, so each entry only carries the order
// id, channel and total.
func EncodeHistory(orders []*Order) string {
	var e jx.Encoder
	e.ArrStart()
	for _, o := range orders {
		e.ObjStart()
		e.FieldStart("order_id")
		e.Str(o.ID)
		e.FieldStart("is_online")
		e.Bool(o.IsOnline)
		e.FieldStart("total_price")
		e.Num(jx.Num(o.total.String()))
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.String()
}

var historyFields = []string{"order_id", "is_online", "total_price"}

// DecodeHistory parses a previous_orders cell. CustomerName is left empty.
// Entries written with their items are accepted, and the items must then
// add up to the total.
func DecodeHistory(cell string) ([]Pending, error) {
	history := []Pending{}
	err := jx.DecodeStr(cell).Arr(func(d *jx.Decoder) error {
		var (
			p    Pending
			seen = map[string]bool{}
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			seen[key] = true
			switch key {
			case "order_id":
				v, err := d.Str()
				p.ID = v
				return err
			case "items":
				v, err := menu.ReadItems(d)
				p.Items = v
				return err
			case "is_online":
				v, err := d.Bool()
				p.IsOnline = v
				return err
			case "total_price":
				n, err := d.Num()
				if err != nil {
					return err
				}
				total, err := decimal.NewFromString(n.String())
				if err != nil {
					return record.Invalid("total_price", n.String(), "not a number")
				}
				p.Total = total
				return nil
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		for _, f := range historyFields {
			if !seen[f] {
				return record.Invalid(f, "", "missing field")
			}
		}
		if seen["items"] {
			if err := checkTotal(p.Items, p.Total); err != nil {
				return err
			}
		}
		history = append(history, p)
		return nil
	})
	if err != nil {
		var ve *record.ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}
		return nil, &record.ValidationError{Field: "previous_orders", Reason: "malformed order list: " + err.Error()}
	}
	return history, nil
}
