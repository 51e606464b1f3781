package menu

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-desk/internal/record"
)

// EncodeItems writes items as a JSON array of item field sets, suitable for
// a single cell.
func EncodeItems(items []Item) string {
	var e jx.Encoder
	WriteItems(&e, items)
	return e.String()
}

// WriteItems appends items to e as a JSON array.
func WriteItems(e *jx.Encoder, items []Item) {
	e.ArrStart()
	for _, i := range items {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(i.Name)
		e.FieldStart("price")
		e.Num(jx.Num(i.Price.String()))
		e.FieldStart("item_type")
		e.Str(string(i.Kind))
		e.FieldStart("available")
		e.Bool(i.Available)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// DecodeItems parses a JSON array produced by EncodeItems.
func DecodeItems(s string) ([]Item, error) {
	return ReadItems(jx.DecodeStr(s))
}

// ReadItems reads a JSON array of item field sets from d. Each element is
// validated like a menu row.
func ReadItems(d *jx.Decoder) ([]Item, error) {
	items := []Item{}
	err := d.Arr(func(d *jx.Decoder) error {
		var (
			i    Item
			seen = map[string]bool{}
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			seen[key] = true
			switch key {
			case "name":
				v, err := d.Str()
				i.Name = v
				return err
			case "price":
				n, err := d.Num()
				if err != nil {
					return err
				}
				p, err := decimal.NewFromString(n.String())
				if err != nil {
					return record.Invalid("price", n.String(), "not a number")
				}
				i.Price = p
				return nil
			case "item_type":
				v, err := d.Str()
				i.Kind = Kind(v)
				return err
			case "available":
				v, err := d.Bool()
				i.Available = v
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		for _, c := range Schema.Columns {
			if !seen[c.Name] {
				return record.Invalid(c.Name, "", "missing field")
			}
		}
		if err := i.Validate(); err != nil {
			return err
		}
		items = append(items, i)
		return nil
	})
	if err != nil {
		var ve *record.ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}
		return nil, &record.ValidationError{Reason: "malformed item list: " + err.Error()}
	}
	return items, nil
}
