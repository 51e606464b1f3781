package record

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	Name: "things",
	Columns: []Column{
		{Name: "name", Type: TypeString},
		{Name: "price", Type: TypeNumber},
		{Name: "count", Type: TypeInt},
		{Name: "active", Type: TypeBool},
		{Name: "tags", Type: TypeJSON},
	},
}

func TestSchema_Values(t *testing.T) {
	r := Record{
		"name":   " Widget ",
		"price":  "8.50",
		"count":  "3",
		"active": "TRUE",
		"tags":   `["a","b"]`,
		"extra":  "ignored",
	}

	values, err := testSchema.Values(r)
	require.NoError(t, err)
	require.Len(t, values, 5)

	assert.Equal(t, "Widget", values[0])
	assert.True(t, decimal.RequireFromString("8.5").Equal(values[1].(decimal.Decimal)))
	assert.Equal(t, int64(3), values[2])
	assert.Equal(t, true, values[3])
	assert.Equal(t, `["a","b"]`, values[4])
	assert.Equal(t, []string{"name", "price", "count", "active", "tags"}, testSchema.ColumnNames())
}

func TestSchema_Check(t *testing.T) {
	valid := func() Record {
		return Record{"name": "x", "price": "1", "count": "1", "active": "0", "tags": "[]"}
	}

	tests := []struct {
		name      string
		mutate    func(r Record)
		wantField string
		wantText  string
	}{
		{name: "valid", mutate: func(Record) {}},
		{name: "missing name", mutate: func(r Record) { delete(r, "name") }, wantField: "name", wantText: "missing field"},
		{name: "price not numeric", mutate: func(r Record) { r["price"] = "cheap" }, wantField: "price", wantText: "not a number"},
		{name: "count not integer", mutate: func(r Record) { r["count"] = "1.5" }, wantField: "count", wantText: "not an integer"},
		{name: "active not bool", mutate: func(r Record) { r["active"] = "maybe" }, wantField: "active", wantText: "not a boolean"},
		{name: "tags not json", mutate: func(r Record) { r["tags"] = "[1," }, wantField: "tags", wantText: "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)

			err := testSchema.Check(r)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}

func TestAtRow(t *testing.T) {
	_, err := Record{}.Decimal("price")
	err = AtRow(errors.Wrap(err, "decode"), "menu", 4)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "menu", ve.Artifact)
	assert.Equal(t, 4, ve.Row)
	assert.Contains(t, err.Error(), `menu row 4 field "price": missing field`)

	plain := errors.New("disk gone")
	assert.Equal(t, plain, AtRow(plain, "menu", 1))
}
