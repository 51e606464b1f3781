// Package record defines the flat, typed field sets every entity is
// persisted as, and the per-artifact schemas enforced when rows are read
// back from storage.
package record

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Type is the declared type of a column.
type Type string

const (
	// TypeString is free text.
	TypeString Type = "string"
	// TypeNumber is an exact decimal number.
	TypeNumber Type = "number"
	// TypeInt is a base-10 integer.
	TypeInt Type = "int"
	// TypeBool is a boolean flag.
	TypeBool Type = "bool"
	// TypeJSON is a nested structure encoded as JSON in a single cell.
	TypeJSON Type = "json"
)

// Column is a single named, typed column of an artifact.
type Column struct {
	Name string
	Type Type
}

// Schema describes one artifact: its name and its ordered column set.
type Schema struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Check verifies that r carries every column of the schema and that each
// cell parses as the declared type.
func (s Schema) Check(r Record) error {
	for _, c := range s.Columns {
		if _, err := c.Value(r); err != nil {
			return err
		}
	}
	return nil
}

// Values converts r into typed cell values in column order: string for
// TypeString and TypeJSON, decimal.Decimal for TypeNumber, int64 for TypeInt
// and bool for TypeBool.
func (s Schema) Values(r Record) ([]any, error) {
	values := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		v, err := c.Value(r)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Value parses the cell of column c in r.
func (c Column) Value(r Record) (any, error) {
	switch c.Type {
	case TypeString:
		return r.String(c.Name)
	case TypeNumber:
		return r.Decimal(c.Name)
	case TypeInt:
		v, err := r.Int(c.Name)
		return int64(v), err
	case TypeBool:
		return r.Bool(c.Name)
	case TypeJSON:
		return r.JSON(c.Name)
	default:
		return nil, errors.Errorf("column %q: unsupported type %q", c.Name, c.Type)
	}
}

// Set is one artifact's content: its schema and its rows in order.
type Set struct {
	Schema  Schema
	Records []Record
}

// Record is the flat field-set representation of one entity instance.
// Cells are kept as text; typed access goes through the getters below.
type Record map[string]string

// Field returns the raw cell for name, failing when the column is absent.
func (r Record) Field(name string) (string, error) {
	v, ok := r[name]
	if !ok {
		return "", &ValidationError{Field: name, Reason: "missing field"}
	}
	return v, nil
}

// String returns the cell for name with surrounding whitespace removed.
func (r Record) String(name string) (string, error) {
	v, err := r.Field(name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// Decimal parses the cell for name as an exact decimal number.
func (r Record) Decimal(name string) (decimal.Decimal, error) {
	v, err := r.String(name)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: name, Value: v, Reason: "not a number"}
	}
	return d, nil
}

// Int parses the cell for name as a base-10 integer.
func (r Record) Int(name string) (int, error) {
	v, err := r.String(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ValidationError{Field: name, Value: v, Reason: "not an integer"}
	}
	return n, nil
}

// Bool parses the cell for name as a boolean. Spreadsheet spellings such as
// TRUE, FALSE, 1 and 0 are accepted.
func (r Record) Bool(name string) (bool, error) {
	v, err := r.String(name)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ValidationError{Field: name, Value: v, Reason: "not a boolean"}
	}
	return b, nil
}

// JSON returns the cell for name after checking it holds a single valid
// JSON value.
func (r Record) JSON(name string) (string, error) {
	v, err := r.String(name)
	if err != nil {
		return "", err
	}
	if !jx.Valid([]byte(v)) {
		return "", &ValidationError{Field: name, Value: v, Reason: "not valid JSON"}
	}
	return v, nil
}
