// Package xlsx stores artifacts as spreadsheet files, one workbook per
// artifact with a header row followed by one row per record.
package xlsx

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/xenking/restaurant-desk/internal/record"
	"github.com/xenking/restaurant-desk/internal/storage"
)

const ext = ".xlsx"

var (
	_ storage.Store  = (*Store)(nil)
	_ storage.Pinger = (*Store)(nil)
)

// Store keeps each artifact in <dir>/<artifact>.xlsx.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Path returns the workbook path of artifact.
func (s *Store) Path(artifact string) string {
	return filepath.Join(s.dir, artifact+ext)
}

// Ping verifies that the store directory accepts new files.
func (s *Store) Ping(_ context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return errors.Wrapf(err, "write to %s", s.dir)
	}
	_ = f.Close()
	return os.Remove(f.Name())
}

// Exists reports whether the artifact's workbook is present.
func (s *Store) Exists(_ context.Context, artifact string) (bool, error) {
	_, err := os.Stat(s.Path(artifact))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, storage.Wrap(err, "stat", artifact)
	}
}

// Read loads the first sheet of the artifact's workbook. Cells are read raw,
// without number formatting. Columns missing from a short row read as empty.
func (s *Store) Read(_ context.Context, schema record.Schema) ([]record.Record, error) {
	path := s.Path(schema.Name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, storage.Wrap(storage.ErrNotExist, "read", schema.Name)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, storage.Wrap(err, "open", schema.Name)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, storage.Wrap(errors.New("workbook has no sheets"), "read", schema.Name)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, storage.Wrap(err, "read", schema.Name)
	}
	if len(rows) == 0 {
		// A workbook written for an empty collection still has a header;
		// an entirely blank sheet is treated the same way.
		return []record.Record{}, nil
	}

	header := rows[0]
	records := make([]record.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		r := make(record.Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(row) {
				r[col] = row[i]
			} else {
				r[col] = ""
			}
		}
		records = append(records, r)
	}
	return records, nil
}

// Write replaces the artifact's workbook. The workbook is saved next to the
// target and renamed over it, so readers never see a partial file.
//
// Text cells longer than excelize.TotalCellChars are rejected: the
// spreadsheet format cannot hold them and excelize would cut them short.
func (s *Store) Write(_ context.Context, schema record.Schema, records []record.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, schema.Name); err != nil {
		return storage.Wrap(err, "write", schema.Name)
	}
	sheet = schema.Name

	header := make([]any, len(schema.Columns))
	for i, name := range schema.ColumnNames() {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return storage.Wrap(err, "write header", schema.Name)
	}

	for i, r := range records {
		values, err := schema.Values(r)
		if err != nil {
			return storage.Wrap(record.AtRow(err, schema.Name, i+1), "write", schema.Name)
		}
		for j, v := range values {
			if text, ok := v.(string); ok && utf8.RuneCountInString(text) > excelize.TotalCellChars {
				err := record.Invalid(schema.Columns[j].Name, "",
					fmt.Sprintf("cell exceeds %d characters", excelize.TotalCellChars))
				return storage.Wrap(record.AtRow(err, schema.Name, i+1), "write", schema.Name)
			}
			values[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return storage.Wrap(err, "write", schema.Name)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return storage.Wrap(errors.Wrapf(err, "row %d", i+1), "write", schema.Name)
		}
	}

	return s.replace(f, schema.Name)
}

// replace writes the workbook to a temporary file in the store directory and
// renames it over the artifact.
func (s *Store) replace(f *excelize.File, artifact string) error {
	tmp, err := os.CreateTemp(s.dir, "."+artifact+"-*.tmp")
	if err != nil {
		return storage.Wrap(err, "create temp", artifact)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return storage.Wrap(err, "save", artifact)
	}
	if err := tmp.Close(); err != nil {
		return storage.Wrap(err, "save", artifact)
	}
	if err := os.Rename(tmp.Name(), s.Path(artifact)); err != nil {
		return storage.Wrap(err, "replace", artifact)
	}
	return nil
}

// cellValue maps a typed record value to what the spreadsheet stores.
// Decimals are written as numbers so the sheet stays usable by hand, unless
// a float64 cannot hold them exactly; those are kept as text.
func cellValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		if f := d.InexactFloat64(); decimal.NewFromFloat(f).Equal(d) {
			return f
		}
		return d.String()
	}
	return v
}
