package menu

import (
	"context"

	"github.com/xenking/restaurant-desk/internal/record"
	"github.com/xenking/restaurant-desk/internal/storage"
)

// Records serializes the whole menu, one record per item, in order.
func (m *Menu) Records() []record.Record {
	records := make([]record.Record, len(m.items))
	for i, item := range m.items {
		records[i] = item.ToRecord()
	}
	return records
}

// SetRecords replaces the menu with the items decoded from records. On any
// invalid row the menu is left untouched and the row's
// *record.ValidationError is returned.
func (m *Menu) SetRecords(records []record.Record) error {
	items := make([]Item, len(records))
	for i, r := range records {
		item, err := FromRecord(r)
		if err != nil {
			return record.AtRow(err, Schema.Name, i+1)
		}
		items[i] = item
	}
	m.items = items
	return nil
}

// Save writes the menu artifact to s.
func (m *Menu) Save(ctx context.Context, s storage.Store) error {
	return s.Write(ctx, Schema, m.Records())
}

// Load replaces the menu with the content of the menu artifact in s.
func (m *Menu) Load(ctx context.Context, s storage.Store) error {
	records, err := s.Read(ctx, Schema)
	if err != nil {
		return err
	}
	return m.SetRecords(records)
}
