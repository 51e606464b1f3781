// Package menu holds the restaurant's catalog of food and drink items.
package menu

import (
	"slices"
	"strings"
)

// Menu is an ordered collection of items. Names are not required to be
// unique; keeping them distinct is left to the caller.
type Menu struct {
	items []Item
}

// New returns an empty menu.
func New() *Menu {
	return &Menu{}
}

// Add appends item without checking for an existing item of the same name.
func (m *Menu) Add(item Item) {
	m.items = append(m.items, item)
}

// Remove deletes every item named name. Removing a name that is not on the
// menu is a no-op.
func (m *Menu) Remove(name string) {
	m.items = slices.DeleteFunc(m.items, func(i Item) bool {
		return i.Name == name
	})
}

// Search returns the items whose name contains query, ignoring case.
func (m *Menu) Search(query string) []Item {
	q := strings.ToLower(query)
	var found []Item
	for _, i := range m.items {
		if strings.Contains(strings.ToLower(i.Name), q) {
			found = append(found, i)
		}
	}
	return found
}

// Find returns the first item named exactly name.
func (m *Menu) Find(name string) (Item, bool) {
	for _, i := range m.items {
		if i.Name == name {
			return i, true
		}
	}
	return Item{}, false
}

// Category is the group of items listed under one kind.
type Category struct {
	Kind  Kind
	Items []Item
}

// ByCategory partitions the menu into food and drink groups, in that order,
// preserving insertion order within each group.
func (m *Menu) ByCategory() []Category {
	categories := make([]Category, len(Kinds))
	for i, k := range Kinds {
		categories[i].Kind = k
		for _, item := range m.items {
			if item.Kind == k {
				categories[i].Items = append(categories[i].Items, item)
			}
		}
	}
	return categories
}

// Items returns a copy of the menu in insertion order.
func (m *Menu) Items() []Item {
	return slices.Clone(m.items)
}

// Len returns the number of items on the menu.
func (m *Menu) Len() int {
	return len(m.items)
}

// Replace discards the current items and installs items in their place.
func (m *Menu) Replace(items []Item) {
	m.items = slices.Clone(items)
}
