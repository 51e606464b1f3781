package restaurant

import (
	"context"
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/restaurant-desk/internal/domain/courier"
	"github.com/xenking/restaurant-desk/internal/domain/customer"
	"github.com/xenking/restaurant-desk/internal/domain/menu"
	"github.com/xenking/restaurant-desk/internal/domain/order"
	"github.com/xenking/restaurant-desk/internal/domain/table"
	"github.com/xenking/restaurant-desk/internal/record"
	"github.com/xenking/restaurant-desk/internal/storage"
)

// memStore is an in-memory storage.Store that can be told to fail on
// specific artifacts.
type memStore struct {
	mu        sync.Mutex
	data      map[string][]record.Record
	failWrite map[string]error
	failRead  map[string]error
	writes    []string
}

func newMemStore() *memStore {
	return &memStore{
		data:      map[string][]record.Record{},
		failWrite: map[string]error{},
		failRead:  map[string]error{},
	}
}

func (s *memStore) Exists(_ context.Context, artifact string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[artifact]
	return ok, nil
}

func (s *memStore) Read(_ context.Context, schema record.Schema) ([]record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failRead[schema.Name]; err != nil {
		return nil, storage.Wrap(err, "read", schema.Name)
	}
	records, ok := s.data[schema.Name]
	if !ok {
		return nil, storage.Wrap(storage.ErrNotExist, "read", schema.Name)
	}
	out := make([]record.Record, len(records))
	for i, r := range records {
		out[i] = maps.Clone(r)
	}
	return out, nil
}

func (s *memStore) Write(_ context.Context, schema record.Schema, records []record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWrite[schema.Name]; err != nil {
		return storage.Wrap(err, "write", schema.Name)
	}
	s.data[schema.Name] = records
	s.writes = append(s.writes, schema.Name)
	return nil
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestRestaurant(t *testing.T, s storage.Store) *Restaurant {
	t.Helper()
	r, err := New(Config{Name: "Test", TableCount: 3}, s)
	require.NoError(t, err)
	r.Menu().Add(menu.Item{Name: "Burger", Price: d("8.5"), Kind: menu.KindFood, Available: true})
	r.Menu().Add(menu.Item{Name: "Cola", Price: d("2"), Kind: menu.KindDrink, Available: true})
	r.Menu().Add(menu.Item{Name: "Pie", Price: d("4"), Kind: menu.KindFood, Available: false})
	return r
}

// populate places two orders for Alice and one for Bob.
func populate(t *testing.T, r *Restaurant) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.AddCustomer(customer.New("Alice", true)))
	r.AddCourier(courier.New("c-1"))
	r.Tables()[1].Reserve()

	for _, req := range []PlaceOrderRequest{
		{Customer: "Alice", Items: []string{"Burger"}},
		{Customer: "Bob", Online: true, DistanceKm: 2, Items: []string{"Cola", "Cola"}},
		{Customer: "Alice", Items: []string{"Burger", "Cola"}},
	} {
		_, err := r.PlaceOrder(ctx, req)
		require.NoError(t, err)
	}
}

func TestNew_Tables(t *testing.T) {
	r, err := New(Config{TableCount: 3}, newMemStore())
	require.NoError(t, err)

	tables := r.Tables()
	require.Len(t, tables, 3)
	for i, tbl := range tables {
		assert.Equal(t, i+1, tbl.ID)
		assert.Equal(t, table.DefaultCapacity, tbl.Capacity)
		assert.False(t, tbl.IsReserved())
	}

	tbl, ok := r.FindTable(2)
	require.True(t, ok)
	tbl.Reserve()
	tbl.Reserve()
	assert.True(t, tbl.IsReserved())

	assert.Equal(t, []string{
		"Table 1 (4 seats): Available",
		"Table 2 (4 seats): Reserved",
		"Table 3 (4 seats): Available",
	}, slices.Collect(r.DisplayTables()))

	err = r.AddTable(table.New(2, 6))
	require.ErrorIs(t, err, ErrTableExists)
	require.NoError(t, r.AddTable(table.New(4, 6)))
	assert.Len(t, r.Tables(), 4)
}

func TestRestaurant_AddCustomer(t *testing.T) {
	r, err := New(Config{}, newMemStore())
	require.NoError(t, err)

	require.NoError(t, r.AddCustomer(customer.New("Alice", false)))
	require.ErrorIs(t, r.AddCustomer(customer.New("Alice", true)), ErrCustomerExists)
	assert.Len(t, r.Customers(), 1)
}

func TestRestaurant_PlaceOrder(t *testing.T) {
	ctx := context.Background()
	r := newTestRestaurant(t, newMemStore())

	o, err := r.PlaceOrder(ctx, PlaceOrderRequest{Customer: "Alice", Items: []string{"Burger"}})
	require.NoError(t, err)
	assert.True(t, d("8.5").Equal(o.Total()))

	_, err = r.PlaceOrder(ctx, PlaceOrderRequest{Customer: "Alice", Items: []string{"Cola", "Burger"}})
	require.NoError(t, err)

	assert.Len(t, r.Orders(), 2)
	assert.Len(t, r.Customers(), 1)

	prev := r.PreviousOrders("Alice")
	require.Len(t, prev, 2)
	assert.True(t, d("8.5").Equal(prev[0].Total()))
	assert.True(t, d("10.5").Equal(prev[1].Total()))
	assert.Same(t, prev[0].Customer, prev[1].Customer)
}

func TestRestaurant_PlaceOrderErrors(t *testing.T) {
	for _, tt := range []struct {
		name  string
		req   PlaceOrderRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "NoCustomer",
			req:  PlaceOrderRequest{Items: []string{"Burger"}},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrCustomerNameRequired)
			},
		},
		{
			name: "NoItems",
			req:  PlaceOrderRequest{Customer: "Alice"},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrEmptyOrder)
			},
		},
		{
			name: "TooFar",
			req:  PlaceOrderRequest{Customer: "Alice", Online: true, DistanceKm: 7.5, Items: []string{"Burger"}},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrOutOfDeliveryRange)
			},
		},
		{
			name: "UnknownItem",
			req:  PlaceOrderRequest{Customer: "Alice", Items: []string{"Burger", "Sushi"}},
			check: func(t *testing.T, err error) {
				var nf *ItemNotFoundError
				require.ErrorAs(t, err, &nf)
				assert.Equal(t, "Sushi", nf.Name)
			},
		},
		{
			name: "Unavailable",
			req:  PlaceOrderRequest{Customer: "Alice", Items: []string{"Pie"}},
			check: func(t *testing.T, err error) {
				var ua *ItemUnavailableError
				require.ErrorAs(t, err, &ua)
				assert.Equal(t, "Pie", ua.Name)
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRestaurant(t, newMemStore())
			_, err := r.PlaceOrder(context.Background(), tt.req)
			require.Error(t, err)
			tt.check(t, err)

			assert.Empty(t, r.Orders())
			assert.Empty(t, r.Customers())
		})
	}
}

func TestRestaurant_OfflineOrderIgnoresDistance(t *testing.T) {
	r := newTestRestaurant(t, newMemStore())
	_, err := r.PlaceOrder(context.Background(), PlaceOrderRequest{
		Customer:   "Alice",
		DistanceKm: 100,
		Items:      []string{"Burger"},
	})
	require.NoError(t, err)
}

func TestRestaurant_AddOrderRelinksCustomer(t *testing.T) {
	r := newTestRestaurant(t, newMemStore())
	alice := customer.New("Alice", true)
	require.NoError(t, r.AddCustomer(alice))

	o := order.New(customer.New("Alice", false), false)
	require.NoError(t, r.AddOrder(o))
	assert.Same(t, alice, o.Customer)

	require.NoError(t, r.AddOrder(order.New(customer.New("Carol", false), true)))
	_, ok := r.FindCustomer("Carol")
	assert.True(t, ok)
}

func TestRestaurant_AddOrderRequiresCustomer(t *testing.T) {
	r := newTestRestaurant(t, newMemStore())

	require.ErrorIs(t, r.AddOrder(order.New(nil, false)), ErrCustomerNameRequired)
	require.ErrorIs(t, r.AddOrder(order.New(customer.New("", false), true)), ErrCustomerNameRequired)

	assert.Empty(t, r.Orders())
	assert.Empty(t, r.Customers())
}

func TestRestaurant_ViewOrders(t *testing.T) {
	ctx := context.Background()
	r := newTestRestaurant(t, newMemStore())
	_, err := r.PlaceOrder(ctx, PlaceOrderRequest{Customer: "Alice", Items: []string{"Burger"}})
	require.NoError(t, err)

	view := r.ViewOrders("Alice")

	// Orders placed after the sequence was created are visible.
	_, err = r.PlaceOrder(ctx, PlaceOrderRequest{Customer: "Alice", Online: true, Items: []string{"Cola"}})
	require.NoError(t, err)

	want := []string{
		"Order for Alice (In-Person): $8.50",
		"Order for Alice (Online): $2.00",
	}
	assert.Equal(t, want, slices.Collect(view))
	assert.Equal(t, want, slices.Collect(view))

	for line := range view {
		assert.Equal(t, want[0], line)
		break
	}

	assert.Empty(t, slices.Collect(r.ViewOrders("Nobody")))
}

func TestRestaurant_SaveLoadAll(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	src := newTestRestaurant(t, s)
	populate(t, src)
	require.NoError(t, src.SaveAll(ctx))
	assert.Equal(t, []string{"menu", "tables", "couriers", "orders", "customers"}, s.writes)

	dst, err := New(Config{TableCount: 1}, s)
	require.NoError(t, err)
	report, err := dst.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"menu", "tables", "couriers", "orders", "customers"}, report.Loaded)
	assert.Empty(t, report.Dropped)
	assert.Empty(t, report.Diverged)

	assert.Equal(t, 3, dst.Menu().Len())
	require.Len(t, dst.Tables(), 3)
	assert.True(t, dst.Tables()[1].IsReserved())
	assert.Equal(t, src.Couriers(), dst.Couriers())

	require.Len(t, dst.Customers(), 2)
	alice, ok := dst.FindCustomer("Alice")
	require.True(t, ok)
	assert.True(t, alice.IsMember)

	require.Len(t, dst.Orders(), 3)
	for i, o := range dst.Orders() {
		want := src.Orders()[i]
		assert.Equal(t, want.ID, o.ID)
		assert.True(t, want.Total().Equal(o.Total()))
		assert.Equal(t, want.IsOnline, o.IsOnline)
		c, ok := dst.FindCustomer(o.CustomerName())
		require.True(t, ok)
		assert.Same(t, c, o.Customer)
	}
	assert.Len(t, dst.PreviousOrders("Alice"), 2)
}

func TestRestaurant_LoadDropsOrphanOrders(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	src := newTestRestaurant(t, s)
	populate(t, src)
	require.NoError(t, src.SaveAll(ctx))

	// Remove Bob from the customers artifact.
	s.data["customers"] = slices.DeleteFunc(s.data["customers"], func(r record.Record) bool {
		return r["name"] == "Bob"
	})

	dst, err := New(Config{}, s)
	require.NoError(t, err)
	report, err := dst.LoadAll(ctx)
	require.NoError(t, err)

	require.Len(t, report.Dropped, 1)
	dropped := report.Dropped[0]
	assert.Equal(t, "Bob", dropped.Customer)
	assert.Equal(t, src.Orders()[1].ID, dropped.OrderID)
	assert.Equal(t, 2, dropped.Row)

	assert.Len(t, dst.Orders(), 2)
	for _, o := range dst.Orders() {
		assert.Equal(t, "Alice", o.CustomerName())
	}
}

func TestRestaurant_LoadReportsDivergedHistory(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	src := newTestRestaurant(t, s)
	populate(t, src)
	require.NoError(t, src.SaveAll(ctx))

	for _, r := range s.data["customers"] {
		if r["name"] == "Alice" {
			r["previous_orders"] = "[]"
		}
	}

	dst, err := New(Config{}, s)
	require.NoError(t, err)
	report, err := dst.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, report.Diverged)
	assert.Len(t, dst.PreviousOrders("Alice"), 2)
}

func TestRestaurant_SaveAllPartialFailure(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	r := newTestRestaurant(t, s)
	populate(t, r)

	s.failWrite["couriers"] = errors.New("disk full")
	err := r.SaveAll(ctx)
	require.Error(t, err)

	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "couriers", se.Artifact)

	assert.Equal(t, []string{"menu", "tables"}, s.writes)
	assert.NotContains(t, s.data, "orders")
	assert.NotContains(t, s.data, "customers")
}

func TestRestaurant_LoadAllPartialFailure(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	src := newTestRestaurant(t, s)
	populate(t, src)
	require.NoError(t, src.SaveAll(ctx))
	s.data["couriers"] = append(s.data["couriers"], record.Record{"courier_id": ""})

	dst, err := New(Config{TableCount: 1}, s)
	require.NoError(t, err)
	dst.AddCourier(courier.New("keep"))

	report, err := dst.LoadAll(ctx)
	require.Error(t, err)

	var ve *record.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "couriers", ve.Artifact)
	assert.Equal(t, 2, ve.Row)
	assert.Equal(t, "courier_id", ve.Field)

	// Steps before the failure are applied, the rest are untouched.
	assert.Equal(t, []string{"menu", "tables"}, report.Loaded)
	assert.Equal(t, 3, dst.Menu().Len())
	assert.Len(t, dst.Tables(), 3)
	assert.Equal(t, []courier.Courier{{ID: "keep"}}, dst.Couriers())
	assert.Empty(t, dst.Orders())
	assert.Empty(t, dst.Customers())
}

func TestRestaurant_LoadAllUnreadableArtifact(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	src := newTestRestaurant(t, s)
	populate(t, src)
	require.NoError(t, src.SaveAll(ctx))
	s.failRead["tables"] = errors.New("corrupt")

	dst, err := New(Config{TableCount: 1}, s)
	require.NoError(t, err)
	report, err := dst.LoadAll(ctx)

	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "tables", se.Artifact)
	assert.Equal(t, []string{"menu"}, report.Loaded)
	assert.Len(t, dst.Tables(), 1)
}

func TestRestaurant_CustomersFailureKeepsOrders(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	src := newTestRestaurant(t, s)
	populate(t, src)
	require.NoError(t, src.SaveAll(ctx))
	s.data["customers"] = append(s.data["customers"], maps.Clone(s.data["customers"][0]))

	dst := newTestRestaurant(t, newMemStore())
	_, err := dst.PlaceOrder(ctx, PlaceOrderRequest{Customer: "Zed", Items: []string{"Cola"}})
	require.NoError(t, err)
	dst.store = s

	report, err := dst.LoadAll(ctx)
	var ve *record.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "customers", ve.Artifact)
	assert.Equal(t, 3, ve.Row)
	assert.Equal(t, []string{"menu", "tables", "couriers", "orders"}, report.Loaded)

	require.Len(t, dst.Orders(), 1)
	assert.Equal(t, "Zed", dst.Orders()[0].CustomerName())
	require.Len(t, dst.Customers(), 1)
}

func TestRestaurant_LoadRejectsDuplicateTables(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	src := newTestRestaurant(t, s)
	require.NoError(t, src.SaveAll(ctx))
	s.data["tables"] = append(s.data["tables"], maps.Clone(s.data["tables"][0]))

	dst, err := New(Config{TableCount: 1}, s)
	require.NoError(t, err)
	_, err = dst.LoadAll(ctx)

	var ve *record.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "tables", ve.Artifact)
	assert.Equal(t, "table_id", ve.Field)
	assert.Len(t, dst.Tables(), 1)
}

func TestRestaurant_Initialize(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	first := newTestRestaurant(t, s)
	report, err := first.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"menu", "tables", "couriers", "orders", "customers"}, report.Created)
	assert.Empty(t, report.Loaded)
	assert.Len(t, s.data["tables"], 3)
	assert.Empty(t, s.data["orders"])

	populate(t, first)
	require.NoError(t, first.SaveAll(ctx))

	second, err := New(Config{TableCount: 10}, s)
	require.NoError(t, err)
	report, err = second.Initialize(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	assert.Len(t, report.Loaded, 5)
	assert.Len(t, second.Tables(), 3)
	assert.Len(t, second.Orders(), 3)
	assert.Len(t, second.PreviousOrders("Alice"), 2)
}

func TestRestaurant_InitializeMixed(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.data["tables"] = []record.Record{
		table.New(7, 2).ToRecord(),
	}

	r := newTestRestaurant(t, s)
	report, err := r.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"menu", "couriers", "orders", "customers"}, report.Created)
	assert.Equal(t, []string{"tables"}, report.Loaded)

	require.Len(t, r.Tables(), 1)
	assert.Equal(t, 7, r.Tables()[0].ID)
	assert.Len(t, s.data["menu"], 3)
}

func TestRestaurant_InitializeRelinksOrders(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.data["customers"] = []record.Record{
		{"name": "Alice", "is_member": "true", "previous_orders": "[]"},
	}

	r := newTestRestaurant(t, s)
	_, err := r.PlaceOrder(ctx, PlaceOrderRequest{Customer: "Alice", Items: []string{"Burger"}})
	require.NoError(t, err)
	_, err = r.PlaceOrder(ctx, PlaceOrderRequest{Customer: "Bob", Items: []string{"Cola"}})
	require.NoError(t, err)

	report, err := r.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers"}, report.Loaded)

	// The orders artifact was written before customers were replaced; Bob's
	// order no longer has a customer.
	require.Len(t, report.Dropped, 1)
	assert.Equal(t, "Bob", report.Dropped[0].Customer)
	assert.Zero(t, report.Dropped[0].Row)

	require.Len(t, r.Orders(), 1)
	alice, ok := r.FindCustomer("Alice")
	require.True(t, ok)
	assert.True(t, alice.IsMember)
	assert.Same(t, alice, r.Orders()[0].Customer)
	assert.Len(t, s.data["orders"], 2)
}

func TestRestaurant_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestRestaurant(t, newMemStore())
	populate(t, src)

	sets := src.Sets()
	require.Len(t, sets, len(Artifacts))
	for i, set := range sets {
		assert.Equal(t, Artifacts[i].Name, set.Schema.Name)
		for _, r := range set.Records {
			require.NoError(t, set.Schema.Check(r))
		}
	}

	dst, err := New(Config{}, newMemStore())
	require.NoError(t, err)
	report, err := dst.Import(ctx, sets)
	require.NoError(t, err)
	assert.Len(t, report.Loaded, 5)
	assert.Equal(t, src.Sets(), dst.Sets())

	empty, err := New(Config{TableCount: 2}, newMemStore())
	require.NoError(t, err)
	_, err = empty.Import(ctx, sets[:4])
	require.Error(t, err)
	assert.Zero(t, empty.Menu().Len(), "partial snapshot must not be applied")
}

func TestRestaurant_InitializeRewritesCreatedCustomers(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	src := newTestRestaurant(t, s)
	populate(t, src)
	require.NoError(t, src.SaveAll(ctx))
	delete(s.data, "customers")

	r := newTestRestaurant(t, s)
	require.NoError(t, r.AddCustomer(customer.New("Alice", true)))
	require.NoError(t, r.AddCustomer(customer.New("Bob", false)))
	report, err := r.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers"}, report.Created)
	assert.Empty(t, report.Dropped)

	var alice record.Record
	for _, rec := range s.data["customers"] {
		if rec["name"] == "Alice" {
			alice = rec
		}
	}
	require.NotNil(t, alice)
	history, err := order.DecodeHistory(alice["previous_orders"])
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
