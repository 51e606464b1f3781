package app

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/restaurant-desk/internal/domain/courier"
	"github.com/xenking/restaurant-desk/internal/domain/customer"
	"github.com/xenking/restaurant-desk/internal/domain/menu"
	"github.com/xenking/restaurant-desk/internal/domain/restaurant"
	"github.com/xenking/restaurant-desk/internal/domain/table"
	"github.com/xenking/restaurant-desk/internal/snapshot"
)

// Payment methods printed on the bill.
const (
	PaymentCash   = "cash"
	PaymentOnline = "online"
)

var (
	// ErrTableReserved is returned when reserving a table that is taken.
	ErrTableReserved = errors.New("table is already reserved")
	// ErrTableNotFound is returned for an unknown table id.
	ErrTableNotFound = errors.New("table not found")
)

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func newFlagSet(s *session, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(s.out)
	return fs
}

func menuList(_ context.Context, s *session, _ []string) error {
	for _, c := range s.r.Menu().ByCategory() {
		s.printf("%s:\n", strings.ToUpper(string(c.Kind)))
		for _, item := range c.Items {
			s.printf("  %s\n", item)
		}
	}
	return nil
}

func menuAdd(_ context.Context, s *session, args []string) error {
	fs := newFlagSet(s, "menu add")
	name := fs.String("name", "", "item name")
	price := fs.String("price", "", "item price")
	kind := fs.String("type", string(menu.KindFood), "item type: food or drink")
	unavailable := fs.Bool("unavailable", false, "add the item as unavailable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := decimal.NewFromString(*price)
	if err != nil {
		return errors.Wrapf(err, "parse price %q", *price)
	}
	item := menu.Item{
		Name:      strings.TrimSpace(*name),
		Price:     p,
		Kind:      menu.Kind(*kind),
		Available: !*unavailable,
	}
	if err := item.Validate(); err != nil {
		return err
	}
	s.r.Menu().Add(item)
	s.dirty = true
	s.printf("Added %s\n", item)
	return nil
}

func menuRemove(_ context.Context, s *session, args []string) error {
	fs := newFlagSet(s, "menu remove")
	name := fs.String("name", "", "item name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	before := s.r.Menu().Len()
	s.r.Menu().Remove(*name)
	if s.r.Menu().Len() == before {
		s.printf("No item named %q\n", *name)
		return nil
	}
	s.dirty = true
	s.printf("Removed %s\n", *name)
	return nil
}

func menuSearch(_ context.Context, s *session, args []string) error {
	query := strings.Join(args, " ")
	items := s.r.Menu().Search(query)
	if len(items) == 0 {
		s.printf("No items match %q\n", query)
		return nil
	}
	for _, item := range items {
		s.printf("%s\n", item)
	}
	return nil
}

func menuImport(_ context.Context, s *session, args []string) error {
	fs := newFlagSet(s, "menu import")
	file := fs.String("file", "", "JSON file holding an array of items")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return errors.Wrap(err, "read items")
	}
	items, err := menu.DecodeItems(string(data))
	if err != nil {
		return errors.Wrapf(err, "decode %s", *file)
	}
	for _, item := range items {
		s.r.Menu().Add(item)
	}
	s.dirty = len(items) > 0
	s.printf("Imported %d items\n", len(items))
	return nil
}

func tableList(_ context.Context, s *session, _ []string) error {
	for line := range s.r.DisplayTables() {
		s.printf("%s\n", line)
	}
	return nil
}

func tableAdd(_ context.Context, s *session, args []string) error {
	fs := newFlagSet(s, "table add")
	id := fs.Int("id", 0, "table id")
	capacity := fs.Int("capacity", table.DefaultCapacity, "number of seats")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *capacity < 1 {
		return errors.Errorf("capacity must be positive, got %d", *capacity)
	}

	t := table.New(*id, *capacity)
	if err := s.r.AddTable(t); err != nil {
		return err
	}
	s.dirty = true
	s.printf("Added %s\n", t)
	return nil
}

func findTable(s *session, args []string, name string) (*table.Table, error) {
	fs := newFlagSet(s, name)
	id := fs.Int("id", 0, "table id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	t, ok := s.r.FindTable(*id)
	if !ok {
		return nil, errors.Wrapf(ErrTableNotFound, "table %d", *id)
	}
	return t, nil
}

func tableReserve(_ context.Context, s *session, args []string) error {
	t, err := findTable(s, args, "table reserve")
	if err != nil {
		return err
	}
	if t.IsReserved() {
		return errors.Wrapf(ErrTableReserved, "table %d", t.ID)
	}
	t.Reserve()
	s.dirty = true
	s.printf("Reserved %s\n", t)
	return nil
}

func tableRelease(_ context.Context, s *session, args []string) error {
	t, err := findTable(s, args, "table release")
	if err != nil {
		return err
	}
	t.Release()
	s.dirty = true
	s.printf("Released %s\n", t)
	return nil
}

func courierList(_ context.Context, s *session, _ []string) error {
	for _, c := range s.r.Couriers() {
		s.printf("%s\n", c)
	}
	return nil
}

func courierAdd(_ context.Context, s *session, args []string) error {
	fs := newFlagSet(s, "courier add")
	id := fs.String("id", "", "courier id, generated when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := courier.New(strings.TrimSpace(*id))
	s.r.AddCourier(c)
	s.dirty = true
	s.printf("Added %s\n", c)
	return nil
}

func customerList(_ context.Context, s *session, _ []string) error {
	for _, c := range s.r.Customers() {
		s.printf("%s\n", c)
	}
	return nil
}

func customerAdd(_ context.Context, s *session, args []string) error {
	fs := newFlagSet(s, "customer add")
	name := fs.String("name", "", "customer name")
	member := fs.Bool("member", false, "register as a member")
	if err := fs.Parse(args); err != nil {
		return err
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		return restaurant.ErrCustomerNameRequired
	}

	c := customer.New(n, *member)
	if err := s.r.AddCustomer(c); err != nil {
		return err
	}
	s.dirty = true
	s.printf("Added %s\n", c)
	return nil
}

func customerOrders(_ context.Context, s *session, args []string) error {
	fs := newFlagSet(s, "customer orders")
	name := fs.String("name", "", "customer name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	n := 0
	for line := range s.r.ViewOrders(*name) {
		s.printf("%s\n", line)
		n++
	}
	if n == 0 {
		s.printf("No orders for %s\n", *name)
	}
	return nil
}

func orderList(_ context.Context, s *session, _ []string) error {
	for _, o := range s.r.Orders() {
		s.printf("%s  %s\n", o.ID, o)
	}
	return nil
}

func orderPlace(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet(s, "order place")
	var items stringList
	name := fs.String("customer", "", "customer name")
	fs.Var(&items, "item", "menu item name (repeatable)")
	online := fs.Bool("online", false, "online order for delivery")
	distance := fs.Float64("distance", 0, "delivery distance in km (online orders)")
	payment := fs.String("payment", PaymentCash, "payment method: cash or online")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *payment != PaymentCash && *payment != PaymentOnline {
		return errors.Errorf("unknown payment method %q", *payment)
	}

	o, err := s.r.PlaceOrder(ctx, restaurant.PlaceOrderRequest{
		Customer:   strings.TrimSpace(*name),
		Online:     *online,
		DistanceKm: *distance,
		Items:      items,
	})
	if err != nil {
		return err
	}
	s.dirty = true

	s.printf("%s\n", o)
	for _, item := range o.Items() {
		s.printf("  %-24s $%s\n", item.Name, item.Price.StringFixed(2))
	}
	s.printf("Payment: %s\n", *payment)
	return nil
}

func exportSnapshot(_ context.Context, s *session, args []string) (rerr error) {
	fs := newFlagSet(s, "export")
	out := fs.String("out", "restaurant.jsonl.gz", "snapshot file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return errors.Wrap(err, "create snapshot")
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrap(err, "close snapshot")
		}
	}()

	if err := snapshot.Write(f, s.r.Sets()); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	s.printf("Exported to %s\n", *out)
	return nil
}

func importSnapshot(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet(s, "import")
	in := fs.String("in", "restaurant.jsonl.gz", "snapshot file to read")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Open(*in)
	if err != nil {
		return errors.Wrap(err, "open snapshot")
	}
	defer func() { _ = f.Close() }()

	sets, err := snapshot.Read(f, restaurant.Artifacts)
	if err != nil {
		return errors.Wrap(err, "read snapshot")
	}
	report, err := s.r.Import(ctx, sets)
	if err != nil {
		return err
	}
	s.dirty = true
	s.warn(report)
	s.printf("Imported %s\n", strings.Join(report.Loaded, ", "))
	return nil
}
