package restaurant

import (
	"context"
	"slices"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/restaurant-desk/internal/domain/courier"
	"github.com/xenking/restaurant-desk/internal/domain/customer"
	"github.com/xenking/restaurant-desk/internal/domain/menu"
	"github.com/xenking/restaurant-desk/internal/domain/order"
	"github.com/xenking/restaurant-desk/internal/domain/table"
	"github.com/xenking/restaurant-desk/internal/record"
)

// Artifacts lists the persisted collections in save and load order.
var Artifacts = []record.Schema{
	menu.Schema,
	table.Schema,
	courier.Schema,
	order.Schema,
	customer.Schema,
}

// LoadReport describes what a load did beyond replacing collections.
type LoadReport struct {
	// Created lists artifacts that did not exist and were written from the
	// in-memory state (Initialize only).
	Created []string
	// Loaded lists artifacts read into memory.
	Loaded []string
	// Dropped lists orders whose customer could not be resolved.
	Dropped []*order.ReferentialIntegrityError
	// Diverged lists customers whose stored previous_orders disagree with
	// the orders artifact. The orders artifact wins.
	Diverged []string
}

// Sets returns the current state as one record set per artifact, in
// artifact order.
func (r *Restaurant) Sets() []record.Set {
	sets := make([]record.Set, len(Artifacts))
	for i, schema := range Artifacts {
		sets[i] = record.Set{Schema: schema, Records: r.records(schema.Name)}
	}
	return sets
}

func (r *Restaurant) records(artifact string) []record.Record {
	var records []record.Record
	switch artifact {
	case menu.Schema.Name:
		records = r.menu.Records()
	case table.Schema.Name:
		for _, t := range r.tables {
			records = append(records, t.ToRecord())
		}
	case courier.Schema.Name:
		for _, c := range r.couriers {
			records = append(records, c.ToRecord())
		}
	case order.Schema.Name:
		for _, o := range r.orders {
			records = append(records, o.ToRecord())
		}
	case customer.Schema.Name:
		for _, c := range r.customers {
			rec := c.ToRecord()
			rec["previous_orders"] = order.EncodeHistory(r.PreviousOrders(c.Name))
			records = append(records, rec)
		}
	}
	if records == nil {
		records = []record.Record{}
	}
	return records
}

// Initialize brings the storage and the in-memory state together: every
// artifact that does not exist yet is written from the current state, every
// artifact that exists replaces the corresponding collection. Artifacts are
// handled in Artifacts order and the first failure stops the process.
func (r *Restaurant) Initialize(ctx context.Context) (_ *LoadReport, rerr error) {
	ctx, span := r.tracer.Start(ctx, "restaurant.Initialize")
	defer func() { endSpan(span, rerr) }()

	lg := zctx.From(ctx)
	l := r.newLoader()
	for _, schema := range Artifacts {
		ok, err := r.store.Exists(ctx, schema.Name)
		if err != nil {
			return l.report, errors.Wrapf(err, "check %s", schema.Name)
		}
		if !ok {
			if err := r.save(ctx, schema); err != nil {
				return l.report, err
			}
			l.report.Created = append(l.report.Created, schema.Name)
			lg.Info("Artifact created", zap.String("artifact", schema.Name))
			continue
		}

		records, err := r.store.Read(ctx, schema)
		if err != nil {
			return l.report, errors.Wrapf(err, "load %s", schema.Name)
		}
		if err := l.apply(ctx, schema, records); err != nil {
			return l.report, errors.Wrapf(err, "load %s", schema.Name)
		}
		lg.Info("Artifact loaded", zap.String("artifact", schema.Name), zap.Int("rows", len(records)))
	}
	if err := l.finish(ctx); err != nil {
		return l.report, err
	}
	// A customers artifact created before the stored orders were resolved
	// carries an empty history; rewrite it from the resolved orders.
	if l.ordersRead && slices.Contains(l.report.Created, customer.Schema.Name) {
		if err := r.save(ctx, customer.Schema); err != nil {
			return l.report, err
		}
	}
	return l.report, nil
}

// SaveAll writes every artifact in Artifacts order. It is not atomic: when
// an artifact fails, the ones before it have been written and the ones after
// it are left as they were.
func (r *Restaurant) SaveAll(ctx context.Context) (rerr error) {
	ctx, span := r.tracer.Start(ctx, "restaurant.SaveAll")
	defer func() { endSpan(span, rerr) }()

	for _, schema := range Artifacts {
		if err := r.save(ctx, schema); err != nil {
			return err
		}
	}
	zctx.From(ctx).Info("All artifacts saved", zap.Int("artifacts", len(Artifacts)))
	return nil
}

func (r *Restaurant) save(ctx context.Context, schema record.Schema) error {
	records := r.records(schema.Name)
	if err := r.store.Write(ctx, schema, records); err != nil {
		return errors.Wrapf(err, "save %s", schema.Name)
	}
	r.countRows(ctx, schema.Name, "write", len(records))
	return nil
}

type readResult struct {
	records []record.Record
	err     error
}

// LoadAll replaces every collection with the content of its artifact. The
// artifacts are read concurrently and applied in Artifacts order; the first
// unreadable or invalid artifact stops the load, leaving the collections
// before it replaced and the ones after it untouched. Orders are resolved
// against the customers loaded in the same call, so a failure in either
// leaves both as they were.
func (r *Restaurant) LoadAll(ctx context.Context) (_ *LoadReport, rerr error) {
	ctx, span := r.tracer.Start(ctx, "restaurant.LoadAll")
	defer func() { endSpan(span, rerr) }()

	results := make([]readResult, len(Artifacts))
	var g errgroup.Group
	for i, schema := range Artifacts {
		g.Go(func() error {
			records, err := r.store.Read(ctx, schema)
			results[i] = readResult{records: records, err: err}
			return nil
		})
	}
	_ = g.Wait()

	l := r.newLoader()
	for i, schema := range Artifacts {
		if err := results[i].err; err != nil {
			return l.report, errors.Wrapf(err, "load %s", schema.Name)
		}
		if err := l.apply(ctx, schema, results[i].records); err != nil {
			return l.report, errors.Wrapf(err, "load %s", schema.Name)
		}
	}
	if err := l.finish(ctx); err != nil {
		return l.report, err
	}
	return l.report, nil
}

// Import replaces every collection with the given sets, as LoadAll does with
// stored artifacts. Nothing is changed unless every artifact is present in
// sets.
func (r *Restaurant) Import(ctx context.Context, sets []record.Set) (_ *LoadReport, rerr error) {
	ctx, span := r.tracer.Start(ctx, "restaurant.Import")
	defer func() { endSpan(span, rerr) }()

	byName := make(map[string][]record.Record, len(sets))
	for _, s := range sets {
		byName[s.Schema.Name] = s.Records
	}
	for _, schema := range Artifacts {
		if _, ok := byName[schema.Name]; !ok {
			return &LoadReport{}, errors.Errorf("no %s in snapshot", schema.Name)
		}
	}

	l := r.newLoader()
	for _, schema := range Artifacts {
		if err := l.apply(ctx, schema, byName[schema.Name]); err != nil {
			return l.report, errors.Wrapf(err, "import %s", schema.Name)
		}
	}
	if err := l.finish(ctx); err != nil {
		return l.report, err
	}
	return l.report, nil
}

// loader stages one load. Orders are parsed when their artifact is applied
// but only resolved in finish, after the customers are in place.
type loader struct {
	r      *Restaurant
	report *LoadReport

	pending        []order.Pending
	ordersRead     bool
	customersRead  bool
	storedHistory  map[string][]order.Pending
	previousOrders []*order.Order
}

func (r *Restaurant) newLoader() *loader {
	return &loader{r: r, report: &LoadReport{}}
}

// apply validates every row of one artifact and, only if all rows are
// valid, installs them.
func (l *loader) apply(ctx context.Context, schema record.Schema, records []record.Record) error {
	r := l.r
	switch schema.Name {
	case menu.Schema.Name:
		if err := r.menu.SetRecords(records); err != nil {
			return err
		}
	case table.Schema.Name:
		tables, err := decodeTables(records)
		if err != nil {
			return err
		}
		r.tables = tables
	case courier.Schema.Name:
		couriers := make([]courier.Courier, len(records))
		for i, rec := range records {
			c, err := courier.FromRecord(rec)
			if err != nil {
				return record.AtRow(err, schema.Name, i+1)
			}
			couriers[i] = c
		}
		r.couriers = couriers
	case order.Schema.Name:
		pending := make([]order.Pending, len(records))
		for i, rec := range records {
			p, err := order.ParseRecord(rec)
			if err != nil {
				return record.AtRow(err, schema.Name, i+1)
			}
			pending[i] = p
		}
		l.pending = pending
		l.ordersRead = true
	case customer.Schema.Name:
		customers, history, err := decodeCustomers(records)
		if err != nil {
			return err
		}
		// Orders staged but not yet resolved keep their customer by name;
		// orders already in memory are re-linked in finish.
		l.previousOrders = r.orders
		r.customers = customers
		l.storedHistory = history
		l.customersRead = true
	default:
		return errors.Errorf("unknown artifact %q", schema.Name)
	}

	l.report.Loaded = append(l.report.Loaded, schema.Name)
	r.countRows(ctx, schema.Name, "read", len(records))
	return nil
}

// finish resolves staged orders against the current customers and checks
// the customers' stored history against the resolved orders.
func (l *loader) finish(ctx context.Context) error {
	r := l.r
	switch {
	case l.ordersRead:
	case l.customersRead:
		// Customers were replaced but orders were not: re-link the orders
		// already in memory to the new customer instances.
		for _, o := range l.previousOrders {
			l.pending = append(l.pending, o.Detach())
		}
	default:
		return nil
	}

	lg := zctx.From(ctx)
	orders := make([]*order.Order, 0, len(l.pending))
	for i, p := range l.pending {
		o, err := p.Resolve(r.FindCustomer)
		if err != nil {
			var rie *order.ReferentialIntegrityError
			if !errors.As(err, &rie) {
				return errors.Wrapf(err, "resolve order %s", p.ID)
			}
			if l.ordersRead {
				rie.Row = i + 1
			}
			l.report.Dropped = append(l.report.Dropped, rie)
			r.dropped.Add(ctx, 1)
			lg.Warn("Order dropped: unknown customer",
				zap.String("order_id", rie.OrderID),
				zap.String("customer", rie.Customer),
				zap.Int("row", rie.Row),
			)
			continue
		}
		orders = append(orders, o)
	}
	r.orders = orders

	for _, c := range r.customers {
		stored, ok := l.storedHistory[c.Name]
		if !ok {
			continue
		}
		if !sameHistory(stored, r.PreviousOrders(c.Name)) {
			l.report.Diverged = append(l.report.Diverged, c.Name)
			lg.Warn("Stored customer history differs from orders",
				zap.String("customer", c.Name),
				zap.Int("stored", len(stored)),
				zap.Int("orders", len(r.PreviousOrders(c.Name))),
			)
		}
	}
	return nil
}

func decodeTables(records []record.Record) ([]*table.Table, error) {
	tables := make([]*table.Table, len(records))
	seen := make(map[int]bool, len(records))
	for i, rec := range records {
		t, err := table.FromRecord(rec)
		if err != nil {
			return nil, record.AtRow(err, table.Schema.Name, i+1)
		}
		if seen[t.ID] {
			return nil, record.AtRow(record.Invalid("table_id", strconv.Itoa(t.ID), "duplicate table id"), table.Schema.Name, i+1)
		}
		seen[t.ID] = true
		tables[i] = t
	}
	return tables, nil
}

func decodeCustomers(records []record.Record) ([]*customer.Customer, map[string][]order.Pending, error) {
	customers := make([]*customer.Customer, len(records))
	history := make(map[string][]order.Pending, len(records))
	for i, rec := range records {
		c, err := customer.FromRecord(rec)
		if err != nil {
			return nil, nil, record.AtRow(err, customer.Schema.Name, i+1)
		}
		if _, dup := history[c.Name]; dup {
			return nil, nil, record.AtRow(record.Invalid("name", c.Name, "duplicate customer name"), customer.Schema.Name, i+1)
		}
		cell, err := rec.JSON("previous_orders")
		if err != nil {
			return nil, nil, record.AtRow(err, customer.Schema.Name, i+1)
		}
		stored, err := order.DecodeHistory(cell)
		if err != nil {
			return nil, nil, record.AtRow(err, customer.Schema.Name, i+1)
		}
		customers[i] = c
		history[c.Name] = stored
	}
	return customers, history, nil
}

func sameHistory(stored []order.Pending, orders []*order.Order) bool {
	if len(stored) != len(orders) {
		return false
	}
	for i, p := range stored {
		if p.ID != orders[i].ID || !p.Total.Equal(orders[i].Total()) {
			return false
		}
	}
	return true
}

func (r *Restaurant) countRows(ctx context.Context, artifact, op string, n int) {
	r.rows.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("artifact", artifact),
		attribute.String("op", op),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
