package app

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/restaurant-desk/internal/domain/restaurant"
	"github.com/xenking/restaurant-desk/internal/storage"
	"github.com/xenking/restaurant-desk/internal/storage/postgres"
	"github.com/xenking/restaurant-desk/internal/storage/xlsx"
)

// ErrUsage is returned when the arguments name no known command.
var ErrUsage = errors.New("usage")

// Run opens the configured store and executes the command in args. It is
// the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config, args []string, out io.Writer) error {
	lg.Debug("Initializing",
		zap.String("driver", cfg.Storage.Driver),
		zap.Strings("args", args),
	)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return Execute(ctx, cfg, store, args, out,
		restaurant.WithTracerProvider(m.TracerProvider()),
		restaurant.WithMeterProvider(m.MeterProvider()),
	)
}

func openStore(ctx context.Context, cfg *Config) (storage.Store, func(), error) {
	switch cfg.Storage.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		return postgres.NewStore(pool), pool.Close, nil
	default:
		store, err := xlsx.New(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open xlsx store")
		}
		return store, func() {}, nil
	}
}

// session is the state a command runs against.
type session struct {
	r   *restaurant.Restaurant
	out io.Writer
	// dirty is set by commands that change state; the state is then saved.
	dirty bool
}

func (s *session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// warn prints the problems a load tolerated.
func (s *session) warn(report *restaurant.LoadReport) {
	for _, d := range report.Dropped {
		s.printf("warning: %v\n", d)
	}
	for _, c := range report.Diverged {
		s.printf("warning: stored order history of %s differs from orders\n", c)
	}
}

type handler func(ctx context.Context, s *session, args []string) error

// Execute initializes a restaurant on store, runs the command in args and,
// if the command changed anything, saves every artifact.
func Execute(ctx context.Context, cfg *Config, store storage.Store, args []string, out io.Writer, opts ...restaurant.Option) error {
	if len(args) > 0 && args[0] == checkCommand {
		return runChecks(zctx.With(ctx, zap.String("command", checkCommand)), cfg, store, out, opts...)
	}

	h, name, rest, err := lookup(args)
	if err != nil {
		_, _ = fmt.Fprint(out, usage())
		return err
	}
	ctx = zctx.With(ctx, zap.String("command", name))

	r, err := restaurant.New(cfg.Restaurant(), store, opts...)
	if err != nil {
		return errors.Wrap(err, "create restaurant")
	}
	report, err := r.Initialize(ctx)
	if err != nil {
		return errors.Wrap(err, "initialize")
	}
	s := &session{r: r, out: out}
	s.warn(report)

	if err := h(ctx, s, rest); err != nil {
		return errors.Wrap(err, name)
	}
	if !s.dirty {
		return nil
	}
	if err := r.SaveAll(ctx); err != nil {
		return errors.Wrap(err, "save")
	}
	return nil
}

// checkCommand inspects the store without initializing it.
const checkCommand = "check"

var commands = map[string]handler{
	"menu list":       menuList,
	"menu add":        menuAdd,
	"menu remove":     menuRemove,
	"menu search":     menuSearch,
	"menu import":     menuImport,
	"table list":      tableList,
	"table add":       tableAdd,
	"table reserve":   tableReserve,
	"table release":   tableRelease,
	"courier list":    courierList,
	"courier add":     courierAdd,
	"customer list":   customerList,
	"customer add":    customerAdd,
	"customer orders": customerOrders,
	"order list":      orderList,
	"order place":     orderPlace,
	"export":          exportSnapshot,
	"import":          importSnapshot,
}

func lookup(args []string) (handler, string, []string, error) {
	if len(args) >= 2 {
		name := args[0] + " " + args[1]
		if h, ok := commands[name]; ok {
			return h, name, args[2:], nil
		}
	}
	if len(args) >= 1 {
		if h, ok := commands[args[0]]; ok {
			return h, args[0], args[1:], nil
		}
	}
	return nil, "", nil, errors.Wrapf(ErrUsage, "unknown command %q", strings.Join(args, " "))
}

func usage() string {
	names := []string{checkCommand}
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range names {
		b.WriteString("  " + name + "\n")
	}
	return b.String()
}
