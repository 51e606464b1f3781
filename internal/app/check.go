package app

import (
	"context"
	"io"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/restaurant-desk/internal/domain/restaurant"
	"github.com/xenking/restaurant-desk/internal/record"
	"github.com/xenking/restaurant-desk/internal/storage"
	"github.com/xenking/restaurant-desk/pkg/health"
)

// ErrCheckFailed is returned by the check command when any check fails.
var ErrCheckFailed = errors.New("check failed")

const checkTimeout = 10 * time.Second

// runChecks verifies the store without initializing it: the store is
// reachable, every written artifact parses against its schema, and the
// artifacts load together without dropped orders or diverging history.
func runChecks(ctx context.Context, cfg *Config, store storage.Store, out io.Writer, opts ...restaurant.Option) error {
	c := health.New()
	if p, ok := store.(storage.Pinger); ok {
		c.Add("storage", checkTimeout, p.Ping)
	}
	for _, schema := range restaurant.Artifacts {
		c.Add("artifact "+schema.Name, checkTimeout, artifactCheck(store, schema))
	}
	c.Add("consistency", checkTimeout, consistencyCheck(cfg, store, opts))

	results := c.Run(ctx)
	failed := 0
	for _, r := range results {
		status := "ok"
		if !r.OK() {
			status = "FAIL"
			failed++
		}
		line := status + "\t" + r.Name
		if !r.OK() {
			line += ": " + r.Err.Error()
		}
		_, _ = io.WriteString(out, line+"\n")
	}
	if failed > 0 {
		return errors.Wrapf(ErrCheckFailed, "%d of %d checks", failed, len(results))
	}
	return nil
}

// artifactCheck reads the artifact and checks every row against schema. An
// artifact that was never written passes.
func artifactCheck(store storage.Store, schema record.Schema) health.CheckFunc {
	return func(ctx context.Context) error {
		ok, err := store.Exists(ctx, schema.Name)
		if err != nil || !ok {
			return err
		}
		records, err := store.Read(ctx, schema)
		if err != nil {
			return err
		}
		for i, r := range records {
			if err := schema.Check(r); err != nil {
				return record.AtRow(err, schema.Name, i+1)
			}
		}
		return nil
	}
}

// consistencyCheck loads every artifact into a scratch restaurant and fails
// on orders that would be dropped or stored history that differs. It passes
// when some artifact has not been written yet.
func consistencyCheck(cfg *Config, store storage.Store, opts []restaurant.Option) health.CheckFunc {
	return func(ctx context.Context) error {
		for _, schema := range restaurant.Artifacts {
			ok, err := store.Exists(ctx, schema.Name)
			if err != nil || !ok {
				return err
			}
		}

		r, err := restaurant.New(cfg.Restaurant(), store, opts...)
		if err != nil {
			return err
		}
		report, err := r.LoadAll(ctx)
		if err != nil {
			return err
		}
		if n := len(report.Dropped); n > 0 {
			return errors.Errorf("%d orders reference unknown customers (first: %v)", n, report.Dropped[0])
		}
		if n := len(report.Diverged); n > 0 {
			return errors.Errorf("stored order history differs for %v", report.Diverged)
		}
		return nil
	}
}
