// Command restaurant manages a restaurant's menu, tables, couriers,
// customers and orders, persisted as spreadsheet artifacts or in PostgreSQL.
package main

import (
	"context"
	"os"

	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	appkg "github.com/xenking/restaurant-desk/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		ctx = zctx.Base(ctx, lg)
		return appkg.Run(ctx, lg, m, cfg, os.Args[1:], os.Stdout)
	})
}
