package app

import (
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/restaurant-desk/internal/domain/restaurant"
)

// Storage drivers.
const (
	DriverXLSX     = "xlsx"
	DriverPostgres = "postgres"
)

// Config holds the complete application configuration, loadable from
// environment variables (RESTAURANT_ prefix) or YAML config files. Flags
// belong to the subcommands and are not read here.
type Config struct {
	Name          string  `default:"Restaurant" usage:"Restaurant display name"`
	TableCount    int     `default:"10" usage:"Number of tables a fresh restaurant starts with"`
	MaxDeliveryKm float64 `default:"5" usage:"Maximum delivery distance for online orders, km"`
	Storage       StorageConfig
}

// StorageConfig selects and configures the artifact store.
type StorageConfig struct {
	Driver      string `default:"xlsx" usage:"Artifact store: xlsx or postgres"`
	Dir         string `default:"restaurant_data" usage:"Directory holding the xlsx artifacts"`
	DatabaseURL string `usage:"PostgreSQL connection URL (RESTAURANT_STORAGE_DATABASE_URL or DATABASE_URL)"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "RESTAURANT",
		SkipFlags: true,
		Files:     []string{"restaurant.yaml", "/etc/restaurant/restaurant.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings the loader cannot express.
func (c *Config) Validate() error {
	if c.TableCount < 0 {
		return errors.Errorf("table count must not be negative, got %d", c.TableCount)
	}
	if c.MaxDeliveryKm < 0 {
		return errors.Errorf("max delivery distance must not be negative, got %g", c.MaxDeliveryKm)
	}
	switch c.Storage.Driver {
	case DriverXLSX:
		if c.Storage.Dir == "" {
			return errors.New("storage dir is required for the xlsx driver")
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set RESTAURANT_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Restaurant returns the construction parameters of the restaurant.
func (c *Config) Restaurant() restaurant.Config {
	return restaurant.Config{
		Name:          c.Name,
		TableCount:    c.TableCount,
		MaxDeliveryKm: c.MaxDeliveryKm,
	}
}

// applyPlatformDefaults maps the conventional DATABASE_URL variable to the
// storage configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
}
