// Package config loads process configuration from the environment, with an
// optional .env file for local development. Keys use dotted names internally
// ("meta.database.url") and map to upper-snake environment variables
// (META_DATABASE_URL).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backdate policy modes. The server maps these onto the ledger's backdate
// policy at startup.
const (
	BackdateOpen     = "open"
	BackdateFlexible = "flexible"
	BackdateStrict   = "strict"
)

// Config is the full configuration for the server and worker binaries.
type Config struct {
	App      App
	MetaDB   MetaDB
	Tenant   Tenant
	JWT      JWT
	Broker   Broker
	Backdate Backdate
	Outbox   Outbox
}

// App holds process-level settings.
type App struct {
	// Env is "development" or "production"
	Env      string
	Port     int
	LogLevel string

	IdempotencyEnabled bool
	PrewarmPools       bool
}

// Development reports whether the process runs in development mode.
func (a App) Development() bool {
	return a.Env != "production"
}

// MetaDB points at the meta-database holding the tenant registry.
type MetaDB struct {
	URL string
}

// Tenant configures per-tenant database pools. Zero values keep the pool
// manager's defaults.
type Tenant struct {
	DBUser     string
	DBPassword string

	MaxPools        int
	MaxConnsPerPool int
	PoolIdleTimeout time.Duration
}

// JWT holds token signing settings.
type JWT struct {
	Secret string
}

// Broker configures the AMQP event publisher. An empty URL disables
// publishing; the worker then logs events instead of forwarding them.
type Broker struct {
	URL      string
	Exchange string
}

// Backdate controls how far in the past ledger entries may land.
type Backdate struct {
	// Mode is one of open, flexible, strict
	Mode string

	// ClosedUntil rejects entries in months up to and including this one.
	// Zero means no hard floor.
	ClosedUntil time.Time

	// WarningDays is the flexible mode audit threshold.
	WarningDays int
}

// Outbox configures the worker's outbox relay.
type Outbox struct {
	BatchSize    int
	PollInterval time.Duration
}

// Load reads configuration from the environment and an optional .env file in
// the working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	// A missing .env is fine; deployments set real environment variables.
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: App{
			Env:                getString(v, "app.env", "development"),
			Port:               getInt(v, "app.port", 8080),
			LogLevel:           getString(v, "log.level", "info"),
			IdempotencyEnabled: getBool(v, "idempotency.enabled", true),
			PrewarmPools:       getBool(v, "prewarm.pools", false),
		},
		MetaDB: MetaDB{
			URL: getString(v, "meta.database.url", ""),
		},
		Tenant: Tenant{
			DBUser:          getString(v, "tenant.db.user", ""),
			DBPassword:      getString(v, "tenant.db.password", ""),
			MaxPools:        getInt(v, "tenant.max.pools", 0),
			MaxConnsPerPool: getInt(v, "tenant.max.conns.per.pool", 0),
			PoolIdleTimeout: getDuration(v, "tenant.pool.idle.timeout", 0),
		},
		JWT: JWT{
			Secret: getString(v, "jwt.secret", ""),
		},
		Broker: Broker{
			URL:      getString(v, "amqp.url", ""),
			Exchange: getString(v, "amqp.exchange", "bartally.events"),
		},
		Backdate: Backdate{
			Mode:        getString(v, "backdate.policy", BackdateOpen),
			WarningDays: getInt(v, "backdate.warning.days", 3),
		},
		Outbox: Outbox{
			BatchSize:    getInt(v, "outbox.batch.size", 50),
			PollInterval: getDuration(v, "outbox.poll.interval", 500*time.Millisecond),
		},
	}

	if raw := getString(v, "backdate.closed.until", ""); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			return nil, fmt.Errorf("parse BACKDATE_CLOSED_UNTIL %q: want YYYY-MM: %w", raw, err)
		}
		cfg.Backdate.ClosedUntil = t
	}

	switch cfg.Backdate.Mode {
	case BackdateOpen, BackdateFlexible, BackdateStrict:
	default:
		return nil, fmt.Errorf("unknown BACKDATE_POLICY %q: want open, flexible or strict", cfg.Backdate.Mode)
	}

	var missing []string
	if cfg.MetaDB.URL == "" {
		missing = append(missing, "META_DATABASE_URL")
	}
	if cfg.Tenant.DBUser == "" {
		missing = append(missing, "TENANT_DB_USER")
	}
	if cfg.Tenant.DBPassword == "" {
		missing = append(missing, "TENANT_DB_PASSWORD")
	}
	if cfg.JWT.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, fallback string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return fallback
}

func getInt(v *viper.Viper, key string, fallback int) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return fallback
}

func getBool(v *viper.Viper, key string, fallback bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return fallback
}

func getDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	if v.IsSet(key) {
		return v.GetDuration(key)
	}
	return fallback
}
