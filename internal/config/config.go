package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `env:",prefix=SERVER_"`

	// Database configuration
	Database DatabaseConfig `env:",prefix=DB_"`

	// Application configuration
	App AppConfig `env:",prefix=APP_"`

	// Reservation housekeeping
	Reservation ReservationConfig `env:",prefix=RESERVATION_"`

	// Pickup self-service configuration
	Pickup PickupConfig `env:",prefix=PICKUP_"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string `env:"PORT,default=8080"`
	Host         string `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=30"` // seconds
}

// DatabaseConfig holds storage configuration. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver     string `env:"DRIVER,default=postgres"`
	Host       string `env:"HOST,default=localhost"`
	Port       string `env:"PORT,default=5432"`
	User       string `env:"USER,default=postgres"`
	Password   string `env:"PASSWORD,default=postgres"`
	Name       string `env:"NAME,default=groupbuy"`
	SSLMode    string `env:"SSL_MODE,default=disable"`
	MaxConns   int    `env:"MAX_CONNS,default=25"`
	MinConns   int    `env:"MIN_CONNS,default=5"`
	SQLitePath string `env:"SQLITE_PATH,default=groupbuy.db"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	Debug       bool   `env:"DEBUG,default=false"`
}

// ReservationConfig holds optional maintenance settings. A zero interval leaves
// expiry to the lazy sweep that reserve runs on the campaign it touches.
type ReservationConfig struct {
	SweepInterval time.Duration `env:"SWEEP_INTERVAL,default=0s"`
}

// PickupConfig holds pickup credential settings
type PickupConfig struct {
	CredentialTTL time.Duration `env:"CREDENTIAL_TTL,default=6h"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom loads configuration from the given lookuper
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the driver selection
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
}

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// GetDatabaseURL returns the data source name for the configured driver
func (c *DatabaseConfig) GetDatabaseURL() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
