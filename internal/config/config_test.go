package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFromDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("driver = %q, want %q", cfg.Database.Driver, DriverPostgres)
	}
	if cfg.Pickup.CredentialTTL != 6*time.Hour {
		t.Fatalf("credential ttl = %v, want 6h", cfg.Pickup.CredentialTTL)
	}
	if cfg.Reservation.SweepInterval != 0 {
		t.Fatalf("sweep interval = %v, want disabled", cfg.Reservation.SweepInterval)
	}
	if got := cfg.Server.GetServerAddr(); got != "0.0.0.0:8080" {
		t.Fatalf("server addr = %q", got)
	}
	if !cfg.App.IsDevelopment() {
		t.Fatal("expected development environment by default")
	}
}

func TestLoadFromOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"DB_DRIVER":                  "sqlite",
		"DB_SQLITE_PATH":             "/tmp/gb.db",
		"PICKUP_CREDENTIAL_TTL":      "30m",
		"RESERVATION_SWEEP_INTERVAL": "2m",
		"APP_ENVIRONMENT":            "production",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pickup.CredentialTTL != 30*time.Minute {
		t.Fatalf("credential ttl = %v, want 30m", cfg.Pickup.CredentialTTL)
	}
	if cfg.Reservation.SweepInterval != 2*time.Minute {
		t.Fatalf("sweep interval = %v, want 2m", cfg.Reservation.SweepInterval)
	}
	if got := cfg.Database.GetDatabaseURL(); !strings.HasPrefix(got, "/tmp/gb.db?") {
		t.Fatalf("sqlite dsn = %q", got)
	}
	if !cfg.App.IsProduction() {
		t.Fatal("expected production environment")
	}
}

func TestLoadFromRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"DB_DRIVER": "mysql",
	}))
	if err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
