package database

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kkkkikiki/groupbuy/internal/config"
	"github.com/kkkkikiki/groupbuy/internal/database/migrations"
	"github.com/kkkkikiki/groupbuy/internal/logger"
)

// DB holds the database connection
type DB struct {
	SQL    *sqlx.DB
	Driver string
}

// NewDB opens the configured database, applies the schema and returns the handle
func NewDB(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	log = logger.OrNop(log)

	conn, err := sqlx.Connect(cfg.Driver, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	// Configure connection pool
	if cfg.Driver == config.DriverSQLite {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY churn.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxConns)
		conn.SetMaxIdleConns(cfg.MinConns)
	}
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Driver, err)
	}

	db := &DB{SQL: conn, Driver: cfg.Driver}
	if err := db.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info("Successfully connected to database", zap.String("driver", cfg.Driver))
	return db, nil
}

// Migrate applies the embedded schema for the driver. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	content, err := fs.ReadFile(migrations.FS, db.Driver+".sql")
	if err != nil {
		return fmt.Errorf("read schema for %s: %w", db.Driver, err)
	}
	for _, stmt := range splitStatements(string(content)) {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func splitStatements(content string) []string {
	var out []string
	for _, part := range strings.Split(content, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Ping checks connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	if err := db.SQL.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", db.Driver, err)
	}

	return nil
}
