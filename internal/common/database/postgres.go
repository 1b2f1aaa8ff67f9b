// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scheme-matcher/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the optional scheme catalog.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("postgres catalog is not configured")
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// CatalogSize reports how many schemes the catalog holds. An error here
// usually means the schemes table is missing.
func (c *PostgresClient) CatalogSize(ctx context.Context) (int, error) {
	var n int
	if err := c.DB.QueryRowContext(ctx, "SELECT count(*) FROM schemes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count schemes: %w", err)
	}
	return n, nil
}
