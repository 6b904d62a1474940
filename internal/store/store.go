// Package store implements the relational data store collaborators against
// PostgreSQL. Every query method takes a domain.Scope; there is no way to
// read or write tenant data without naming the tenant.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/fitgrid/franchise-dashboard/internal/config"
)

// ErrNotFound is returned when a scoped lookup matches no row. A row that
// exists under a different tenant is indistinguishable from a missing row.
var ErrNotFound = errors.New("record not found")

// Open connects to PostgreSQL and verifies the connection.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return db, nil
}
