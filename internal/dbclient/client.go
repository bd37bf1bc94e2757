// Package dbclient runs the single-value SELECT queries used by DB assertions.
package dbclient

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	// postgres driver, the default for database.driver
	_ "github.com/lib/pq"

	"tcrun/pkg/logging"
)

// Querier executes a query expected to return one row with one column.
type Querier interface {
	ExecuteSelectQuery(ctx context.Context, query string) (any, error)
}

// Client implements Querier over sqlx.
type Client struct {
	db *sqlx.DB
}

// Open connects using a database/sql driver name and DSN and verifies the
// connection.
func Open(ctx context.Context, driver, dsn string) (*Client, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}
	logging.Info("DBClient", "Connected to %s database", driver)
	return &Client{db: db}, nil
}

// NewFromDB wraps an existing connection pool.
func NewFromDB(db *sql.DB, driver string) *Client {
	return &Client{db: sqlx.NewDb(db, driver)}
}

// ExecuteSelectQuery returns the single value selected by query. Byte slices
// are returned as strings. No rows is an error, as is more than one column.
func (c *Client) ExecuteSelectQuery(ctx context.Context, query string) (any, error) {
	logging.Debug("DBClient", "Query: %s", query)

	var value any
	if err := c.db.GetContext(ctx, &value, query); err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	return value, nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}
