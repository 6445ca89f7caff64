// Package database opens connections for the supported SQL drivers.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotConnected  = errors.New("database not connected")
	ErrUnknownDriver = errors.New("unknown database driver")
)

// Driver names a supported driver.
type Driver string

const (
	MySQL    Driver = "mysql"
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite3"
)

// Adapter is a connected database. It satisfies executor.Querier.
type Adapter interface {
	// Connect opens and verifies the connection pool.
	Connect(ctx context.Context) error

	// Disconnect closes the pool.
	Disconnect(ctx context.Context) error

	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)

	// Ping checks the connection.
	Ping(ctx context.Context) error

	// Driver returns the driver name.
	Driver() Driver
}

// Config holds connection settings. URL, when set, is used as the DSN
// verbatim; otherwise the DSN is assembled from the individual fields.
type Config struct {
	Driver   string
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Attach maps schema names to SQLite database files, ":memory:"
	// included, so that "schema.table" names resolve.
	Attach map[string]string

	MaxConnections int
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
}

// New returns an unconnected adapter for config.Driver.
func New(config Config) (Adapter, error) {
	switch Driver(config.Driver) {
	case MySQL, "":
		return NewMySQL(config), nil
	case Postgres, "postgresql":
		return NewPostgres(config), nil
	case SQLite, "sqlite":
		return NewSQLite(config), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, config.Driver)
	}
}

// conn holds the pool shared by every adapter.
type conn struct {
	db *sql.DB
}

func (c *conn) open(ctx context.Context, driver Driver, dsn string, timeout time.Duration) error {
	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.db = db
	return nil
}

func (c *conn) Disconnect(context.Context) error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db.QueryContext(ctx, query, args...)
}

func (c *conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db.ExecContext(ctx, query, args...)
}

func (c *conn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db.PrepareContext(ctx, query)
}

func (c *conn) Ping(ctx context.Context) error {
	if c.db == nil {
		return ErrNotConnected
	}
	return c.db.PingContext(ctx)
}

// DB returns the underlying pool, or nil before Connect.
func (c *conn) DB() *sql.DB {
	return c.db
}

func (c *conn) pool(maxConns int, idle time.Duration) {
	if maxConns <= 0 {
		maxConns = 10
	}
	c.db.SetMaxOpenConns(maxConns)
	c.db.SetMaxIdleConns(max(maxConns/2, 1))
	if idle > 0 {
		c.db.SetConnMaxIdleTime(idle)
	}
}
