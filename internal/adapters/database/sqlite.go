package database

import (
	"context"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3" // registers sqlite3
)

// SQLiteAdapter connects through mattn/go-sqlite3. Each schema in
// Config.Attach is attached under its name, and the pool is limited to one
// connection since attachments and in-memory databases are per connection.
type SQLiteAdapter struct {
	conn
	config Config
}

// NewSQLite creates an unconnected SQLite adapter.
func NewSQLite(config Config) *SQLiteAdapter {
	return &SQLiteAdapter{config: config}
}

// DSN returns the main database file, ":memory:" when none is configured.
func (a *SQLiteAdapter) DSN() string {
	if a.config.URL != "" {
		return a.config.URL
	}
	if a.config.Name != "" {
		return a.config.Name
	}
	return ":memory:"
}

// Connect implements Adapter.
func (a *SQLiteAdapter) Connect(ctx context.Context) error {
	if err := a.open(ctx, SQLite, a.DSN(), a.config.ConnectTimeout); err != nil {
		return err
	}
	a.db.SetMaxOpenConns(1)
	a.db.SetMaxIdleConns(1)
	a.db.SetConnMaxLifetime(0)
	a.db.SetConnMaxIdleTime(0)

	if _, err := a.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		a.Disconnect(ctx)
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	names := make([]string, 0, len(a.config.Attach))
	for name := range a.config.Attach {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := a.db.ExecContext(ctx, fmt.Sprintf("ATTACH DATABASE ? AS %q", name), a.config.Attach[name]); err != nil {
			a.Disconnect(ctx)
			return fmt.Errorf("failed to attach %s: %w", name, err)
		}
	}
	return nil
}

// Driver implements Adapter.
func (a *SQLiteAdapter) Driver() Driver { return SQLite }

var _ Adapter = (*SQLiteAdapter)(nil)
