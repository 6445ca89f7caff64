package database

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// PostgresAdapter connects through lib/pq. Statements are written with "?"
// placeholders and rebound to "$n" before they reach the driver.
type PostgresAdapter struct {
	conn
	config Config
}

// NewPostgres creates an unconnected PostgreSQL adapter.
func NewPostgres(config Config) *PostgresAdapter {
	return &PostgresAdapter{config: config}
}

// DSN returns the connection string Connect uses, in lib/pq key=value form.
func (a *PostgresAdapter) DSN() (string, error) {
	raw := a.config.URL
	if raw == "" {
		port := a.config.Port
		if port == 0 {
			port = 5432
		}
		host := a.config.Host
		if host == "" {
			host = "127.0.0.1"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(a.config.User, a.config.Password),
			Host:     net.JoinHostPort(host, strconv.Itoa(port)),
			Path:     "/" + a.config.Name,
			RawQuery: "sslmode=disable",
		}
		raw = u.String()
	}

	if !strings.HasPrefix(raw, "postgres://") && !strings.HasPrefix(raw, "postgresql://") {
		return raw, nil
	}
	return pq.ParseURL(raw)
}

// Connect implements Adapter.
func (a *PostgresAdapter) Connect(ctx context.Context) error {
	dsn, err := a.DSN()
	if err != nil {
		return err
	}
	if err := a.open(ctx, Postgres, dsn, a.config.ConnectTimeout); err != nil {
		return err
	}
	a.pool(a.config.MaxConnections, a.config.MaxIdleTime)
	return nil
}

// QueryContext implements Adapter.
func (a *PostgresAdapter) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return a.conn.QueryContext(ctx, Rebind(query), args...)
}

// ExecContext implements Adapter.
func (a *PostgresAdapter) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return a.conn.ExecContext(ctx, Rebind(query), args...)
}

// PrepareContext implements Adapter.
func (a *PostgresAdapter) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return a.conn.PrepareContext(ctx, Rebind(query))
}

// Driver implements Adapter.
func (a *PostgresAdapter) Driver() Driver { return Postgres }

// Rebind rewrites "?" placeholders as "$1", "$2", ... leaving quoted
// literals and identifiers untouched.
func Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}

	var (
		b     strings.Builder
		n     int
		quote rune
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ Adapter = (*PostgresAdapter)(nil)
