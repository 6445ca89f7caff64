package database

import (
	"context"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// MySQLAdapter connects through go-sql-driver/mysql.
type MySQLAdapter struct {
	conn
	config Config
}

// NewMySQL creates an unconnected MySQL adapter.
func NewMySQL(config Config) *MySQLAdapter {
	return &MySQLAdapter{config: config}
}

// DSN returns the data source name Connect uses.
func (a *MySQLAdapter) DSN() string {
	if a.config.URL != "" {
		return a.config.URL
	}

	port := a.config.Port
	if port == 0 {
		port = 3306
	}
	host := a.config.Host
	if host == "" {
		host = "127.0.0.1"
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.User = a.config.User
	cfg.Passwd = a.config.Password
	cfg.DBName = a.config.Name
	if a.config.ConnectTimeout > 0 {
		cfg.Timeout = a.config.ConnectTimeout
	}
	return cfg.FormatDSN()
}

// Connect implements Adapter.
func (a *MySQLAdapter) Connect(ctx context.Context) error {
	if err := a.open(ctx, MySQL, a.DSN(), a.config.ConnectTimeout); err != nil {
		return err
	}
	a.pool(a.config.MaxConnections, a.config.MaxIdleTime)
	return nil
}

// Driver implements Adapter.
func (a *MySQLAdapter) Driver() Driver { return MySQL }

var _ Adapter = (*MySQLAdapter)(nil)
