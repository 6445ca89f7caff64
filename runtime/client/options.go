package client

import (
	"log/slog"

	"github.com/satishbabariya/loom/query/executor"
	"github.com/satishbabariya/loom/telemetry"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger statements are logged to at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTelemetry sets the recorder every execution is reported to.
func WithTelemetry(t telemetry.Telemetry) Option {
	return func(c *Client) {
		c.telemetry = t
	}
}

// WithMiddleware appends middlewares to the chain, outermost first.
func WithMiddleware(m ...Middleware) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, m...)
	}
}

// WithCollapse makes Get merge consecutive rows of the same root entity.
func WithCollapse() Option {
	return func(c *Client) {
		c.collapse = true
	}
}

// WithStatementCache reuses prepared statements per SQL string.
func WithStatementCache() Option {
	return func(c *Client) {
		c.execOpts = append(c.execOpts, executor.WithStatementCache())
	}
}
