package client

import (
	"context"
	"log/slog"
	"time"
)

// QueryEvent describes one statement execution as it passes through the
// middleware chain. Duration, End, Rows and Error are set once the
// statement has run.
type QueryEvent struct {
	ID       string
	Op       string
	Model    string
	Query    string
	Args     []any
	Rows     int64
	Duration time.Duration
	Error    error
	Start    time.Time
	End      time.Time
}

// Middleware intercepts statement executions. It must call next to run the
// statement.
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

func (c *Client) executeWithMiddleware(ctx context.Context, event *QueryEvent, exec func() (int64, error)) error {
	event.Start = time.Now()

	var next func() error
	index := 0

	next = func() error {
		if index >= len(c.middlewares) {
			rows, err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Rows = rows
			event.Error = err
			return err
		}

		middleware := c.middlewares[index]
		index++
		return middleware(ctx, event, next)
	}

	return next()
}

// LoggingMiddleware logs every statement and its outcome to logger.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		logger.InfoContext(ctx, "executing query", "query_id", event.ID, "op", event.Op, "sql", event.Query, "args", event.Args)
		err := next()
		if err != nil {
			logger.ErrorContext(ctx, "query failed", "query_id", event.ID, "error", err)
		} else {
			logger.InfoContext(ctx, "query completed", "query_id", event.ID, "rows", event.Rows, "duration", event.Duration)
		}
		return err
	}
}

// TimingMiddleware reports the duration of every statement.
func TimingMiddleware(onTiming func(query string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Query, event.Duration)
		}
		return err
	}
}

// ErrorMiddleware reports every failed statement.
func ErrorMiddleware(onError func(query string, err error)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event.Query, err)
		}
		return err
	}
}
