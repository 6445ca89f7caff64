// Package telemetry records query metrics for the runtime client.
package telemetry

import (
	"context"
	"time"
)

// Telemetry receives one call per executed statement.
type Telemetry interface {
	// RecordQuery records a statement execution.
	RecordQuery(ctx context.Context, info QueryInfo)

	// RecordError records a failed statement.
	RecordError(ctx context.Context, info ErrorInfo)

	// Flush flushes buffered data.
	Flush(ctx context.Context) error

	// Close releases the recorder.
	Close(ctx context.Context) error
}

// QueryInfo describes one execution.
type QueryInfo struct {
	// QueryID identifies the execution in logs.
	QueryID string

	// Model is the root entity.
	Model string

	// Operation is select, insert or update.
	Operation string

	Duration time.Duration
	Success  bool

	// Rows is the number of rows returned or affected.
	Rows int64
}

// ErrorInfo describes a failed execution.
type ErrorInfo struct {
	QueryID   string
	Error     error
	Model     string
	Operation string
	Query     string
}

// Config selects and configures a recorder.
type Config struct {
	// Type is noop or memory.
	Type string `mapstructure:"type"`

	// Buckets are the duration histogram bounds in seconds.
	Buckets []float64 `mapstructure:"buckets"`
}
