package telemetry

import "context"

// Noop discards everything.
type Noop struct{}

// NewNoop creates a recorder that does nothing.
func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) RecordQuery(context.Context, QueryInfo) {}

func (*Noop) RecordError(context.Context, ErrorInfo) {}

func (*Noop) Flush(context.Context) error { return nil }

func (*Noop) Close(context.Context) error { return nil }

var _ Telemetry = (*Noop)(nil)
