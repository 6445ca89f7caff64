package telemetry

import "fmt"

// Type names a recorder implementation.
type Type string

const (
	TypeNoop   Type = "noop"
	TypeMemory Type = "memory"
)

// New creates the recorder named by config. A nil config or an empty type
// yields a no-op recorder.
func New(config *Config) (Telemetry, error) {
	if config == nil {
		return NewNoop(), nil
	}

	switch Type(config.Type) {
	case TypeNoop, "":
		return NewNoop(), nil
	case TypeMemory:
		return NewMemory(config.Buckets...), nil
	default:
		return nil, fmt.Errorf("unknown telemetry type: %s", config.Type)
	}
}
