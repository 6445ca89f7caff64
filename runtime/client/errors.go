package client

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/loom/query/executor"
)

var (
	// ErrNotFound is returned by GetOne when no row matches.
	ErrNotFound = errors.New("no rows found")

	// ErrNotSelect is returned by Get for builders in insert or update mode.
	ErrNotSelect = errors.New("builder does not render a select")

	// ErrEmptyStatement is returned when a builder rendered no SQL.
	ErrEmptyStatement = executor.ErrEmptyStatement
)

// QueryError describes a failed execution.
type QueryError struct {
	Op    string
	Model string
	SQL   string
	Args  []any
	Err   error
}

func (e *QueryError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Model, e.Err)
	}
	return fmt.Sprintf("%s %s: %v (sql: %s)", e.Op, e.Model, e.Err, e.SQL)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
