// Package executor executes rendered statements and materializes results.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/satishbabariya/loom/query/ast"
	"github.com/satishbabariya/loom/query/sqlgen"
)

// ErrEmptyStatement is returned for statements that rendered no SQL.
var ErrEmptyStatement = errors.New("statement is empty")

// Querier runs SQL. *sql.DB, *sql.Conn, *sql.Tx and the database adapters
// satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Preparer is implemented by queriers that can prepare statements.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Executor executes statements against a Querier.
type Executor struct {
	q         Querier
	cache     bool
	stmtCache map[string]*sql.Stmt
	cacheMu   sync.RWMutex
}

// Option configures an Executor.
type Option func(*Executor)

// WithStatementCache prepares each distinct SQL string once and reuses the
// prepared statement. It has no effect when the querier is not a Preparer.
func WithStatementCache() Option {
	return func(e *Executor) {
		e.cache = true
	}
}

// New creates an executor.
func New(q Querier, opts ...Option) *Executor {
	e := &Executor{
		q:         q,
		stmtCache: make(map[string]*sql.Stmt),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Querier returns the underlying querier.
func (e *Executor) Querier() Querier {
	return e.q
}

// Query runs a SELECT and returns every row keyed by column label.
func (e *Executor) Query(ctx context.Context, stmt sqlgen.Statement) ([]ast.Row, error) {
	if err := check(stmt); err != nil {
		return nil, err
	}

	var (
		rows *sql.Rows
		err  error
	)
	if s, ok := e.prepared(ctx, stmt.SQL); ok {
		rows, err = s.QueryContext(ctx, stmt.Args...)
	} else {
		rows, err = e.q.QueryContext(ctx, stmt.SQL, stmt.Args...)
	}
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	return ScanRows(rows)
}

// Exec runs an INSERT or UPDATE.
func (e *Executor) Exec(ctx context.Context, stmt sqlgen.Statement) (sql.Result, error) {
	if err := check(stmt); err != nil {
		return nil, err
	}

	var (
		res sql.Result
		err error
	)
	if s, ok := e.prepared(ctx, stmt.SQL); ok {
		res, err = s.ExecContext(ctx, stmt.Args...)
	} else {
		res, err = e.q.ExecContext(ctx, stmt.SQL, stmt.Args...)
	}
	if err != nil {
		return nil, fmt.Errorf("statement execution failed: %w", err)
	}
	return res, nil
}

func check(stmt sqlgen.Statement) error {
	if !stmt.Empty() {
		return nil
	}
	if stmt.Err != nil {
		return fmt.Errorf("%w: %w", ErrEmptyStatement, stmt.Err)
	}
	return ErrEmptyStatement
}

// prepared returns a cached prepared statement for query, preparing it on
// first use. ok is false when caching is off or preparation failed.
func (e *Executor) prepared(ctx context.Context, query string) (*sql.Stmt, bool) {
	if !e.cache {
		return nil, false
	}
	p, ok := e.q.(Preparer)
	if !ok {
		return nil, false
	}

	e.cacheMu.RLock()
	stmt, ok := e.stmtCache[query]
	e.cacheMu.RUnlock()
	if ok {
		return stmt, true
	}

	stmt, err := p.PrepareContext(ctx, query)
	if err != nil {
		return nil, false
	}

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if cached, ok := e.stmtCache[query]; ok {
		stmt.Close()
		return cached, true
	}
	e.stmtCache[query] = stmt
	return stmt, true
}

// Close closes every cached prepared statement.
func (e *Executor) Close() error {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	var errs []error
	for _, stmt := range e.stmtCache {
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.stmtCache = make(map[string]*sql.Stmt)
	return errors.Join(errs...)
}
