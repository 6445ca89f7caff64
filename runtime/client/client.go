// Package client runs builder queries against a database and maps the
// results back to entities.
package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/satishbabariya/loom/internal/adapters/database"
	"github.com/satishbabariya/loom/internal/debug"
	"github.com/satishbabariya/loom/query/ast"
	"github.com/satishbabariya/loom/query/builder"
	"github.com/satishbabariya/loom/query/executor"
	"github.com/satishbabariya/loom/query/mapper"
	"github.com/satishbabariya/loom/query/sqlgen"
	"github.com/satishbabariya/loom/schema"
	"github.com/satishbabariya/loom/telemetry"
)

// Client executes queries for the entities of one registry. It is safe for
// concurrent use; the builders it hands out are not.
type Client struct {
	reg      *schema.Registry
	exec     *executor.Executor
	execOpts []executor.Option
	adapter  database.Adapter

	logger      *slog.Logger
	telemetry   telemetry.Telemetry
	middlewares []Middleware
	collapse    bool
}

// New creates a client running statements on q.
func New(reg *schema.Registry, q executor.Querier, opts ...Option) *Client {
	c := &Client{
		reg:       reg,
		logger:    debug.Logger(),
		telemetry: telemetry.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.exec = executor.New(q, c.execOpts...)
	return c
}

// Open connects to the database described by config and returns a client
// owning the connection.
func Open(ctx context.Context, reg *schema.Registry, config database.Config, opts ...Option) (*Client, error) {
	a, err := database.New(config)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", a.Driver(), err)
	}

	c := New(reg, a, opts...)
	c.adapter = a
	return c, nil
}

// Close releases cached statements and, for clients created by Open, the
// connection.
func (c *Client) Close(ctx context.Context) error {
	errs := []error{c.exec.Close()}
	if c.adapter != nil {
		errs = append(errs, c.adapter.Disconnect(ctx))
	}
	errs = append(errs, c.telemetry.Close(ctx))
	return errors.Join(errs...)
}

// Registry returns the registry the client resolves models against.
func (c *Client) Registry() *schema.Registry {
	return c.reg
}

// Query returns a builder rooted at model. Inserts rendered by it save
// unsaved associations through the client.
func (c *Client) Query(model any, alias string) (*builder.Builder, error) {
	return builder.New(c.reg, model, alias, builder.WithSaver(c))
}

// Get runs the select rendered by b and maps every row. With WithCollapse,
// consecutive rows of the same root entity are merged.
func (c *Client) Get(ctx context.Context, b *builder.Builder) ([]schema.Entity, error) {
	model := b.Entity().Name()
	if b.Mode() != ast.ModeSelect {
		return nil, &QueryError{Op: ast.ModeSelect.String(), Model: model, Err: ErrNotSelect}
	}

	scope, err := b.Scope()
	if err != nil {
		return nil, &QueryError{Op: ast.ModeSelect.String(), Model: model, Err: err}
	}

	stmt := b.Render(ctx)
	var rows []ast.Row
	err = c.run(ctx, ast.ModeSelect.String(), model, stmt, func() (int64, error) {
		var err error
		rows, err = c.exec.Query(ctx, stmt)
		return int64(len(rows)), err
	})
	if err != nil {
		return nil, err
	}

	entities := mapper.New(scope).Map(rows)
	if c.collapse {
		entities = mapper.Collapse(b.Entity(), entities)
	}
	return entities, nil
}

// GetOne limits b to one row and returns its entity, or ErrNotFound.
func (c *Client) GetOne(ctx context.Context, b *builder.Builder) (schema.Entity, error) {
	entities, err := c.Get(ctx, b.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		stmt := b.Render(ctx)
		return nil, &QueryError{Op: ast.ModeSelect.String(), Model: b.Entity().Name(), SQL: stmt.SQL, Args: stmt.Args, Err: ErrNotFound}
	}
	return entities[0], nil
}

// Save inserts e. Associations without an identifier are saved first. The
// generated identifier is written back into e.
func (c *Client) Save(ctx context.Context, e schema.Entity) error {
	op := ast.ModeInsert.String()
	d, err := c.reg.Lookup(e)
	if err != nil {
		return &QueryError{Op: op, Model: fmt.Sprintf("%T", e), Err: err}
	}

	b, err := builder.New(c.reg, e, "", builder.WithSaver(c))
	if err != nil {
		return &QueryError{Op: op, Model: d.Name(), Err: err}
	}
	stmt := b.Insert(e).Render(ctx)

	var res sql.Result
	err = c.run(ctx, op, d.Name(), stmt, func() (int64, error) {
		var err error
		res, err = c.exec.Exec(ctx, stmt)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		return n, nil
	})
	if err != nil {
		return err
	}

	if _, err := d.Identifier(); err != nil {
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return &QueryError{Op: op, Model: d.Name(), SQL: stmt.SQL, Args: stmt.Args, Err: fmt.Errorf("failed to read generated identifier: %w", err)}
	}
	if err := d.SetIdentifier(e, id); err != nil {
		return &QueryError{Op: op, Model: d.Name(), SQL: stmt.SQL, Args: stmt.Args, Err: err}
	}
	return nil
}

// Update writes every set property of e to the row matching its
// identifier.
func (c *Client) Update(ctx context.Context, e schema.Entity) error {
	op := ast.ModeUpdate.String()
	b, err := builder.New(c.reg, e, "", builder.WithSaver(c))
	if err != nil {
		return &QueryError{Op: op, Model: fmt.Sprintf("%T", e), Err: err}
	}
	stmt := b.Update(e).Render(ctx)

	return c.run(ctx, op, b.Entity().Name(), stmt, func() (int64, error) {
		res, err := c.exec.Exec(ctx, stmt)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		return n, nil
	})
}

func (c *Client) run(ctx context.Context, op, model string, stmt sqlgen.Statement, exec func() (int64, error)) error {
	event := &QueryEvent{
		ID:    uuid.NewString(),
		Op:    op,
		Model: model,
		Query: stmt.SQL,
		Args:  stmt.Args,
	}
	err := c.executeWithMiddleware(ctx, event, exec)

	c.logger.DebugContext(ctx, "query",
		"query_id", event.ID,
		"op", op,
		"model", model,
		"sql", stmt.SQL,
		"args", stmt.Args,
		"rows", event.Rows,
		"duration", event.Duration,
	)
	c.telemetry.RecordQuery(ctx, telemetry.QueryInfo{
		QueryID:   event.ID,
		Model:     model,
		Operation: op,
		Duration:  event.Duration,
		Success:   err == nil,
		Rows:      event.Rows,
	})

	if err != nil {
		c.telemetry.RecordError(ctx, telemetry.ErrorInfo{
			QueryID:   event.ID,
			Error:     err,
			Model:     model,
			Operation: op,
			Query:     stmt.SQL,
		})
		return &QueryError{Op: op, Model: model, SQL: stmt.SQL, Args: stmt.Args, Err: err}
	}
	return nil
}

var _ sqlgen.Saver = (*Client)(nil)
