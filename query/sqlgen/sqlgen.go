// Package sqlgen renders compiled query state to SQL with positional "?"
// placeholders.
package sqlgen

import (
	"context"
	"fmt"

	"github.com/satishbabariya/loom/internal/debug"
	"github.com/satishbabariya/loom/query/ast"
	"github.com/satishbabariya/loom/query/compiler"
	"github.com/satishbabariya/loom/schema"
)

// Statement is the result of rendering. A failed render carries an empty SQL
// string, the parameters bound before the failure and the cause in Err.
type Statement struct {
	SQL  string
	Args []any
	Err  error
}

// Empty reports whether there is no SQL to execute.
func (s Statement) Empty() bool {
	return s.SQL == ""
}

// Saver persists an entity, assigning its identifier. The generator uses it
// to save unsaved associations before inserting the entity referencing them.
type Saver interface {
	Save(ctx context.Context, e schema.Entity) error
}

// Generator renders SELECT, INSERT and UPDATE statements.
type Generator struct {
	reg   *schema.Registry
	saver Saver
}

// NewGenerator creates a generator. saver may be nil, in which case
// inserting an entity with an unsaved association fails.
func NewGenerator(reg *schema.Registry, saver Saver) *Generator {
	return &Generator{reg: reg, saver: saver}
}

// Render renders state. It never panics and never returns an error directly:
// failures are reported through Statement.Err.
func (g *Generator) Render(ctx context.Context, state *ast.State, scope *compiler.Scope) (stmt Statement) {
	w := &writer{}
	defer func() {
		if r := recover(); r != nil {
			stmt = Statement{Args: w.args, Err: fmt.Errorf("%w: %v", ErrRenderPanic, r)}
		}
		if stmt.Err != nil {
			debug.Debug("render failed", "mode", state.Mode().String(), "error", stmt.Err)
		}
	}()

	var err error
	switch state.Mode() {
	case ast.ModeInsert:
		err = g.insert(ctx, w, state.Insert)
	case ast.ModeUpdate:
		err = g.update(ctx, w, state.Update)
	default:
		if scope == nil {
			err = ErrNoScope
			break
		}
		err = g.selectStatement(w, state, scope)
	}
	if err != nil {
		return Statement{Args: w.args, Err: err}
	}
	return Statement{SQL: w.String(), Args: w.args}
}
