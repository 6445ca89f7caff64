// Package builder provides the fluent query builder. A Builder accumulates
// select columns, joins, predicates, ordering, a limit or a mutation
// payload, and renders exactly one SQL statement with its ordered
// parameters.
package builder

import (
	"context"
	"fmt"
	"reflect"

	"github.com/satishbabariya/loom/query/ast"
	"github.com/satishbabariya/loom/query/compiler"
	"github.com/satishbabariya/loom/query/sqlgen"
	"github.com/satishbabariya/loom/schema"
)

// Builder builds one query. It is not safe for concurrent use.
type Builder struct {
	reg   *schema.Registry
	root  *schema.Descriptor
	saver sqlgen.Saver
	state ast.State
	err   error

	scope    *compiler.Scope
	rendered *sqlgen.Statement
}

// Option configures a Builder.
type Option func(*Builder)

// WithSaver sets the saver used to persist unsaved associations during
// inserts.
func WithSaver(s sqlgen.Saver) Option {
	return func(b *Builder) {
		b.saver = s
	}
}

// New creates a builder rooted at model, given as a registered entity name
// or an entity value, bound to alias. An unknown name or a value that is
// not an entity is an error.
func New(reg *schema.Registry, model any, alias string, opts ...Option) (*Builder, error) {
	root, err := reg.Lookup(model)
	if err != nil {
		return nil, fmt.Errorf("failed to create query builder: %w", err)
	}

	b := &Builder{
		reg:   reg,
		root:  root,
		state: ast.State{Model: root.Name(), Alias: alias},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Select adds select tokens: "*", a property or column name, "alias.name",
// "alias.*" or a bare alias for all of its columns. Tokens that resolve to
// nothing are emitted verbatim.
func (b *Builder) Select(columns ...string) *Builder {
	b.touch()
	b.state.Selects = append(b.state.Selects, columns...)
	return b
}

// InnerJoin joins model under alias. Each condition is an expression such
// as "p.packageType = pt.id". Without conditions the join goes through the
// root entity's junction table for a collection of model.
func (b *Builder) InnerJoin(model any, alias string, conditions ...string) *Builder {
	return b.join(ast.InnerJoin, model, alias, conditions)
}

// LeftJoin is like InnerJoin with LEFT semantics.
func (b *Builder) LeftJoin(model any, alias string, conditions ...string) *Builder {
	return b.join(ast.LeftJoin, model, alias, conditions)
}

func (b *Builder) join(kind ast.JoinKind, model any, alias string, conditions []string) *Builder {
	b.touch()
	j := ast.Join{Kind: kind, Model: model, Alias: alias}
	for _, raw := range conditions {
		c, err := ast.ParseCondition(raw)
		if err != nil {
			b.fail(err)
			continue
		}
		j.Conditions = append(j.Conditions, c)
	}
	b.state.Joins = append(b.state.Joins, j)
	return b
}

// Where adds "column = ?".
func (b *Builder) Where(column string, value any) *Builder {
	return b.predicate(ast.Equals, column, []any{value})
}

// WhereNot adds "column != ?".
func (b *Builder) WhereNot(column string, value any) *Builder {
	return b.predicate(ast.NotEquals, column, []any{value})
}

// WhereIn adds "column IN (?, ...)" with one placeholder per value. A
// single slice argument, such as []string{"a", "b"}, is expanded into its
// elements.
func (b *Builder) WhereIn(column string, values ...any) *Builder {
	return b.predicate(ast.In, column, flatten(values))
}

// WhereNotIn adds "column NOT IN (?, ...)", expanding a single slice
// argument like WhereIn.
func (b *Builder) WhereNotIn(column string, values ...any) *Builder {
	return b.predicate(ast.NotIn, column, flatten(values))
}

func (b *Builder) predicate(op ast.Operator, column string, values []any) *Builder {
	b.touch()
	b.state.Predicates = append(b.state.Predicates, ast.Predicate{
		Operator: op,
		Ref:      ast.ParseRef(column),
		Values:   values,
	})
	return b
}

// OrderBy adds an ORDER BY entry. The direction defaults to ASC and is not
// validated.
func (b *Builder) OrderBy(column string, direction ...string) *Builder {
	b.touch()
	dir := "ASC"
	if len(direction) > 0 && direction[0] != "" {
		dir = direction[0]
	}
	b.state.Orders = append(b.state.Orders, ast.OrderBy{Ref: ast.ParseRef(column), Direction: dir})
	return b
}

// Limit sets the LIMIT. Values below one render no LIMIT clause.
func (b *Builder) Limit(n int) *Builder {
	b.touch()
	b.state.Limit = n
	return b
}

// Insert switches the builder to render an INSERT of e.
func (b *Builder) Insert(e schema.Entity) *Builder {
	b.touch()
	b.state.Insert = e
	b.state.Update = nil
	return b
}

// Update switches the builder to render an UPDATE of e.
func (b *Builder) Update(e schema.Entity) *Builder {
	b.touch()
	b.state.Update = e
	b.state.Insert = nil
	return b
}

// Reset returns the builder to its initial state, keeping model and alias.
func (b *Builder) Reset() *Builder {
	b.touch()
	b.state.Reset()
	b.err = nil
	return b
}

// Render renders the statement. The result is computed once and reused
// until the builder is modified. A failed render yields an empty SQL string
// and the parameters bound so far, with the cause in Statement.Err.
func (b *Builder) Render(ctx context.Context) sqlgen.Statement {
	if b.rendered != nil {
		return *b.rendered
	}

	stmt := b.render(ctx)
	b.rendered = &stmt
	return stmt
}

func (b *Builder) render(ctx context.Context) sqlgen.Statement {
	if b.err != nil {
		return sqlgen.Statement{Err: b.err}
	}

	var scope *compiler.Scope
	if b.state.Mode() == ast.ModeSelect {
		s, err := b.Scope()
		if err != nil {
			return sqlgen.Statement{Err: err}
		}
		scope = s
	}
	return sqlgen.NewGenerator(b.reg, b.saver).Render(ctx, &b.state, scope)
}

// Scope returns the compiled scope shared with the row mapper.
func (b *Builder) Scope() (*compiler.Scope, error) {
	if b.scope != nil {
		return b.scope, nil
	}
	s, err := compiler.Compile(b.reg, &b.state)
	if err != nil {
		return nil, err
	}
	b.scope = s
	return s, nil
}

// Args returns the parameters of the rendered statement, rendering first if
// needed.
func (b *Builder) Args(ctx context.Context) []any {
	return b.Render(ctx).Args
}

// Alias returns the root alias.
func (b *Builder) Alias() string { return b.state.Alias }

// Entity returns the root entity metadata.
func (b *Builder) Entity() *schema.Descriptor { return b.root }

// Registry returns the registry the builder resolves against.
func (b *Builder) Registry() *schema.Registry { return b.reg }

// Mode returns the statement kind the builder renders.
func (b *Builder) Mode() ast.Mode { return b.state.Mode() }

// Joins returns the recorded join descriptors, including ones that will be
// skipped at render time.
func (b *Builder) Joins() []ast.Join {
	out := make([]ast.Join, len(b.state.Joins))
	copy(out, b.state.Joins)
	return out
}

// Traversals returns the junction-table traversals of the query.
func (b *Builder) Traversals() []ast.Traversal {
	s, err := b.Scope()
	if err != nil {
		return nil
	}
	return s.Traversals
}

// State returns a copy of the accumulated state.
func (b *Builder) State() ast.State {
	return b.state
}

func (b *Builder) touch() {
	b.scope = nil
	b.rendered = nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// flatten expands a lone slice or array argument. []byte stays one value.
func flatten(values []any) []any {
	if len(values) != 1 || values[0] == nil {
		return values
	}
	if _, ok := values[0].([]byte); ok {
		return values
	}

	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return values
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// Values converts a typed slice for WhereIn and WhereNotIn.
func Values[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
