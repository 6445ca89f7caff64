package sqlgen

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/loom/query/ast"
	"github.com/satishbabariya/loom/query/compiler"
	"github.com/satishbabariya/loom/schema"
)

type writer struct {
	strings.Builder
	args []any
}

func (w *writer) bind(values ...any) {
	w.args = append(w.args, values...)
}

func placeholders(n int, sep string) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?"+sep, n-1) + "?"
}

func (g *Generator) selectStatement(w *writer, state *ast.State, scope *compiler.Scope) error {
	if !scope.Root.Complete() {
		return fmt.Errorf("%w: %s", ErrIncompleteMetadata, scope.Root.Name())
	}
	for _, j := range scope.Joins {
		if !j.Entity.Complete() {
			return fmt.Errorf("%w: %s joined as %s", ErrIncompleteMetadata, j.Entity.Name(), j.Alias)
		}
	}

	w.WriteString("SELECT ")
	w.WriteString(strings.Join(SelectList(scope, state.Selects), ", "))
	fmt.Fprintf(w, " FROM %s %s", scope.Root.Qualified(), scope.Alias)

	writeJoins(w, scope, ast.InnerJoin)
	writeJoins(w, scope, ast.LeftJoin)
	writeWhere(w, scope, state.Predicates)
	writeOrderBy(w, scope, state.Orders)

	if state.Limit > 0 {
		fmt.Fprintf(w, " LIMIT %d", state.Limit)
	}
	return nil
}

// SelectList expands select tokens into "alias.column AS alias_property"
// items. An empty list, or a lone "*", selects every root column followed
// by every column of every join.
func SelectList(scope *compiler.Scope, selects []string) []string {
	if len(selects) == 0 || (len(selects) == 1 && selects[0] == "*") {
		items := allColumns(scope.Alias, scope.Root)
		for _, kind := range []ast.JoinKind{ast.InnerJoin, ast.LeftJoin} {
			for _, j := range scope.Joins {
				if j.Kind == kind {
					items = append(items, allColumns(j.Alias, j.Entity)...)
				}
			}
		}
		return items
	}

	var items []string
	for _, token := range selects {
		items = append(items, expandSelect(scope, token)...)
	}
	return items
}

func expandSelect(scope *compiler.Scope, token string) []string {
	if p, ok := scope.Root.Resolve(token); ok {
		return []string{columnAs(scope.Alias, p)}
	}

	if ref := ast.ParseRef(token); ref.Dotted() {
		if d, ok := scope.Descriptor(ref.Alias); ok {
			if ref.Name == "*" {
				return allColumns(ref.Alias, d)
			}
			if p, ok := d.Resolve(ref.Name); ok {
				return []string{columnAs(ref.Alias, p)}
			}
		}
		return []string{token}
	}

	if token == scope.Alias || token == "*" {
		return allColumns(scope.Alias, scope.Root)
	}
	if j, ok := scope.Join(token); ok {
		return allColumns(j.Alias, j.Entity)
	}
	return []string{token}
}

func allColumns(alias string, d *schema.Descriptor) []string {
	props := d.Properties()
	items := make([]string, 0, len(props))
	for _, p := range props {
		items = append(items, columnAs(alias, p))
	}
	return items
}

func columnAs(alias string, p *schema.Property) string {
	return fmt.Sprintf("%s.%s AS %s_%s", alias, p.Column(), alias, p.Name())
}

func writeJoins(w *writer, scope *compiler.Scope, kind ast.JoinKind) {
	for _, j := range scope.Joins {
		if j.Kind != kind {
			continue
		}

		if j.Via != nil {
			jt, _ := j.Via.JoinTable()
			fmt.Fprintf(w, " %s JOIN %s %s ON %s.%s = %s.%s",
				kind, jt.Qualified(), jt.Alias, scope.Alias, jt.LocalColumn, jt.Alias, jt.LocalColumn)
			fmt.Fprintf(w, " %s JOIN %s %s ON %s.%s = %s.%s",
				kind, j.Entity.Qualified(), j.Alias, jt.Alias, jt.ForeignColumn, j.Alias, jt.ForeignColumn)
			continue
		}

		conds := make([]string, 0, len(j.Conditions))
		for _, c := range j.Conditions {
			conds = append(conds, scope.Condition(c))
		}
		fmt.Fprintf(w, " %s JOIN %s %s ON %s", kind, j.Entity.Qualified(), j.Alias, strings.Join(conds, " AND "))
	}
}

func writeWhere(w *writer, scope *compiler.Scope, predicates []ast.Predicate) {
	var conds []string
	for _, p := range predicates {
		col, ok := scope.Column(p.Ref)
		if !ok {
			continue
		}

		switch {
		case p.Operator.IsList() && len(p.Values) == 0:
			// an empty IN list matches nothing, an empty NOT IN everything
			if p.Operator == ast.In {
				conds = append(conds, "(1=0)")
			} else {
				conds = append(conds, "(1=1)")
			}
		case p.Operator.IsList():
			conds = append(conds, fmt.Sprintf("%s %s (%s)", col, p.Operator, placeholders(len(p.Values), ", ")))
			w.bind(p.Values...)
		default:
			conds = append(conds, fmt.Sprintf("%s %s ?", col, p.Operator))
			w.bind(p.Values...)
		}
	}

	if len(conds) > 0 {
		w.WriteString(" WHERE ")
		w.WriteString(strings.Join(conds, " AND "))
	}
}

func writeOrderBy(w *writer, scope *compiler.Scope, orders []ast.OrderBy) {
	var items []string
	for _, o := range orders {
		col, ok := scope.Column(o.Ref)
		if !ok {
			continue
		}
		items = append(items, col+" "+o.Direction)
	}

	if len(items) > 0 {
		w.WriteString(" ORDER BY ")
		w.WriteString(strings.Join(items, ", "))
	}
}
