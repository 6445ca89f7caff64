package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/loom/query/builder"
)

// queryOptions holds the builder flags shared by render and query.
type queryOptions struct {
	alias      string
	selects    []string
	joins      []string
	leftJoins  []string
	where      []string
	whereNot   []string
	whereIn    []string
	whereNotIn []string
	orders     []string
	limit      int
}

func (o *queryOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.alias, "alias", "a", "", "Root alias (defaults to the lowercased model initial)")
	f.StringSliceVarP(&o.selects, "select", "s", nil, "Select tokens, e.g. id,name,pt.*")
	f.StringArrayVarP(&o.joins, "join", "j", nil, "Inner join as Model:alias[:condition[;condition]]")
	f.StringArrayVar(&o.leftJoins, "left-join", nil, "Left join as Model:alias[:condition[;condition]]")
	f.StringArrayVarP(&o.where, "where", "w", nil, "Equality predicate as alias.property=value")
	f.StringArrayVar(&o.whereNot, "where-not", nil, "Inequality predicate as alias.property=value")
	f.StringArrayVar(&o.whereIn, "where-in", nil, "IN predicate as alias.property=v1,v2")
	f.StringArrayVar(&o.whereNotIn, "where-not-in", nil, "NOT IN predicate as alias.property=v1,v2")
	f.StringArrayVarP(&o.orders, "order", "o", nil, "Ordering as alias.property[:ASC|DESC]")
	f.IntVarP(&o.limit, "limit", "l", 0, "Row limit")
}

// rootAlias returns the alias for model.
func (o *queryOptions) rootAlias(model string) string {
	if o.alias != "" || model == "" {
		return o.alias
	}
	return strings.ToLower(model[:1])
}

// apply adds every flag to b in flag order per kind: selects, joins, left
// joins, predicates, orders, limit.
func (o *queryOptions) apply(b *builder.Builder) error {
	if len(o.selects) > 0 {
		b.Select(o.selects...)
	}

	for _, raw := range o.joins {
		model, alias, conds, err := parseJoin(raw)
		if err != nil {
			return err
		}
		b.InnerJoin(model, alias, conds...)
	}
	for _, raw := range o.leftJoins {
		model, alias, conds, err := parseJoin(raw)
		if err != nil {
			return err
		}
		b.LeftJoin(model, alias, conds...)
	}

	for _, raw := range o.where {
		column, value, err := parsePredicate(raw)
		if err != nil {
			return err
		}
		b.Where(column, value)
	}
	for _, raw := range o.whereNot {
		column, value, err := parsePredicate(raw)
		if err != nil {
			return err
		}
		b.WhereNot(column, value)
	}
	for _, raw := range o.whereIn {
		column, values, err := parseList(raw)
		if err != nil {
			return err
		}
		b.WhereIn(column, values...)
	}
	for _, raw := range o.whereNotIn {
		column, values, err := parseList(raw)
		if err != nil {
			return err
		}
		b.WhereNotIn(column, values...)
	}

	for _, raw := range o.orders {
		column, dir, _ := strings.Cut(raw, ":")
		b.OrderBy(column, strings.ToUpper(dir))
	}

	if o.limit > 0 {
		b.Limit(o.limit)
	}
	return nil
}

// parseJoin reads "Model:alias[:cond[;cond]]".
func parseJoin(raw string) (model, alias string, conditions []string, err error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", nil, fmt.Errorf("invalid join %q: expected Model:alias[:condition]", raw)
	}
	if len(parts) == 3 {
		for _, c := range strings.Split(parts[2], ";") {
			if c = strings.TrimSpace(c); c != "" {
				conditions = append(conditions, c)
			}
		}
	}
	return parts[0], parts[1], conditions, nil
}

func parsePredicate(raw string) (string, any, error) {
	column, value, ok := strings.Cut(raw, "=")
	if !ok || column == "" {
		return "", nil, fmt.Errorf("invalid predicate %q: expected alias.property=value", raw)
	}
	return column, value, nil
}

// parseList reads "alias.property=v1,v2". An empty value list is allowed.
func parseList(raw string) (string, []any, error) {
	column, list, ok := strings.Cut(raw, "=")
	if !ok || column == "" {
		return "", nil, fmt.Errorf("invalid list predicate %q: expected alias.property=v1,v2", raw)
	}
	if list == "" {
		return column, nil, nil
	}
	return column, builder.Values(strings.Split(list, ",")), nil
}
