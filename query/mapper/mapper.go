// Package mapper hydrates entities from flat result rows keyed
// "alias_property", using the compiled scope of the query that produced
// them to reattach joined entities.
package mapper

import (
	"strings"

	"github.com/satishbabariya/loom/internal/debug"
	"github.com/satishbabariya/loom/query/ast"
	"github.com/satishbabariya/loom/query/compiler"
	"github.com/satishbabariya/loom/schema"
)

// Mapper turns rows into root entities.
type Mapper struct {
	scope       *compiler.Scope
	attachments []compiler.Attachment
}

// New creates a mapper for rows produced by the query compiled into scope.
func New(scope *compiler.Scope) *Mapper {
	return &Mapper{
		scope:       scope,
		attachments: scope.Attachments(),
	}
}

// Map returns one root entity per row, in row order. Rows are not
// deduplicated; see Collapse.
func (m *Mapper) Map(rows []ast.Row) []schema.Entity {
	out := make([]schema.Entity, 0, len(rows))
	for _, row := range rows {
		out = append(out, m.mapRow(row))
	}
	return out
}

func (m *Mapper) mapRow(row ast.Row) schema.Entity {
	groups := Group(row)

	instances := make(map[string]schema.Entity, len(m.scope.Joins)+1)
	root := hydrate(m.scope.Root, groups[m.scope.Alias])
	instances[m.scope.Alias] = root

	for _, j := range m.scope.Joins {
		group, ok := groups[j.Alias]
		if !ok || allNull(group) {
			continue
		}
		instances[j.Alias] = hydrate(j.Entity, group)
	}

	for _, a := range m.attachments {
		owner, child := instances[a.Owner], instances[a.Alias]
		if owner == nil || child == nil {
			continue
		}

		var err error
		if a.Collection {
			err = a.Property.Append(owner, child)
		} else {
			err = a.Property.Set(owner, child)
		}
		if err != nil {
			debug.Debug("attach failed", "owner", a.Owner, "alias", a.Alias, "property", a.Property.Name(), "error", err)
		}
	}

	return root
}

// Group splits each key on its first underscore into alias and property or
// column name. Keys without an underscore are dropped.
func Group(row ast.Row) map[string]map[string]any {
	groups := make(map[string]map[string]any)
	for key, v := range row {
		alias, sub, ok := strings.Cut(key, "_")
		if !ok {
			continue
		}
		g, exists := groups[alias]
		if !exists {
			g = make(map[string]any)
			groups[alias] = g
		}
		g[sub] = v
	}
	return groups
}

func hydrate(d *schema.Descriptor, group map[string]any) schema.Entity {
	e := d.New()
	for key, v := range group {
		p, ok := d.Property(key)
		if !ok {
			p, ok = d.PropertyByColumn(key)
		}
		if !ok {
			continue
		}
		switch p.Kind() {
		case schema.KindReference, schema.KindManyToMany:
			continue
		}
		if err := p.Set(e, v); err != nil {
			debug.Debug("property conversion failed", "entity", d.Name(), "property", p.Name(), "error", err)
		}
	}
	return e
}

func allNull(group map[string]any) bool {
	for _, v := range group {
		if v != nil {
			return false
		}
	}
	return true
}

// MapInto maps rows and keeps the entities of type T.
func MapInto[T schema.Entity](m *Mapper, rows []ast.Row) []T {
	return Keep[T](m.Map(rows))
}

// Keep returns the entities of type T, in order.
func Keep[T any](entities []schema.Entity) []T {
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		if t, ok := e.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
