// Package ast defines the query state accumulated by the builder and
// consumed by the SQL renderer and the row mapper.
package ast

import (
	"strings"

	"github.com/satishbabariya/loom/schema"
)

// Mode selects which statement a query renders.
type Mode int

const (
	ModeSelect Mode = iota
	ModeInsert
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeInsert:
		return "insert"
	case ModeUpdate:
		return "update"
	default:
		return "select"
	}
}

// JoinKind distinguishes INNER from LEFT joins.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
)

// Operator is a predicate comparison operator.
type Operator string

const (
	Equals    Operator = "="
	NotEquals Operator = "!="
	In        Operator = "IN"
	NotIn     Operator = "NOT IN"
)

// IsList reports whether the operator binds a list of values.
func (o Operator) IsList() bool {
	return o == In || o == NotIn
}

// Ref is an "alias.column_or_property" reference. Alias is empty for bare
// names.
type Ref struct {
	Alias string
	Name  string
}

// ParseRef splits s on its first dot.
func ParseRef(s string) Ref {
	alias, name, ok := strings.Cut(s, ".")
	if !ok {
		return Ref{Name: s}
	}
	return Ref{Alias: alias, Name: name}
}

// Dotted reports whether the reference carried an alias.
func (r Ref) Dotted() bool {
	return r.Alias != ""
}

func (r Ref) String() string {
	if r.Alias == "" {
		return r.Name
	}
	return r.Alias + "." + r.Name
}

// Join is a join descriptor recorded by the builder. Model is whatever the
// caller passed: an entity name or an entity value.
type Join struct {
	Kind       JoinKind
	Model      any
	Alias      string
	Conditions []Condition
}

// Predicate is one WHERE condition.
type Predicate struct {
	Operator Operator
	Ref      Ref
	Values   []any
}

// OrderBy is one ORDER BY entry. Direction is passed through verbatim.
type OrderBy struct {
	Ref       Ref
	Direction string
}

// Traversal records a collection reached through a junction table so the
// mapper can append joined instances to it.
type Traversal struct {
	Property string
	Alias    string
}

// Row is one flat result row keyed "alias_property".
type Row map[string]any

// State is the mutable query state owned by one builder.
type State struct {
	Model      any
	Alias      string
	Selects    []string
	Joins      []Join
	Predicates []Predicate
	Orders     []OrderBy
	Limit      int
	Insert     schema.Entity
	Update     schema.Entity
}

// Mode returns the statement kind the state renders to.
func (s *State) Mode() Mode {
	switch {
	case s.Insert != nil:
		return ModeInsert
	case s.Update != nil:
		return ModeUpdate
	default:
		return ModeSelect
	}
}

// Reset clears everything except the root model and alias.
func (s *State) Reset() {
	*s = State{Model: s.Model, Alias: s.Alias}
}
