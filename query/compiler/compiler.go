// Package compiler resolves query state against entity metadata: it binds
// aliases to entities, drops joins that cannot be rendered and maps
// "alias.column_or_property" references to physical columns. The renderer
// and the row mapper share the resulting Scope.
package compiler

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/loom/internal/debug"
	"github.com/satishbabariya/loom/query/ast"
	"github.com/satishbabariya/loom/schema"
)

// Join is a join that survived validation.
type Join struct {
	Kind       ast.JoinKind
	Alias      string
	Entity     *schema.Descriptor
	Conditions []ast.Condition
	// Via is the root collection traversed through its junction table when
	// the join was declared without conditions.
	Via *schema.Property
}

// Attachment says where a hydrated join instance is stored: on property of
// the instance bound to Owner, appended when Collection is set.
type Attachment struct {
	Owner      string
	Alias      string
	Property   *schema.Property
	Collection bool
}

// Scope is the compiled view of one query.
type Scope struct {
	Root       *schema.Descriptor
	Alias      string
	Joins      []Join
	Traversals []ast.Traversal
	aliases    map[string]*schema.Descriptor
}

// Compile resolves state against reg. Only an unresolvable root model is an
// error; invalid joins are skipped.
func Compile(reg *schema.Registry, state *ast.State) (*Scope, error) {
	root, err := reg.Lookup(state.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	s := &Scope{
		Root:    root,
		Alias:   state.Alias,
		aliases: map[string]*schema.Descriptor{state.Alias: root},
	}

	for _, j := range state.Joins {
		d, err := reg.Lookup(j.Model)
		if err != nil {
			debug.Debug("skipping join", "alias", j.Alias, "error", err)
			continue
		}
		if _, taken := s.aliases[j.Alias]; taken || j.Alias == "" {
			debug.Debug("skipping join", "alias", j.Alias, "model", d.Name(), "reason", "alias collision")
			continue
		}

		cj := Join{Kind: j.Kind, Alias: j.Alias, Entity: d, Conditions: j.Conditions}
		if len(j.Conditions) == 0 {
			via := root.JoinTables(d.Name())
			if len(via) == 0 {
				debug.Debug("skipping join", "alias", j.Alias, "model", d.Name(), "reason", "no conditions and no join table")
				continue
			}
			cj.Via = via[0]
			s.Traversals = append(s.Traversals, ast.Traversal{Property: via[0].Name(), Alias: j.Alias})
		}

		s.aliases[j.Alias] = d
		s.Joins = append(s.Joins, cj)
	}

	return s, nil
}

// Descriptor returns the entity bound to alias.
func (s *Scope) Descriptor(alias string) (*schema.Descriptor, bool) {
	d, ok := s.aliases[alias]
	return d, ok
}

// Join returns the join bound to alias.
func (s *Scope) Join(alias string) (Join, bool) {
	for _, j := range s.Joins {
		if j.Alias == alias {
			return j, true
		}
	}
	return Join{}, false
}

// Column resolves ref to "alias.column". Bare references resolve against the
// root alias. A property or column unknown to the alias's entity is passed
// through as written. ok is false only when the alias is not in scope.
func (s *Scope) Column(ref ast.Ref) (string, bool) {
	alias := ref.Alias
	if alias == "" {
		alias = s.Alias
	}
	d, ok := s.aliases[alias]
	if !ok {
		return "", false
	}
	if p, found := d.Resolve(ref.Name); found {
		return alias + "." + p.Column(), true
	}
	return alias + "." + ref.Name, true
}

// Condition renders a join condition with every in-scope reference
// resolved. Other tokens are emitted unchanged, separated by single spaces.
func (s *Scope) Condition(c ast.Condition) string {
	parts := make([]string, 0, len(c.Tokens))
	for _, tok := range c.Tokens {
		if tok.IsRef {
			if col, ok := s.Column(tok.Ref); ok {
				parts = append(parts, col)
				continue
			}
		}
		parts = append(parts, tok.Text)
	}
	return strings.Join(parts, " ")
}

// Attachments lists, for every join, where its hydrated instances go. Joins
// whose conditions name no reference property pointing at the joined
// entity have no attachment.
func (s *Scope) Attachments() []Attachment {
	var out []Attachment
	for _, j := range s.Joins {
		if j.Via != nil {
			out = append(out, Attachment{Owner: s.Alias, Alias: j.Alias, Property: j.Via, Collection: true})
			continue
		}
		if a, ok := s.attachment(j); ok {
			out = append(out, a)
		}
	}
	return out
}

func (s *Scope) attachment(j Join) (Attachment, bool) {
	for _, c := range j.Conditions {
		for _, ref := range c.Refs() {
			if ref.Alias == j.Alias {
				continue
			}
			owner, ok := s.aliases[ref.Alias]
			if !ok {
				continue
			}
			p, ok := owner.Resolve(ref.Name)
			if !ok || p.Kind() != schema.KindReference || p.Target() != j.Entity.Name() {
				continue
			}
			return Attachment{Owner: ref.Alias, Alias: j.Alias, Property: p}, true
		}
	}
	return Attachment{}, false
}
