package schema

import (
	"fmt"
	"reflect"
	"time"
)

var (
	timeType   = reflect.TypeFor[time.Time]()
	boolType   = reflect.TypeFor[bool]()
	entityType = reflect.TypeFor[Entity]()
)

// Property is the type-erased descriptor of one mapped property. Values are
// read and written through typed accessor closures captured when the field
// was declared.
type Property struct {
	name       string
	column     string
	identifier bool
	typ        reflect.Type
	target     string
	joinTable  *JoinTable
	reg        *Registry

	get      func(Entity) (any, bool)
	set      func(Entity, any) error
	appendTo func(Entity, Entity) error
	items    func(Entity) []Entity
}

// Field declares one property of entity type T.
type Field[T any] struct {
	prop *Property
}

// Column declares a mapped property backed by column. Scalars, time.Time,
// bool and pointers to other entities are all declared this way; the kind
// is derived from V.
func Column[T, V any](name, column string, field func(*T) *V) Field[T] {
	return Field[T]{prop: scalarProperty(name, column, field)}
}

// ID declares the identifier property.
func ID[T, V any](name, column string, field func(*T) *V) Field[T] {
	p := scalarProperty(name, column, field)
	p.identifier = true
	return Field[T]{prop: p}
}

// Collection declares a many-to-many collection reached through jt.
func Collection[T, E any](name string, field func(*T) *[]*E, jt JoinTable) Field[T] {
	return Field[T]{prop: &Property{
		name:      name,
		typ:       reflect.TypeFor[*E](),
		joinTable: &jt,
		get: func(e Entity) (any, bool) {
			t, ok := any(e).(*T)
			if !ok || t == nil {
				return nil, false
			}
			return *field(t), true
		},
		appendTo: func(e Entity, child Entity) error {
			t, ok := any(e).(*T)
			if !ok || t == nil {
				return fmt.Errorf("collection %s: unexpected owner %T", name, e)
			}
			c, ok := any(child).(*E)
			if !ok {
				return fmt.Errorf("collection %s: unexpected element %T", name, child)
			}
			*field(t) = append(*field(t), c)
			return nil
		},
		items: func(e Entity) []Entity {
			t, ok := any(e).(*T)
			if !ok || t == nil {
				return nil
			}
			out := make([]Entity, 0, len(*field(t)))
			for _, c := range *field(t) {
				if ent, ok := any(c).(Entity); ok {
					out = append(out, ent)
				}
			}
			return out
		},
	}}
}

func scalarProperty[T, V any](name, column string, field func(*T) *V) *Property {
	typ := reflect.TypeFor[V]()
	return &Property{
		name:   name,
		column: column,
		typ:    typ,
		get: func(e Entity) (any, bool) {
			t, ok := any(e).(*T)
			if !ok || t == nil {
				return nil, false
			}
			return *field(t), true
		},
		set: func(e Entity, v any) error {
			t, ok := any(e).(*T)
			if !ok || t == nil {
				return fmt.Errorf("property %s: unexpected owner %T", name, e)
			}
			rv, err := convert(v, typ)
			if err != nil {
				return fmt.Errorf("property %s: %w", name, err)
			}
			val, _ := rv.Interface().(V)
			*field(t) = val
			return nil
		},
	}
}

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// Column returns the physical column name. Collections have none.
func (p *Property) Column() string { return p.column }

// IsIdentifier reports whether the property is the entity's identifier.
func (p *Property) IsIdentifier() bool { return p.identifier }

// Type returns the declared Go type. For collections it is the element type.
func (p *Property) Type() reflect.Type { return p.typ }

// JoinTable returns the junction descriptor of a collection property.
func (p *Property) JoinTable() (JoinTable, bool) {
	if p.joinTable == nil {
		return JoinTable{}, false
	}
	return *p.joinTable, true
}

// Target returns the name of the referenced entity for reference and
// collection properties, or "" when the declared type is not a registered
// entity.
func (p *Property) Target() string {
	if p.reg == nil {
		return ""
	}
	if p.target != "" {
		if p.reg.has(p.target) {
			return p.target
		}
		return ""
	}
	if p.typ == nil || p.typ == entityType || p.typ.Kind() != reflect.Pointer {
		return ""
	}
	name, _ := p.reg.nameOfType(p.typ)
	return name
}

// Kind classifies the property against the registered entities.
func (p *Property) Kind() Kind {
	if p.joinTable != nil {
		return KindManyToMany
	}
	if p.Target() != "" {
		return KindReference
	}
	typ := p.typ
	if typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	switch typ {
	case timeType:
		return KindDateTime
	case boolType:
		return KindBoolean
	}
	return KindScalar
}

// Value returns the property value held by e.
func (p *Property) Value(e Entity) (any, bool) {
	if p.get == nil {
		return nil, false
	}
	return p.get(e)
}

// Reference returns the associated entity of a reference property, or nil
// when unset.
func (p *Property) Reference(e Entity) Entity {
	v, ok := p.Value(e)
	if !ok || v == nil {
		return nil
	}
	ent, ok := v.(Entity)
	if !ok {
		return nil
	}
	if rv := reflect.ValueOf(ent); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return ent
}

// Set converts v to the declared type and assigns it on e.
func (p *Property) Set(e Entity, v any) error {
	if p.set == nil {
		return fmt.Errorf("property %s is not assignable", p.name)
	}
	return p.set(e, v)
}

// Append adds child to a collection property on e.
func (p *Property) Append(e Entity, child Entity) error {
	if p.appendTo == nil {
		return fmt.Errorf("property %s is not a collection", p.name)
	}
	return p.appendTo(e, child)
}

// Items returns the members of a collection property on e.
func (p *Property) Items(e Entity) []Entity {
	if p.items == nil {
		return nil
	}
	return p.items(e)
}

func (p *Property) clone(reg *Registry) *Property {
	c := *p
	c.reg = reg
	if p.joinTable != nil {
		jt := *p.joinTable
		c.joinTable = &jt
	}
	return &c
}
