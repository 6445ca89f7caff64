package schema

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// Record is a map-backed entity for models declared at runtime, for
// example from a models file.
type Record struct {
	model  string
	values map[string]any
}

// NewRecord returns an empty record of model.
func NewRecord(model string) *Record {
	return &Record{model: model, values: make(map[string]any)}
}

// EntityName implements Entity.
func (r *Record) EntityName() string { return r.model }

// Get returns the value stored under property.
func (r *Record) Get(property string) any { return r.values[property] }

// Set stores v under property without conversion.
func (r *Record) Set(property string, v any) { r.values[property] = v }

// Keys returns the properties holding a value, sorted.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FieldType names the value type of a record field.
type FieldType string

const (
	TypeInt        FieldType = "int"
	TypeFloat      FieldType = "float"
	TypeString     FieldType = "string"
	TypeBool       FieldType = "bool"
	TypeDateTime   FieldType = "datetime"
	TypeRef        FieldType = "ref"
	TypeCollection FieldType = "collection"
)

var recordTypes = map[FieldType]reflect.Type{
	TypeInt:      reflect.TypeFor[int64](),
	TypeFloat:    reflect.TypeFor[float64](),
	TypeString:   reflect.TypeFor[string](),
	TypeBool:     boolType,
	TypeDateTime: reflect.TypeFor[time.Time](),
}

// RecordField declares one property of a record model.
type RecordField struct {
	Name      string     `yaml:"name"`
	Column    string     `yaml:"column"`
	ID        bool       `yaml:"id"`
	Type      FieldType  `yaml:"type"`
	Target    string     `yaml:"target"`
	JoinTable *JoinTable `yaml:"joinTable"`
}

// RecordDefinition declares a record model.
type RecordDefinition struct {
	Name   string        `yaml:"name"`
	Schema string        `yaml:"schema"`
	Table  string        `yaml:"table"`
	Fields []RecordField `yaml:"fields"`
}

// DefineRecord registers a record model.
func DefineRecord(reg *Registry, def RecordDefinition) error {
	props := make([]*Property, 0, len(def.Fields))
	for _, f := range def.Fields {
		p, err := recordProperty(def.Name, f)
		if err != nil {
			return err
		}
		props = append(props, p)
	}

	model := def.Name
	return reg.register(model, nil, def.Schema, def.Table, props, func() Entity {
		return NewRecord(model)
	})
}

func recordProperty(model string, f RecordField) (*Property, error) {
	name := f.Name
	p := &Property{
		name:       name,
		column:     f.Column,
		identifier: f.ID,
		get: func(e Entity) (any, bool) {
			r, ok := e.(*Record)
			if !ok || r == nil {
				return nil, false
			}
			return r.values[name], true
		},
	}

	typ := f.Type
	if typ == "" {
		typ = TypeString
	}

	switch typ {
	case TypeRef:
		if f.Target == "" {
			return nil, fmt.Errorf("%w: %s.%s references no target", ErrInvalidModel, model, name)
		}
		p.target = f.Target
		p.typ = reflect.TypeFor[*Record]()
		p.set = func(e Entity, v any) error {
			r, ok := e.(*Record)
			if !ok || r == nil {
				return fmt.Errorf("property %s: unexpected owner %T", name, e)
			}
			if v == nil {
				delete(r.values, name)
				return nil
			}
			ref, ok := v.(*Record)
			if !ok {
				return fmt.Errorf("property %s: expected a record, got %T", name, v)
			}
			r.values[name] = ref
			return nil
		}
	case TypeCollection:
		if f.Target == "" || f.JoinTable == nil {
			return nil, fmt.Errorf("%w: %s.%s collection needs a target and a join table", ErrInvalidModel, model, name)
		}
		jt := *f.JoinTable
		p.column = ""
		p.target = f.Target
		p.typ = reflect.TypeFor[*Record]()
		p.joinTable = &jt
		p.appendTo = func(e Entity, child Entity) error {
			r, ok := e.(*Record)
			if !ok || r == nil {
				return fmt.Errorf("collection %s: unexpected owner %T", name, e)
			}
			items, _ := r.values[name].([]Entity)
			r.values[name] = append(items, child)
			return nil
		}
		p.items = func(e Entity) []Entity {
			r, ok := e.(*Record)
			if !ok || r == nil {
				return nil
			}
			items, _ := r.values[name].([]Entity)
			return items
		}
	default:
		rt, ok := recordTypes[typ]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s has unknown type %q", ErrInvalidModel, model, name, typ)
		}
		p.typ = rt
		p.set = func(e Entity, v any) error {
			r, ok := e.(*Record)
			if !ok || r == nil {
				return fmt.Errorf("property %s: unexpected owner %T", name, e)
			}
			if v == nil {
				delete(r.values, name)
				return nil
			}
			rv, err := convert(v, rt)
			if err != nil {
				return fmt.Errorf("property %s: %w", name, err)
			}
			r.values[name] = rv.Interface()
			return nil
		}
	}

	return p, nil
}
