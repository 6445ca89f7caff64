package schema

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry stores entity metadata for use by the query builder and the row
// mapper. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Descriptor
	types    map[reflect.Type]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Descriptor),
		types:    make(map[reflect.Type]string),
	}
}

// Definition declares the metadata of entity type T.
type Definition[T any] struct {
	Schema string
	Table  string
	Fields []Field[T]
}

// Define registers the entity implemented by *T. The entity name is taken
// from EntityName.
func Define[T any, PT interface {
	*T
	Entity
}](reg *Registry, def Definition[T]) error {
	name := PT(new(T)).EntityName()
	props := make([]*Property, 0, len(def.Fields))
	for _, f := range def.Fields {
		if f.prop == nil {
			return fmt.Errorf("%w: %s has an empty field declaration", ErrInvalidModel, name)
		}
		props = append(props, f.prop)
	}

	return reg.register(name, reflect.TypeFor[PT](), def.Schema, def.Table, props, func() Entity {
		return PT(new(T))
	})
}

// MustDefine is like Define but panics on error.
func MustDefine[T any, PT interface {
	*T
	Entity
}](reg *Registry, def Definition[T]) {
	if err := Define[T, PT](reg, def); err != nil {
		panic(err)
	}
}

func (r *Registry) register(name string, typ reflect.Type, schemaName, table string, props []*Property, newFn func() Entity) error {
	if name == "" {
		return fmt.Errorf("%w: entity name is empty", ErrInvalidModel)
	}

	d := &Descriptor{
		reg:        r,
		name:       name,
		schemaName: schemaName,
		table:      table,
		byName:     make(map[string]*Property),
		byColumn:   make(map[string]*Property),
		newFn:      newFn,
	}

	for _, p := range props {
		p = p.clone(r)
		if p.name == "" {
			return fmt.Errorf("%w: %s has a property without a name", ErrInvalidModel, name)
		}
		if _, exists := d.byName[p.name]; exists {
			return fmt.Errorf("%w: %s.%s declared twice", ErrDuplicateColumn, name, p.name)
		}
		d.byName[p.name] = p

		if p.joinTable != nil {
			d.collections = append(d.collections, p)
			continue
		}
		if p.column == "" {
			return fmt.Errorf("%w: %s.%s has no column", ErrInvalidModel, name, p.name)
		}
		if other, exists := d.byColumn[p.column]; exists {
			return fmt.Errorf("%w: %s.%s and %s.%s both map to %s", ErrDuplicateColumn, name, other.name, name, p.name, p.column)
		}
		d.byColumn[p.column] = p
		d.properties = append(d.properties, p)

		if p.identifier {
			if d.id != nil {
				return fmt.Errorf("%w: %s declares %s and %s", ErrDuplicateIdentifier, name, d.id.name, p.name)
			}
			d.id = p
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, name)
	}
	r.entities[name] = d
	if typ != nil {
		r.types[typ] = name
	}
	return nil
}

// Lookup returns the descriptor of an entity given its registered name or
// an instance.
func (r *Registry) Lookup(model any) (*Descriptor, error) {
	switch m := model.(type) {
	case string:
		return r.Get(m)
	case Entity:
		return r.Get(m.EntityName())
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotEntity, model)
	}
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.entities[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return d, nil
}

// Names returns the registered entity names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entities[name]
	return exists
}

func (r *Registry) nameOfType(typ reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.types[typ]
	return name, ok
}
