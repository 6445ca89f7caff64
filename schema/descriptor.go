package schema

import (
	"fmt"
	"reflect"
)

// Descriptor is the class-level metadata of one entity.
type Descriptor struct {
	reg         *Registry
	name        string
	schemaName  string
	table       string
	properties  []*Property
	collections []*Property
	byName      map[string]*Property
	byColumn    map[string]*Property
	id          *Property
	newFn       func() Entity
}

// Name returns the registered entity name.
func (d *Descriptor) Name() string { return d.name }

// SchemaName returns the database schema, or "" when not declared.
func (d *Descriptor) SchemaName() string { return d.schemaName }

// TableName returns the table, or "" when not declared.
func (d *Descriptor) TableName() string { return d.table }

// Complete reports whether both schema and table are declared.
func (d *Descriptor) Complete() bool {
	return d.schemaName != "" && d.table != ""
}

// Qualified returns "schema.table".
func (d *Descriptor) Qualified() string {
	return d.schemaName + "." + d.table
}

// Properties returns the column-bearing properties in declaration order.
func (d *Descriptor) Properties() []*Property {
	out := make([]*Property, len(d.properties))
	copy(out, d.properties)
	return out
}

// Collections returns the many-to-many collection properties.
func (d *Descriptor) Collections() []*Property {
	out := make([]*Property, len(d.collections))
	copy(out, d.collections)
	return out
}

// Property returns the property declared under name. Collections are
// included.
func (d *Descriptor) Property(name string) (*Property, bool) {
	p, ok := d.byName[name]
	return p, ok
}

// PropertyByColumn returns the property mapped to column.
func (d *Descriptor) PropertyByColumn(column string) (*Property, bool) {
	p, ok := d.byColumn[column]
	return p, ok
}

// Resolve maps a property name or a physical column name to its property.
// An exact property name wins over a column of the same spelling.
func (d *Descriptor) Resolve(token string) (*Property, bool) {
	if p, ok := d.byName[token]; ok && p.joinTable == nil {
		return p, true
	}
	return d.PropertyByColumn(token)
}

// ColumnMap returns the property to column mapping.
func (d *Descriptor) ColumnMap() map[string]string {
	m := make(map[string]string, len(d.properties))
	for _, p := range d.properties {
		m[p.name] = p.column
	}
	return m
}

// Identifier returns the identifier property.
func (d *Descriptor) Identifier() (*Property, error) {
	if d.id == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentifier, d.name)
	}
	return d.id, nil
}

// IdentifierColumn returns the identifier's column name.
func (d *Descriptor) IdentifierColumn() (string, error) {
	id, err := d.Identifier()
	if err != nil {
		return "", err
	}
	return id.column, nil
}

// IdentifierValue returns the identifier value held by e and whether it is
// set (non-zero).
func (d *Descriptor) IdentifierValue(e Entity) (any, bool, error) {
	id, err := d.Identifier()
	if err != nil {
		return nil, false, err
	}
	v, ok := id.Value(e)
	if !ok {
		return nil, false, fmt.Errorf("%w: %T is not a %s", ErrNotEntity, e, d.name)
	}
	return v, !isZero(v), nil
}

// SetIdentifier assigns the identifier value on e.
func (d *Descriptor) SetIdentifier(e Entity, v any) error {
	id, err := d.Identifier()
	if err != nil {
		return err
	}
	return id.Set(e, v)
}

// JoinTables returns the collection properties whose junction leads to
// target.
func (d *Descriptor) JoinTables(target string) []*Property {
	var out []*Property
	for _, p := range d.collections {
		if p.Target() == target {
			out = append(out, p)
		}
	}
	return out
}

// New returns a fresh zero-valued instance of the entity.
func (d *Descriptor) New() Entity {
	return d.newFn()
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
