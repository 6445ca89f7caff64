// Package schema holds the entity metadata registry: per-entity schema and
// table names, the identifier property and the ordered property to column
// mapping, plus the classification of associations between entities.
package schema

import "fmt"

// Entity is implemented by every type that maps to a database table.
// The returned name is the key the entity is registered under.
type Entity interface {
	EntityName() string
}

// Kind classifies a mapped property.
type Kind int

const (
	// KindScalar is a plain column value.
	KindScalar Kind = iota
	// KindReference is a foreign key column whose declared type is a
	// registered entity.
	KindReference
	// KindDateTime is a time.Time column.
	KindDateTime
	// KindBoolean is a bool column stored as 0/1.
	KindBoolean
	// KindManyToMany is a collection reached through a junction table.
	KindManyToMany
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindReference:
		return "reference"
	case KindDateTime:
		return "datetime"
	case KindBoolean:
		return "boolean"
	case KindManyToMany:
		return "many-to-many"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// JoinTable describes the junction table of a many-to-many collection.
// LocalColumn exists on both the owning table and the junction table,
// ForeignColumn on both the junction table and the target table.
type JoinTable struct {
	Schema        string `yaml:"schema"`
	Table         string `yaml:"table"`
	Alias         string `yaml:"alias"`
	LocalColumn   string `yaml:"localColumn"`
	ForeignColumn string `yaml:"foreignColumn"`
}

// Qualified returns the schema-qualified junction table name.
func (j JoinTable) Qualified() string {
	return j.Schema + "." + j.Table
}
