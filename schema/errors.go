package schema

import "errors"

var (
	// ErrUnknownEntity is returned when no entity is registered under a name.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrNotEntity is returned when a value does not implement Entity.
	ErrNotEntity = errors.New("not an entity")
	// ErrNoIdentifier is returned by operations that need an identifier
	// property on an entity that declares none.
	ErrNoIdentifier = errors.New("entity has no identifier property")
	// ErrDuplicateEntity is returned when an entity name is defined twice.
	ErrDuplicateEntity = errors.New("entity already defined")
	// ErrDuplicateColumn is returned when two properties share a column or
	// a property name.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrDuplicateIdentifier is returned when more than one property is
	// marked as identifier.
	ErrDuplicateIdentifier = errors.New("more than one identifier property")
	// ErrUnsupportedVersion is returned for models files outside the
	// supported format range.
	ErrUnsupportedVersion = errors.New("unsupported models file version")
	// ErrInvalidModel is returned for malformed model declarations.
	ErrInvalidModel = errors.New("invalid model")
)
