// Package types provides typed containers for mapped entities.
package types

import (
	"github.com/satishbabariya/loom/schema"
)

// Collection is an ordered list of entities of one model.
type Collection[T schema.Entity] struct {
	d     *schema.Descriptor
	items []T
}

// NewCollection creates a collection of entities described by d.
func NewCollection[T schema.Entity](d *schema.Descriptor, items ...T) *Collection[T] {
	return &Collection[T]{d: d, items: append([]T(nil), items...)}
}

// Add appends items.
func (c *Collection[T]) Add(items ...T) {
	c.items = append(c.items, items...)
}

// Remove removes every item whose identifier equals id and reports whether
// any was removed. id is converted to the identifier's type first.
func (c *Collection[T]) Remove(id any) bool {
	idProp, err := c.d.Identifier()
	if err != nil {
		return false
	}
	want, err := schema.Convert(id, idProp.Type())
	if err != nil {
		return false
	}

	kept := c.items[:0]
	removed := false
	for _, item := range c.items {
		if v, ok := idProp.Value(item); ok && v == want {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	var zero T
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = zero
	}
	c.items = kept
	return removed
}

// First returns the first item.
func (c *Collection[T]) First() (T, bool) {
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	return c.items[0], true
}

// Last returns the last item.
func (c *Collection[T]) Last() (T, bool) {
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	return c.items[len(c.items)-1], true
}

// Find returns the first item matching fn.
func (c *Collection[T]) Find(fn func(T) bool) (T, bool) {
	for _, item := range c.items {
		if fn(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// IsEmpty reports whether the collection has no items.
func (c *Collection[T]) IsEmpty() bool { return len(c.items) == 0 }

// Len returns the number of items.
func (c *Collection[T]) Len() int { return len(c.items) }

// Items returns a copy of the items.
func (c *Collection[T]) Items() []T {
	return append([]T(nil), c.items...)
}

// FromEntities collects the entities of type T, skipping the others.
func FromEntities[T schema.Entity](d *schema.Descriptor, entities []schema.Entity) *Collection[T] {
	c := NewCollection[T](d)
	for _, e := range entities {
		if t, ok := e.(T); ok {
			c.items = append(c.items, t)
		}
	}
	return c
}
