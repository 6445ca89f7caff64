package sqlgen

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/satishbabariya/loom/schema"
)

// Param converts a property value to the form bound as a statement
// parameter: nil pointers become nil, other pointers are dereferenced,
// time.Time is formatted with schema.DateTimeLayout and booleans become 1/0.
func Param(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		v = rv.Elem().Interface()
	}

	switch val := v.(type) {
	case time.Time:
		return val.Format(schema.DateTimeLayout)
	case bool:
		if val {
			return 1
		}
		return 0
	}
	return v
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func (g *Generator) descriptor(e schema.Entity) (*schema.Descriptor, error) {
	d, err := g.reg.Lookup(e)
	if err != nil {
		return nil, err
	}
	if !d.Complete() {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteMetadata, d.Name())
	}
	return d, nil
}

// inserting is the chain of entities whose inserts are being rendered,
// carried in the context through cascading saves.
type inserting struct {
	entity schema.Entity
	parent *inserting
}

type insertingKey struct{}

func (c *inserting) contains(e schema.Entity) bool {
	for ; c != nil; c = c.parent {
		if c.entity == e {
			return true
		}
	}
	return false
}

func (g *Generator) insert(ctx context.Context, w *writer, e schema.Entity) error {
	d, err := g.descriptor(e)
	if err != nil {
		return err
	}

	chain, _ := ctx.Value(insertingKey{}).(*inserting)
	if chain.contains(e) {
		return fmt.Errorf("%w: %s", ErrReferenceCycle, d.Name())
	}
	ctx = context.WithValue(ctx, insertingKey{}, &inserting{entity: e, parent: chain})

	var columns []string
	for _, p := range d.Properties() {
		if p.IsIdentifier() {
			continue
		}

		var value any
		if p.Kind() == schema.KindReference {
			value, err = g.referenceID(ctx, p, e, true)
			if err != nil {
				return err
			}
		} else {
			v, _ := p.Value(e)
			value = Param(v)
		}

		w.bind(value)
		columns = append(columns, p.Column())
	}

	fmt.Fprintf(w, "INSERT INTO %s (%s) VALUES (%s)", d.Qualified(), strings.Join(columns, ","), placeholders(len(columns), ","))
	return nil
}

// referenceID returns the identifier of the entity referenced by p on e,
// saving it first when cascade is set and it has none yet.
func (g *Generator) referenceID(ctx context.Context, p *schema.Property, e schema.Entity, cascade bool) (any, error) {
	ref := p.Reference(e)
	if ref == nil {
		return nil, nil
	}

	rd, err := g.reg.Lookup(ref)
	if err != nil {
		return nil, err
	}
	id, set, err := rd.IdentifierValue(ref)
	if err != nil {
		return nil, err
	}
	if set || !cascade {
		return Param(id), nil
	}

	if g.saver == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoSaver, rd.Name(), p.Name())
	}
	if err := g.saver.Save(ctx, ref); err != nil {
		return nil, fmt.Errorf("failed to save %s for %s: %w", rd.Name(), p.Name(), err)
	}

	id, set, err = rd.IdentifierValue(ref)
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, fmt.Errorf("%w: %s", ErrUnsavedReference, rd.Name())
	}
	return Param(id), nil
}

func (g *Generator) update(ctx context.Context, w *writer, e schema.Entity) error {
	d, err := g.descriptor(e)
	if err != nil {
		return err
	}
	idColumn, err := d.IdentifierColumn()
	if err != nil {
		return err
	}

	var sets []string
	for _, p := range d.Properties() {
		if p.IsIdentifier() {
			continue
		}

		if p.Kind() == schema.KindReference {
			if p.Reference(e) == nil {
				continue
			}
			id, err := g.referenceID(ctx, p, e, false)
			if err != nil {
				return err
			}
			w.bind(id)
			sets = append(sets, p.Column()+" = ?")
			continue
		}

		v, _ := p.Value(e)
		if isNil(v) {
			continue
		}
		w.bind(Param(v))
		sets = append(sets, p.Column()+" = ?")
	}

	if len(sets) == 0 {
		return fmt.Errorf("%w: %s", ErrNothingToUpdate, d.Name())
	}

	id, _, err := d.IdentifierValue(e)
	if err != nil {
		return err
	}
	w.bind(Param(id))

	fmt.Fprintf(w, "UPDATE %s SET %s WHERE %s = ?", d.Qualified(), strings.Join(sets, ", "), idColumn)
	return nil
}
