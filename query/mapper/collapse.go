package mapper

import (
	"github.com/satishbabariya/loom/internal/debug"
	"github.com/satishbabariya/loom/schema"
)

// Collapse merges runs of consecutive entities that share an identifier
// into the first entity of the run, appending the collection members of the
// others. Entities without a set identifier are never merged.
func Collapse(d *schema.Descriptor, entities []schema.Entity) []schema.Entity {
	if len(entities) < 2 {
		return entities
	}
	collections := d.Collections()

	out := make([]schema.Entity, 0, len(entities))
	var (
		head   schema.Entity
		headID any
	)
	for _, e := range entities {
		id, set, err := d.IdentifierValue(e)
		if err != nil || !set {
			out = append(out, e)
			head = nil
			continue
		}

		if head != nil && id == headID {
			for _, c := range collections {
				for _, item := range c.Items(e) {
					if err := c.Append(head, item); err != nil {
						debug.Debug("collapse append failed", "entity", d.Name(), "property", c.Name(), "error", err)
					}
				}
			}
			continue
		}

		out = append(out, e)
		head, headID = e, id
	}
	return out
}
