package client

import (
	"context"

	"github.com/satishbabariya/loom/query/builder"
	"github.com/satishbabariya/loom/query/mapper"
)

// Find is Get keeping the entities of type T.
func Find[T any](ctx context.Context, c *Client, b *builder.Builder) ([]T, error) {
	entities, err := c.Get(ctx, b)
	if err != nil {
		return nil, err
	}
	return mapper.Keep[T](entities), nil
}

// FindOne is GetOne returning the entity as T.
func FindOne[T any](ctx context.Context, c *Client, b *builder.Builder) (T, error) {
	var zero T
	e, err := c.GetOne(ctx, b)
	if err != nil {
		return zero, err
	}
	t, ok := e.(T)
	if !ok {
		return zero, &QueryError{Op: "select", Model: b.Entity().Name(), Err: ErrNotFound}
	}
	return t, nil
}
