package model

import (
	"context"

	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/store"
)

// Collection is a lazy, index-addressable view over a Loader. Entities are
// created once per index and cached separately from the Loader's records.
type Collection struct {
	loader   *Loader
	entities map[int]*Entity
}

// NewCollection creates a collection over q
func NewCollection(m *Mapper, q *query.Query) *Collection {
	return &Collection{
		loader:   NewLoader(m, q),
		entities: make(map[int]*Entity),
	}
}

// Loader returns the underlying loader
func (c *Collection) Loader() *Loader { return c.loader }

// From binds an adapter and returns the collection for chaining
func (c *Collection) From(adapter store.Adapter) *Collection {
	c.loader.From(adapter)
	return c
}

// At returns the scoped entity at index without fetching. An index past the
// end yields an entity that reports not found on first access.
func (c *Collection) At(index int) *Entity {
	if e, ok := c.entities[index]; ok {
		return e
	}
	e := c.loader.Get(index)
	c.entities[index] = e
	return e
}

// First returns the entity at index 0
func (c *Collection) First() *Entity {
	return c.At(0)
}

// Last returns the entity at the last index
func (c *Collection) Last(ctx context.Context) (*Entity, error) {
	n, err := c.Len(ctx)
	if err != nil {
		return nil, err
	}
	return c.At(n - 1), nil
}

// Len returns the number of matching records
func (c *Collection) Len(ctx context.Context) (int, error) {
	return c.loader.Len(ctx)
}

// Empty reports whether the collection has no records
func (c *Collection) Empty(ctx context.Context) (bool, error) {
	n, err := c.Len(ctx)
	return n == 0, err
}

// All realizes every index. The full result set is fetched first.
func (c *Collection) All(ctx context.Context) ([]*Entity, error) {
	n, err := c.Len(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, n)
	for i := range out {
		out[i] = c.At(i)
	}
	return out, nil
}

// Each calls fn for every entity in order, stopping at the first error
func (c *Collection) Each(ctx context.Context, fn func(int, *Entity) error) error {
	all, err := c.All(ctx)
	if err != nil {
		return err
	}
	for i, e := range all {
		if err := fn(i, e); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether an entity with the same identifier is present
func (c *Collection) Contains(ctx context.Context, e *Entity) (bool, error) {
	all, err := c.All(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(all, e) >= 0, nil
}

func indexOf(entities []*Entity, e *Entity) int {
	for i, candidate := range entities {
		if candidate.Equal(e) {
			return i
		}
	}
	return -1
}
