package model

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/conduit-lang/graphmap/internal/orm/store"
)

// BelongsTo holds a single reference: either a key or a resolved target.
// Resolution of a key happens once, on first dereference.
type BelongsTo struct {
	owner *Entity
	attr  *schema.Attribute
	key   string
	value *Entity
}

func (b *BelongsTo) attribute() {}

// Descriptor returns the schema attribute
func (b *BelongsTo) Descriptor() *schema.Attribute { return b.attr }

// Key returns the target identifier without resolving it
func (b *BelongsTo) Key() string {
	if b.key != "" {
		return b.key
	}
	return b.value.ID()
}

// IsSet reports whether the association holds a key or a target
func (b *BelongsTo) IsSet() bool {
	return b.value != nil || b.key != ""
}

// Value returns the target entity, nil when unset. A key is resolved through
// the mapper's resolver on first call and memoized.
func (b *BelongsTo) Value(ctx context.Context) (*Entity, error) {
	if b.value != nil {
		return b.value, nil
	}
	if b.key == "" {
		return nil, nil
	}

	target, err := b.attr.Target()
	if err != nil {
		return nil, err
	}
	rec, err := b.owner.mapper.Resolver().Find(ctx, target, b.key)
	if err != nil {
		return nil, err
	}
	e, ok := rec.(*Entity)
	if !ok {
		return nil, ormerrors.Resolutionf("%s.%s: resolver returned %T for %s",
			b.owner.et.Name, b.attr.Name, rec, b.key)
	}
	b.value = e
	return e, nil
}

// Unwrap returns the target entity, or nil
func (b *BelongsTo) Unwrap(ctx context.Context) (any, error) {
	e, err := b.Value(ctx)
	if err != nil || e == nil {
		return nil, err
	}
	return e, nil
}

// Replace points the association at a key (string) or an entity. A nested
// record, as returned by adapters that include associations, becomes a
// loaded target entity. Any other value clears the association.
func (b *BelongsTo) Replace(ctx context.Context, v any) error {
	switch val := v.(type) {
	case string:
		b.key, b.value = val, nil
		if val == "" {
			return nil
		}
	case *Entity:
		b.key, b.value = "", val
		if val == nil {
			return nil
		}
	case store.Attributes:
		return b.replaceRecord(ctx, val)
	case map[string]any:
		return b.replaceRecord(ctx, store.Attributes(val))
	case query.Record:
		b.key, b.value = val.ID(), nil
	default:
		b.key, b.value = "", nil
	}
	return nil
}

func (b *BelongsTo) replaceRecord(ctx context.Context, rec store.Attributes) error {
	target, err := b.attr.Target()
	if err != nil {
		return err
	}
	e, err := b.owner.mapper.instantiate(ctx, target, rec)
	if err != nil {
		return errors.Wrapf(err, "%s.%s", b.owner.et.Name, b.attr.Name)
	}
	b.key, b.value = "", e
	return nil
}
