package query

import (
	"context"

	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/spf13/cast"
)

// Record is a typed instance a query can be evaluated against. Attr returns
// scalar values for properties; associations return a Record, a []Record, or
// a raw key.
type Record interface {
	EntityType() *schema.EntityType
	ID() string
	Attr(ctx context.Context, name string) (any, error)
}

// Resolver looks up association targets by key
type Resolver interface {
	Find(ctx context.Context, et *schema.EntityType, key string) (Record, error)
	Reload(ctx context.Context, rec Record) (Record, error)
}

type mapRecord struct {
	et    *schema.EntityType
	attrs map[string]any
}

// MapRecord wraps a raw attribute map so adapters can evaluate Matches
// without materializing entities. Association attributes hold target ids.
func MapRecord(et *schema.EntityType, attrs map[string]any) Record {
	return &mapRecord{et: et, attrs: attrs}
}

func (r *mapRecord) EntityType() *schema.EntityType { return r.et }

func (r *mapRecord) ID() string {
	if id, ok := r.attrs[schema.IDAttribute]; ok && id != nil {
		return cast.ToString(id)
	}
	return ""
}

func (r *mapRecord) Attr(_ context.Context, name string) (any, error) {
	return r.attrs[name], nil
}

// IDOf returns the identifier a value refers to: the id of a Record, or the
// value itself as a string
func IDOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case Record:
		return val.ID()
	default:
		return cast.ToString(val)
	}
}
