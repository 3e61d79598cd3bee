// Package store defines the contract between the mapping layer and backing
// stores. Adapters exchange flat attribute maps: declared properties by
// name, belongs_to associations by name holding the target id, and the
// reserved "id" key.
package store

import (
	"context"
	"sort"

	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/spf13/cast"
)

// Attributes is one record as exchanged with an adapter
type Attributes map[string]any

// ID returns the record identifier, "" when absent
func (a Attributes) ID() string {
	if v, ok := a[schema.IDAttribute]; ok && v != nil {
		return cast.ToString(v)
	}
	return ""
}

// Clone returns a shallow copy
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Keys returns the attribute names in sorted order
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Instance is an entity handed to an adapter for writing
type Instance interface {
	EntityType() *schema.EntityType
	ID() string
	IsNew() bool
	// Attributes returns the in-memory values without triggering a load
	Attributes() Attributes
}

// StatementSource is implemented by instances that can describe themselves
// as graph statements
type StatementSource interface {
	Statements(ctx context.Context) ([]query.Statement, error)
}

// Adapter is a backing store. Load returns every record matching the query;
// the write operations return the stored attributes.
type Adapter interface {
	Load(ctx context.Context, q *query.Query) ([]Attributes, error)
	Save(ctx context.Context, inst Instance) (Attributes, error)
	Create(ctx context.Context, inst Instance) (Attributes, error)
	Update(ctx context.Context, inst Instance) (Attributes, error)
	Reload(ctx context.Context, inst Instance) (Attributes, error)
}

// Page applies the query's offset and limit to an in-memory result list
func Page(records []Attributes, q *query.Query) []Attributes {
	if off := q.Offset(); off > 0 {
		if off >= len(records) {
			return []Attributes{}
		}
		records = records[off:]
	}
	if limit := q.Limit(); limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}

// Filter keeps the records matching q, evaluated over raw attributes
func Filter(ctx context.Context, q *query.Query, records []Attributes) ([]Attributes, error) {
	matched := make([]Attributes, 0, len(records))
	for _, rec := range records {
		ok, err := q.Matches(ctx, query.MapRecord(q.EntityType(), rec))
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}
