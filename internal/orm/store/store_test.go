package store

import (
	"context"
	"testing"

	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testType(t *testing.T) *schema.EntityType {
	et := schema.NewEntityType("Person", schema.WithNamespace("http://example.org/"))
	et.MustDeclare("name")
	et.MustDeclare("age", schema.WithKind(schema.KindInteger))
	registry := schema.NewRegistry()
	registry.MustRegister(et)
	require.NoError(t, registry.Resolve())
	return et
}

func TestAttributes(t *testing.T) {
	attrs := Attributes{"id": 7, "name": "Alice"}
	assert.Equal(t, "7", attrs.ID())
	assert.Equal(t, []string{"id", "name"}, attrs.Keys())

	clone := attrs.Clone()
	clone["name"] = "Bob"
	assert.Equal(t, "Alice", attrs["name"])
	assert.Equal(t, "", Attributes{}.ID())
}

func TestFilterAndPage(t *testing.T) {
	et := testType(t)
	records := []Attributes{
		{"id": "1", "name": "Alice", "age": 34},
		{"id": "2", "name": "Bob", "age": 25},
		{"id": "3", "name": "Carol", "age": 41},
	}

	q := query.MustNew(et, query.WithTemplate("age > 30"), query.WithOffset(1), query.WithLimit(5))
	matched, err := Filter(context.Background(), q, records)
	require.NoError(t, err)
	require.Len(t, matched, 2)

	paged := Page(matched, q)
	require.Len(t, paged, 1)
	assert.Equal(t, "3", paged[0].ID())

	assert.Empty(t, Page(records, query.MustNew(et, query.WithOffset(9))))
	assert.Len(t, Page(records, query.MustNew(et, query.WithLimit(2))), 2)
}
