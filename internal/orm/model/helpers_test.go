package model

import (
	"context"
	"fmt"
	"testing"

	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/conduit-lang/graphmap/internal/orm/store"
	"github.com/conduit-lang/graphmap/internal/orm/store/memstore"
	"github.com/stretchr/testify/require"
)

const testNS = "http://example.org/schema#"

type fixture struct {
	mapper   *Mapper
	store    *countingAdapter
	company  *schema.EntityType
	employee *schema.EntityType
}

// countingAdapter wraps an adapter and counts Load calls
type countingAdapter struct {
	store.Adapter
	loads int
}

func (c *countingAdapter) Load(ctx context.Context, q *query.Query) ([]store.Attributes, error) {
	c.loads++
	return c.Adapter.Load(ctx, q)
}

// countingResolver wraps a resolver and counts Find calls
type countingResolver struct {
	inner query.Resolver
	finds int
}

func (r *countingResolver) Find(ctx context.Context, et *schema.EntityType, key string) (query.Record, error) {
	r.finds++
	return r.inner.Find(ctx, et, key)
}

func (r *countingResolver) Reload(ctx context.Context, rec query.Record) (query.Record, error) {
	return r.inner.Reload(ctx, rec)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newTestRegistry(t *testing.T) (*schema.Registry, *schema.EntityType, *schema.EntityType) {
	company := schema.NewEntityType("Company", schema.WithNamespace(testNS))
	company.MustDeclare("name")
	company.MustDeclare("employees", schema.HasMany())
	company.MustDeclare("ceo", schema.WithAssociation(schema.ClassHasOne), schema.WithTarget("Employee"))

	employee := schema.NewEntityType("Employee", schema.WithNamespace(testNS))
	employee.MustDeclare("name")
	employee.MustDeclare("age", schema.WithKind(schema.KindInteger))
	employee.MustDeclare("company", schema.BelongsTo())

	registry := schema.NewRegistry()
	registry.MustRegister(company, employee)
	require.NoError(t, registry.Resolve())
	return registry, company, employee
}

func setupFixture(t *testing.T, opts ...Option) *fixture {
	registry, company, employee := newTestRegistry(t)
	adapter := &countingAdapter{Adapter: memstore.New(memstore.WithIDFunc(sequentialIDs("urn:test:")))}
	m := NewMapper(registry, append([]Option{WithDefaultAdapter(adapter)}, opts...)...)
	return &fixture{mapper: m, store: adapter, company: company, employee: employee}
}

func (f *fixture) create(t *testing.T, et *schema.EntityType, attrs map[string]any) *Entity {
	e, err := f.mapper.Create(context.Background(), et, attrs)
	require.NoError(t, err)
	require.NotEmpty(t, e.ID())
	return e
}

func ids(entities []*Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID()
	}
	return out
}
