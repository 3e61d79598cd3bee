package query

import (
	"context"
	"testing"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/stretchr/testify/require"
)

const testNS = "http://example.org/schema#"

type testSchema struct {
	company  *schema.EntityType
	employee *schema.EntityType
}

func setupTestSchema(t *testing.T) *testSchema {
	company := schema.NewEntityType("Company", schema.WithNamespace(testNS))
	company.MustDeclare("name")
	company.MustDeclare("employees", schema.HasMany())

	employee := schema.NewEntityType("Employee", schema.WithNamespace(testNS))
	employee.MustDeclare("name")
	employee.MustDeclare("age", schema.WithKind(schema.KindInteger))
	employee.MustDeclare("company", schema.BelongsTo())

	registry := schema.NewRegistry()
	registry.MustRegister(company, employee)
	require.NoError(t, registry.Resolve())

	return &testSchema{company: company, employee: employee}
}

// fakeResolver serves records by id and counts lookups
type fakeResolver struct {
	records  map[string]Record
	reloaded map[string]Record
	finds    int
	reloads  int
}

func newFakeResolver(records ...Record) *fakeResolver {
	r := &fakeResolver{records: make(map[string]Record), reloaded: make(map[string]Record)}
	for _, rec := range records {
		r.records[rec.ID()] = rec
	}
	return r
}

func (r *fakeResolver) Find(_ context.Context, _ *schema.EntityType, key string) (Record, error) {
	r.finds++
	rec, ok := r.records[key]
	if !ok {
		return nil, ormerrors.ErrEntityNotFound
	}
	return rec, nil
}

func (r *fakeResolver) Reload(_ context.Context, rec Record) (Record, error) {
	r.reloads++
	if fresh, ok := r.reloaded[rec.ID()]; ok {
		return fresh, nil
	}
	return rec, nil
}
