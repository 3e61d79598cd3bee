package model

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_NewFromNamesAndPredicates(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	e, err := f.mapper.New(ctx, f.employee, map[string]any{
		testNS + "name": "Zed",
		"age":           "42",
		"nickname":      "z",
	})
	require.NoError(t, err)

	assert.True(t, e.IsNew())
	assert.Equal(t, StateLoaded, e.State())

	name, err := e.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "Zed", name)

	age, err := e.Get(ctx, testNS+"age")
	require.NoError(t, err)
	assert.Equal(t, int64(42), age)

	nick, err := e.Get(ctx, "nickname")
	require.NoError(t, err)
	assert.Equal(t, "z", nick)

	attrs := e.Attributes()
	assert.Equal(t, "Zed", attrs["name"])
	assert.Equal(t, "z", attrs["nickname"])
	assert.Nil(t, attrs["company"])
	assert.NotContains(t, attrs, "id")
}

func TestEntity_PropertyCoercion(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	e, err := f.mapper.New(ctx, f.employee, nil)
	require.NoError(t, err)

	holder, err := e.Attribute(ctx, "age")
	require.NoError(t, err)
	prop := holder.(*Property)
	assert.True(t, prop.IsNew())

	require.NoError(t, e.Set(ctx, "age", []any{"7", "8"}))
	assert.Equal(t, int64(7), prop.Value())
	assert.False(t, prop.IsNew())

	require.NoError(t, e.Set(ctx, "age", 3.0))
	assert.Equal(t, int64(3), prop.Value())

	assert.Error(t, e.Set(ctx, "age", "forty"))

	require.NoError(t, e.Set(ctx, "name", 12))
	name, err := e.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "12", name)

	require.NoError(t, e.Set(ctx, "age", nil))
	assert.Nil(t, prop.Value())
}

func TestEntity_IDCannotBeSet(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	e, err := f.mapper.New(ctx, f.employee, map[string]any{"id": "urn:e"})
	require.NoError(t, err)

	require.NoError(t, e.Set(ctx, "id", "urn:other"))
	assert.Equal(t, "urn:e", e.ID())
}

func TestEntity_NilIsSafe(t *testing.T) {
	var e *Entity
	assert.Equal(t, "", e.ID())
	assert.Equal(t, "", query.IDOf(e))
	assert.Equal(t, "<nil>", e.String())
	assert.False(t, e.Equal(&Entity{}))
}

func TestEntity_SaveCreatesThenUpdates(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	e, err := f.mapper.New(ctx, f.employee, map[string]any{"name": "Alice", "age": 34})
	require.NoError(t, err)
	require.NoError(t, e.Save(ctx))
	assert.Equal(t, "urn:test:1", e.ID())

	require.NoError(t, e.Set(ctx, "age", 35))
	require.NoError(t, e.Save(ctx))

	fresh, err := f.mapper.Find(f.employee, e.ID())
	require.NoError(t, err)
	age, err := fresh.Get(ctx, "age")
	require.NoError(t, err)
	assert.Equal(t, int64(35), age)
}

func TestEntity_SaveWithoutAdapter(t *testing.T) {
	registry, _, employee := newTestRegistry(t)
	m := NewMapper(registry)
	ctx := context.Background()

	e, err := m.New(ctx, employee, map[string]any{"name": "Alice"})
	require.NoError(t, err)
	assert.True(t, ormerrors.IsConfiguration(e.Save(ctx)))
}

func TestEntity_Reload(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice := f.create(t, f.employee, map[string]any{"name": "Alice"})

	other, err := f.mapper.Find(f.employee, alice.ID())
	require.NoError(t, err)
	require.NoError(t, other.Set(ctx, "name", "Alicia"))
	require.NoError(t, other.Save(ctx))

	require.NoError(t, alice.Reload(ctx))
	name, err := alice.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", name)

	unsaved, err := f.mapper.New(ctx, f.employee, nil)
	require.NoError(t, err)
	assert.True(t, errors.Is(unsaved.Reload(ctx), ormerrors.ErrMissingID))
}

func TestEntity_Statements(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.create(t, f.company, map[string]any{"name": "Acme"})
	alice := f.create(t, f.employee, map[string]any{"name": "Alice", "age": 34, "company": acme})

	statements, err := alice.Statements(ctx)
	require.NoError(t, err)

	subject := query.IRI(alice.ID())
	assert.Equal(t, []query.Statement{
		{Subject: subject, Predicate: query.IRI(schema.RDFType), Object: query.IRI(testNS + "Employee")},
		{Subject: subject, Predicate: query.IRI(testNS + "name"), Object: query.Literal{Value: "Alice"}},
		{Subject: subject, Predicate: query.IRI(testNS + "age"), Object: query.Literal{Value: int64(34)}},
		{Subject: subject, Predicate: query.IRI(testNS + "company"), Object: query.IRI(acme.ID())},
	}, statements)

	unsaved, err := f.mapper.New(ctx, f.employee, nil)
	require.NoError(t, err)
	_, err = unsaved.Statements(ctx)
	assert.True(t, errors.Is(err, ormerrors.ErrMissingID))
}

func TestEntity_MatchesAsRecord(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.create(t, f.company, map[string]any{"name": "Acme"})
	alice := f.create(t, f.employee, map[string]any{"name": "Alice", "age": 34, "company": acme.ID()})

	q, err := f.mapper.Query(f.employee, query.WithConditions(map[string]any{"company": acme}))
	require.NoError(t, err)
	ok, err := q.Matches(ctx, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	q, err = f.mapper.Query(f.employee, query.WithTemplate(`name = "Bob" OR age >= 34`))
	require.NoError(t, err)
	ok, err = q.Matches(ctx, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.Matches(ctx, acme)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntity_UnsupportedAssociation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	acme := f.create(t, f.company, map[string]any{"name": "Acme"})

	_, err := acme.Get(ctx, "ceo")
	assert.True(t, ormerrors.IsUnsupported(err))
	assert.True(t, ormerrors.IsUnsupported(acme.Set(ctx, "ceo", "urn:someone")))

	holder, err := acme.Attribute(ctx, "ceo")
	require.NoError(t, err)
	assert.True(t, ormerrors.IsUnsupported(holder.(*Unsupported).Replace(nil)))
}

func TestMapper_FindVariants(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice := f.create(t, f.employee, map[string]any{"name": "Alice"})
	f.create(t, f.employee, map[string]any{"name": "Bob"})
	carol := f.create(t, f.employee, map[string]any{"name": "Carol"})

	c, err := f.mapper.FindAll(f.employee, []string{alice.ID(), carol.ID()})
	require.NoError(t, err)
	all, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID(), carol.ID()}, ids(all))

	none, err := f.mapper.FindAll(f.employee, nil)
	require.NoError(t, err)
	empty, err := none.Empty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	first, err := f.mapper.First(f.employee)
	require.NoError(t, err)
	name, err := first.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	last, err := f.mapper.Last(ctx, f.employee)
	require.NoError(t, err)
	assert.Equal(t, carol.ID(), last.ID())

	_, err = f.mapper.Type("Nobody")
	assert.True(t, ormerrors.IsConfiguration(err))
}

func TestMapper_FindOrCreate(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	alice := f.create(t, f.employee, map[string]any{"name": "Alice"})

	found, err := f.mapper.FindOrCreate(ctx, f.employee, map[string]any{"id": alice.ID(), "name": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID(), found.ID())
	name, err := found.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	created, err := f.mapper.FindOrCreate(ctx, f.employee, map[string]any{"id": "urn:bob", "name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "urn:bob", created.ID())

	all, err := f.mapper.All(f.employee)
	require.NoError(t, err)
	n, err := all.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
