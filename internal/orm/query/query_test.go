package query

import (
	"context"
	"testing"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StructuredMap(t *testing.T) {
	s := setupTestSchema(t)

	q, err := New(s.employee, WithConditions(map[string]any{
		"name":            "Alice",
		testNS + "age":    30,
		"id":              "e1",
		"favourite_color": "blue",
	}))
	require.NoError(t, err)
	assert.Len(t, q.Clauses(), 4)

	names := make([]string, 0)
	for _, clause := range q.Conditions() {
		names = append(names, clause.(*Condition).Name())
	}
	// Sorted keys; the unregistered key is dropped, id is kept
	assert.Equal(t, []string{"age", "id", "name"}, names)
	assert.Equal(t, "e1", q.ID())
	assert.Equal(t, 30, q.Get("age"))
}

func TestNew_StructuredMapSequenceExpandsUnderAnd(t *testing.T) {
	s := setupTestSchema(t)

	q, err := New(s.employee, WithConditions(map[string]any{"name": []string{"Alice", "Bob"}}))
	require.NoError(t, err)
	require.Len(t, q.Clauses(), 2)
	assert.Equal(t, And, q.Combinator())
	assert.Equal(t, "Alice", conditionAt(t, q, 0).Raw())
	assert.Equal(t, "Bob", conditionAt(t, q, 1).Raw())
}

func TestNew_StructuredMapEmptySequence(t *testing.T) {
	s := setupTestSchema(t)

	_, err := New(s.employee, WithConditions(map[string]any{"name": []any{}}))
	require.Error(t, err)
	assert.True(t, ormerrors.IsResolution(err))
}

func TestNew_Options(t *testing.T) {
	s := setupTestSchema(t)

	q := MustNew(s.employee, WithLimit(10), WithOffset(5), WithInclude("company"), WithSkip("company"))
	assert.Equal(t, 10, q.Limit())
	assert.Equal(t, 5, q.Offset())
	assert.Equal(t, []string{"company"}, q.Includes())
	assert.True(t, q.Skips("company"))
	assert.False(t, q.Skips("name"))

	q.Include("company")
	q.Include("name")
	assert.Equal(t, []string{"company", "name"}, q.Includes())
}

func TestQuery_Matches(t *testing.T) {
	s := setupTestSchema(t)
	ctx := context.Background()

	alice := MapRecord(s.employee, map[string]any{"id": "e1", "name": "Alice", "age": 34, "company": "c1"})
	bob := MapRecord(s.employee, map[string]any{"id": "e2", "name": "Bob", "age": 25, "company": "c2"})
	acme := MapRecord(s.company, map[string]any{"id": "c1", "name": "Alice"})

	tests := []struct {
		name     string
		template string
		args     []any
		alice    bool
		bob      bool
	}{
		{"scalar", "age > 30", nil, true, false},
		{"string", `name = "Bob"`, nil, false, true},
		{"and", `name = "Alice" AND age > 30`, nil, true, false},
		{"or", `name = "Bob" OR age > 30`, nil, true, true},
		{"nested", `(name = "Bob" OR age > 30) AND age < 30`, nil, false, true},
		{"membership", "name IN (?)", []any{[]string{"Bob", "Carol"}}, false, true},
		{"id", "id IN (?)", []any{[]string{"e1"}}, true, false},
		{"association by key", `company = "c1"`, nil, true, false},
		{"association by record", "company IN (?)", []any{[]Record{acme}}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New(s.employee, WithTemplate(tt.template, tt.args...))
			require.NoError(t, err)

			ok, err := q.Matches(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, tt.alice, ok, "alice")

			ok, err = q.Matches(ctx, bob)
			require.NoError(t, err)
			assert.Equal(t, tt.bob, ok, "bob")
		})
	}

	t.Run("wrong type never matches", func(t *testing.T) {
		q := MustNew(s.employee, WithTemplate(`name = "Alice"`))
		ok, err := q.Matches(ctx, acme)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty query matches its type", func(t *testing.T) {
		ok, err := MustNew(s.employee).Matches(ctx, bob)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestCondition_ValueResolvesAssociation(t *testing.T) {
	s := setupTestSchema(t)
	ctx := context.Background()

	acme := MapRecord(s.company, map[string]any{"id": "c1", "name": "Acme"})
	resolver := newFakeResolver(acme)

	q := MustNew(s.employee, WithResolver(resolver), WithConditions(map[string]any{"company": "c1", "name": "Alice"}))
	company := conditionAt(t, q, 0)
	require.True(t, company.IsAssociation())

	v, err := company.Value(ctx)
	require.NoError(t, err)
	assert.Same(t, acme, v)
	assert.Equal(t, 1, resolver.finds)

	// Scalars are returned as-is
	v, err = conditionAt(t, q, 1).Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", v)
}

func TestCondition_ValueReloadsOnceForRequired(t *testing.T) {
	s := setupTestSchema(t)
	ctx := context.Background()

	stale := MapRecord(s.company, map[string]any{"id": "c1"})
	fresh := MapRecord(s.company, map[string]any{"id": "c1", "name": "Acme"})
	resolver := newFakeResolver(stale)
	resolver.reloaded["c1"] = fresh

	q := MustNew(s.employee, WithResolver(resolver), WithConditions(map[string]any{"company": stale}))
	v, err := conditionAt(t, q, 0).Value(ctx, "name")
	require.NoError(t, err)
	assert.Same(t, fresh, v)
	assert.Equal(t, 1, resolver.reloads)
	assert.Equal(t, 0, resolver.finds, "typed instances are not looked up")
}

func TestCondition_ValueRequiredStillMissing(t *testing.T) {
	s := setupTestSchema(t)
	ctx := context.Background()

	stale := MapRecord(s.company, map[string]any{"id": "c1"})
	resolver := newFakeResolver(stale)

	q := MustNew(s.employee, WithResolver(resolver), WithConditions(map[string]any{"company": stale}))
	_, err := conditionAt(t, q, 0).Value(ctx, "name")
	require.Error(t, err)
	assert.True(t, ormerrors.IsResolution(err))
	assert.Equal(t, 1, resolver.reloads)
}

func TestCondition_ValueWithoutResolver(t *testing.T) {
	s := setupTestSchema(t)

	q := MustNew(s.employee, WithConditions(map[string]any{"company": "c1"}))
	_, err := conditionAt(t, q, 0).Value(context.Background())
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))
}

func TestQuery_String(t *testing.T) {
	s := setupTestSchema(t)

	q := MustNew(s.employee, WithTemplate(`(name = "Bob" OR age > 30) AND age < 50`))
	assert.Equal(t, `(name = "Bob" OR age > 30) AND age < 50`, q.String())
}

func TestScope_Bind(t *testing.T) {
	s := setupTestSchema(t)

	registry := NewScopeRegistry()
	registry.Register(&Scope{Name: "named", Type: "Employee", Template: "name IN (?) AND age > 18", Limit: 5})
	assert.True(t, registry.Has("named"))
	assert.Equal(t, []string{"named"}, registry.List())

	scope, err := registry.Get("named")
	require.NoError(t, err)
	assert.Equal(t, 1, scope.Arity())

	q, err := scope.Bind(s.employee, []any{[]string{"Alice"}}, WithOffset(2))
	require.NoError(t, err)
	assert.Len(t, q.Clauses(), 2)
	assert.Equal(t, 5, q.Limit())
	assert.Equal(t, 2, q.Offset())

	_, err = scope.Bind(s.employee, nil)
	assert.True(t, ormerrors.IsConfiguration(err))
	_, err = scope.Bind(s.company, []any{[]string{"Alice"}})
	assert.True(t, ormerrors.IsConfiguration(err))
	_, err = registry.Get("missing")
	assert.True(t, ormerrors.IsConfiguration(err))
}
