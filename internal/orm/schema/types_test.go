package schema

import (
	"testing"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassification_String(t *testing.T) {
	tests := []struct {
		class    Classification
		expected string
	}{
		{ClassProperty, "property"},
		{ClassBelongsTo, "belongs_to"},
		{ClassHasMany, "has_many"},
		{ClassHasOne, "has_one"},
		{ClassHasAndBelongs, "has_and_belongs"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.class.String())
		parsed, err := ParseClassification(tt.expected)
		require.NoError(t, err)
		assert.Equal(t, tt.class, parsed)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindText, KindInteger, KindFloat, KindURI} {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("decimal")
	assert.Error(t, err)
}

func TestEntityType_Type(t *testing.T) {
	assert.Equal(t, testNS+"Person", NewEntityType("Person", WithNamespace(testNS)).Type())
	assert.Equal(t, "urn:agent", NewEntityType("Person", WithNamespace(testNS), WithType("urn:agent")).Type())
	assert.Equal(t, "", NewEntityType("Person").Type())
}

func TestEntityType_Declare(t *testing.T) {
	et := NewEntityType("Person", WithNamespace(testNS))

	attr, err := et.Declare("name")
	require.NoError(t, err)
	assert.True(t, attr.IsProperty())
	assert.Equal(t, KindText, attr.Kind)
	assert.Equal(t, testNS+"name", attr.Predicate())

	_, err = et.Declare("name")
	assert.True(t, ormerrors.IsConfiguration(err))

	_, err = et.Declare("id")
	assert.True(t, ormerrors.IsConfiguration(err))

	et.MustDeclare("company", BelongsTo(), WithPredicate("urn:employer"))
	et.MustDeclare("friends", HasMany())

	assert.Len(t, et.Properties(), 1)
	assert.Len(t, et.Associations(), 2)
	assert.Equal(t, []string{"company", "friends", "name"}, et.Names())
	assert.Equal(t, "name", et.Attributes()[0].Name)
}

func TestEntityType_Has(t *testing.T) {
	_, company, employee := setupTestRegistry(t)

	assert.Equal(t, "name", employee.Has("name").Name)
	assert.Equal(t, "age", employee.Has(testNS+"age").Name)
	assert.Nil(t, employee.Has(testNS+"unknown"))
	assert.Nil(t, employee.Has("unknown"))

	// Reverse lookup by value type only
	reverse := employee.HasFor("", company)
	require.NotNil(t, reverse)
	assert.Equal(t, "company", reverse.Name)
}

func TestAttribute_Matches(t *testing.T) {
	_, company, employee := setupTestRegistry(t)
	companyAttr, _ := employee.Attribute("company")
	nameAttr, _ := employee.Attribute("name")

	t.Run("predicate only", func(t *testing.T) {
		assert.True(t, nameAttr.Matches(testNS+"name", nil))
		assert.False(t, nameAttr.Matches(testNS+"age", nil))
	})

	t.Run("value type only", func(t *testing.T) {
		assert.True(t, companyAttr.Matches("", company))
		assert.False(t, companyAttr.Matches("", employee))
		assert.False(t, nameAttr.Matches("", company), "properties never match a value")
	})

	t.Run("predicate and value type", func(t *testing.T) {
		assert.True(t, companyAttr.Matches(testNS+"company", company))
		assert.False(t, companyAttr.Matches(testNS+"employer", company))
	})

	t.Run("no predicate", func(t *testing.T) {
		bare := NewEntityType("Bare")
		attr := bare.MustDeclare("thing")
		assert.False(t, attr.Matches("", nil))
	})
}

func TestAttribute_Supported(t *testing.T) {
	et := NewEntityType("Person", WithNamespace(testNS))
	boss := et.MustDeclare("boss", WithAssociation(ClassHasOne))
	groups := et.MustDeclare("groups", WithAssociation(ClassHasAndBelongs))
	assert.False(t, boss.IsSupported())
	assert.False(t, groups.IsSupported())
	assert.True(t, groups.IsMultiple())
	assert.False(t, boss.IsMultiple())
}
