// Package schema provides entity type and attribute metadata for the mapper.
// It describes declared properties and associations, derives RDF type and
// predicate identifiers from namespaces, and links associations to their
// target entity types.
package schema

import (
	"fmt"
	"sort"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
)

// RDFType is the predicate used for type declaration statements
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// IDAttribute is the reserved identifier attribute name
const IDAttribute = "id"

// Classification represents the kind of a declared attribute
type Classification int

const (
	ClassProperty Classification = iota
	ClassBelongsTo
	ClassHasMany
	ClassHasOne
	ClassHasAndBelongs
)

// String returns the string representation of the classification
func (c Classification) String() string {
	switch c {
	case ClassProperty:
		return "property"
	case ClassBelongsTo:
		return "belongs_to"
	case ClassHasMany:
		return "has_many"
	case ClassHasOne:
		return "has_one"
	case ClassHasAndBelongs:
		return "has_and_belongs"
	default:
		return "unknown"
	}
}

// ParseClassification converts a string to a Classification
func ParseClassification(s string) (Classification, error) {
	switch s {
	case "", "property":
		return ClassProperty, nil
	case "belongs_to":
		return ClassBelongsTo, nil
	case "has_many":
		return ClassHasMany, nil
	case "has_one":
		return ClassHasOne, nil
	case "has_and_belongs":
		return ClassHasAndBelongs, nil
	default:
		return 0, fmt.Errorf("unknown association kind: %s", s)
	}
}

// Kind is the value kind of a property, used to coerce assigned values
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindFloat
	KindURI
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindURI:
		return "uri"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "text":
		return KindText, nil
	case "integer":
		return KindInteger, nil
	case "float":
		return KindFloat, nil
	case "uri":
		return KindURI, nil
	default:
		return 0, fmt.Errorf("unknown property kind: %s", s)
	}
}

// TypeOption configures an EntityType
type TypeOption func(*EntityType)

// WithNamespace sets the namespace IRI used to derive type and predicates
func WithNamespace(ns string) TypeOption {
	return func(et *EntityType) {
		et.Namespace = ns
	}
}

// WithType sets an explicit type IRI
func WithType(iri string) TypeOption {
	return func(et *EntityType) {
		et.explicitType = iri
	}
}

// EntityType describes a declared domain type
type EntityType struct {
	Name      string
	Namespace string

	explicitType string
	typeIRI      string

	attributes map[string]*Attribute
	order      []string
}

// NewEntityType creates a new EntityType
func NewEntityType(name string, opts ...TypeOption) *EntityType {
	et := &EntityType{
		Name:       name,
		attributes: make(map[string]*Attribute),
		order:      make([]string, 0),
	}
	for _, opt := range opts {
		opt(et)
	}
	return et
}

// Type returns the type IRI: the explicit value or namespace+name.
// Empty when neither is available.
func (et *EntityType) Type() string {
	if et.typeIRI != "" {
		return et.typeIRI
	}
	return et.computeType()
}

func (et *EntityType) computeType() string {
	if et.explicitType != "" {
		return et.explicitType
	}
	if et.Namespace == "" {
		return ""
	}
	return et.Namespace + et.Name
}

// Term returns namespace[name], or "" when the type has no namespace
func (et *EntityType) Term(name string) string {
	if et.Namespace == "" {
		return ""
	}
	return et.Namespace + name
}

// Declare registers a new attribute descriptor. Attribute names are unique
// per type and "id" is reserved.
func (et *EntityType) Declare(name string, opts ...AttributeOption) (*Attribute, error) {
	if name == "" {
		return nil, ormerrors.Configurationf("%s: attribute name must not be empty", et.Name)
	}
	if name == IDAttribute {
		return nil, ormerrors.Configurationf("%s: attribute name %q is reserved", et.Name, name)
	}
	if _, exists := et.attributes[name]; exists {
		return nil, ormerrors.Configurationf("%s: attribute %s is already declared", et.Name, name)
	}

	attr := &Attribute{
		Owner: et,
		Name:  name,
		Class: ClassProperty,
		Kind:  KindText,
	}
	for _, opt := range opts {
		opt(attr)
	}

	et.attributes[name] = attr
	et.order = append(et.order, name)
	return attr, nil
}

// MustDeclare is like Declare but panics on error. Intended for static schemas.
func (et *EntityType) MustDeclare(name string, opts ...AttributeOption) *Attribute {
	attr, err := et.Declare(name, opts...)
	if err != nil {
		panic(err)
	}
	return attr
}

// Attribute returns the attribute with the given name
func (et *EntityType) Attribute(name string) (*Attribute, bool) {
	attr, ok := et.attributes[name]
	return attr, ok
}

// Attributes returns all attributes in declaration order
func (et *EntityType) Attributes() []*Attribute {
	result := make([]*Attribute, 0, len(et.order))
	for _, name := range et.order {
		result = append(result, et.attributes[name])
	}
	return result
}

// Properties returns the scalar attributes in declaration order
func (et *EntityType) Properties() []*Attribute {
	result := make([]*Attribute, 0)
	for _, attr := range et.Attributes() {
		if attr.IsProperty() {
			result = append(result, attr)
		}
	}
	return result
}

// Associations returns the association attributes in declaration order
func (et *EntityType) Associations() []*Attribute {
	result := make([]*Attribute, 0)
	for _, attr := range et.Attributes() {
		if !attr.IsProperty() {
			result = append(result, attr)
		}
	}
	return result
}

// Names returns the sorted attribute names
func (et *EntityType) Names() []string {
	names := make([]string, 0, len(et.attributes))
	for name := range et.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has returns the attribute known by name or by predicate IRI, nil if none
func (et *EntityType) Has(nameOrPredicate string) *Attribute {
	if attr, ok := et.attributes[nameOrPredicate]; ok {
		return attr
	}
	return et.HasFor(nameOrPredicate, nil)
}

// HasFor returns the first attribute (in declaration order) matching the
// predicate and value type. See Attribute.Matches.
func (et *EntityType) HasFor(predicate string, valueType *EntityType) *Attribute {
	for _, attr := range et.Attributes() {
		if attr.Matches(predicate, valueType) {
			return attr
		}
	}
	return nil
}

// String returns the type name
func (et *EntityType) String() string {
	return et.Name
}
