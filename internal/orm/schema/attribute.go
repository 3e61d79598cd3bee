package schema

import (
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
)

// AttributeOption configures an Attribute at declaration time
type AttributeOption func(*Attribute)

// WithPredicate sets an explicit predicate IRI
func WithPredicate(iri string) AttributeOption {
	return func(a *Attribute) {
		a.explicitPredicate = iri
	}
}

// WithKind sets the value kind of a property
func WithKind(kind Kind) AttributeOption {
	return func(a *Attribute) {
		a.Kind = kind
	}
}

// WithAssociation marks the attribute as an association of the given class
func WithAssociation(class Classification) AttributeOption {
	return func(a *Attribute) {
		a.Class = class
	}
}

// WithTarget names the target entity type of an association explicitly
func WithTarget(typeName string) AttributeOption {
	return func(a *Attribute) {
		a.targetName = typeName
	}
}

// BelongsTo is shorthand for WithAssociation(ClassBelongsTo)
func BelongsTo() AttributeOption { return WithAssociation(ClassBelongsTo) }

// HasMany is shorthand for WithAssociation(ClassHasMany)
func HasMany() AttributeOption { return WithAssociation(ClassHasMany) }

// Attribute describes one declared attribute of an EntityType
type Attribute struct {
	Owner *EntityType
	Name  string
	Class Classification
	Kind  Kind

	explicitPredicate string
	predicate         string

	targetName string
	target     *EntityType
	targetErr  error
	resolved   bool
}

// IsProperty returns true for scalar attributes
func (a *Attribute) IsProperty() bool {
	return a.Class == ClassProperty
}

// IsAssociation returns true for any association class
func (a *Attribute) IsAssociation() bool {
	return a.Class != ClassProperty
}

// IsBelongsTo returns true for single-reference associations
func (a *Attribute) IsBelongsTo() bool {
	return a.Class == ClassBelongsTo
}

// IsMultiple returns true for associations holding many targets
func (a *Attribute) IsMultiple() bool {
	return a.Class == ClassHasMany || a.Class == ClassHasAndBelongs
}

// IsSupported returns false for association variants that are declared but
// not implemented (has_one, has_and_belongs)
func (a *Attribute) IsSupported() bool {
	return a.Class != ClassHasOne && a.Class != ClassHasAndBelongs
}

// TargetName returns the explicitly configured target type name, if any
func (a *Attribute) TargetName() string {
	return a.targetName
}

// Predicate returns the predicate IRI: the explicit option or namespace[name].
// Empty when neither is available.
func (a *Attribute) Predicate() string {
	if a.predicate != "" {
		return a.predicate
	}
	return a.computePredicate()
}

func (a *Attribute) computePredicate() string {
	if a.explicitPredicate != "" {
		return a.explicitPredicate
	}
	return a.Owner.Term(a.Name)
}

// Target returns the associated entity type. Properties have no target.
// Resolution failures recorded by Registry.Resolve surface here.
func (a *Attribute) Target() (*EntityType, error) {
	if a.IsProperty() {
		return nil, nil
	}
	if !a.resolved {
		return nil, ormerrors.Configurationf("%s.%s: association target is not resolved (registry not resolved)",
			a.Owner.Name, a.Name)
	}
	return a.target, a.targetErr
}

// Matches reports whether the attribute carries the given predicate and, when
// valueType is non-nil, whether it is an association targeting valueType.
// An empty predicate together with a value type matches on the type alone.
func (a *Attribute) Matches(predicate string, valueType *EntityType) bool {
	own := a.Predicate()
	if own == "" {
		return false
	}
	if valueType == nil {
		return own == predicate
	}
	target, err := a.Target()
	if err != nil || target == nil {
		return false
	}
	if valueType.Type() != target.Type() {
		return false
	}
	if predicate == "" {
		return true
	}
	return predicate == own
}

// conventionalTypeName derives the target type name from the attribute name
func (a *Attribute) conventionalTypeName() string {
	if a.IsMultiple() {
		return classify(a.Name)
	}
	return classify(pluralize(a.Name))
}
