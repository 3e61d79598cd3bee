package model

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/spf13/cast"
)

// Attribute is the value holder bound to one declared attribute of an
// entity. The set of implementations is closed: *Property, *BelongsTo,
// *HasMany and *Unsupported.
type Attribute interface {
	// Descriptor returns the schema attribute the holder is bound to
	Descriptor() *schema.Attribute
	// Unwrap returns the held value, resolving associations if needed
	Unwrap(ctx context.Context) (any, error)

	attribute()
}

func newAttribute(owner *Entity, attr *schema.Attribute) Attribute {
	switch {
	case attr.IsProperty():
		return &Property{attr: attr, fresh: true}
	case !attr.IsSupported():
		return &Unsupported{attr: attr}
	case attr.IsBelongsTo():
		return &BelongsTo{owner: owner, attr: attr}
	default:
		return &HasMany{owner: owner, attr: attr}
	}
}

// Property holds a scalar value coerced to the attribute's kind
type Property struct {
	attr  *schema.Attribute
	value any
	fresh bool
}

func (p *Property) attribute() {}

// Descriptor returns the schema attribute
func (p *Property) Descriptor() *schema.Attribute { return p.attr }

// Value returns the held value
func (p *Property) Value() any { return p.value }

// Unwrap returns the held value
func (p *Property) Unwrap(context.Context) (any, error) { return p.value, nil }

// IsNew reports whether the property was never assigned
func (p *Property) IsNew() bool { return p.fresh }

// Replace assigns v, coerced to the attribute's kind. Sequences keep their
// first element; nil clears the value.
func (p *Property) Replace(v any) error {
	p.fresh = false
	if items, ok := v.([]any); ok {
		if len(items) == 0 {
			v = nil
		} else {
			v = items[0]
		}
	}
	if v == nil {
		p.value = nil
		return nil
	}

	coerced, err := coerce(p.attr.Kind, v)
	if err != nil {
		return errors.Wrapf(err, "%s.%s", p.attr.Owner.Name, p.attr.Name)
	}
	p.value = coerced
	return nil
}

func coerce(kind schema.Kind, v any) (any, error) {
	switch kind {
	case schema.KindInteger:
		return cast.ToInt64E(v)
	case schema.KindFloat:
		return cast.ToFloat64E(v)
	default:
		return cast.ToStringE(v)
	}
}

// Unsupported holds an association variant that is declared but not
// implemented. Every operation returns ErrUnsupportedOperation.
type Unsupported struct {
	attr *schema.Attribute
}

func (u *Unsupported) attribute() {}

// Descriptor returns the schema attribute
func (u *Unsupported) Descriptor() *schema.Attribute { return u.attr }

// Unwrap always fails
func (u *Unsupported) Unwrap(context.Context) (any, error) {
	return nil, u.err()
}

// Replace always fails
func (u *Unsupported) Replace(any) error {
	return u.err()
}

func (u *Unsupported) err() error {
	return ormerrors.Unsupportedf("%s is not implemented (%s.%s)", u.attr.Class, u.attr.Owner.Name, u.attr.Name)
}
