package query

import (
	"context"
	"fmt"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
)

// Clause is one item of a query level: a *Condition or a nested *Query
type Clause interface {
	Matches(ctx context.Context, rec Record) (bool, error)
	String() string
}

// Condition is one comparison test over an attribute of the owning type
type Condition struct {
	owner *schema.EntityType
	key   string
	op    Operator
	value any
	query *Query
}

func newCondition(q *Query, key string, value any, op Operator) (*Condition, error) {
	if items, ok := asSlice(value); ok {
		if len(items) == 0 {
			return nil, ormerrors.Resolutionf("no value assigned to %s", key)
		}
		value = items
		op = OpIn
	}
	return &Condition{owner: q.et, key: key, op: op, value: value, query: q}, nil
}

// Key returns the raw key the condition was built with
func (c *Condition) Key() string { return c.key }

// Operator returns the comparison operator
func (c *Condition) Operator() Operator { return c.op }

// Raw returns the unresolved value
func (c *Condition) Raw() any { return c.value }

// Name resolves the key against the owning type: the reserved id, the
// declared attribute name for a name or predicate, or the key unchanged
func (c *Condition) Name() string {
	if c.key == schema.IDAttribute {
		return c.key
	}
	if attr := c.owner.Has(c.key); attr != nil {
		return attr.Name
	}
	return c.key
}

// Recognized reports whether the key is id or a declared attribute
func (c *Condition) Recognized() bool {
	return c.key == schema.IDAttribute || c.owner.Has(c.key) != nil
}

// Attribute returns the descriptor the key resolves to, nil for id or
// unknown keys
func (c *Condition) Attribute() *schema.Attribute {
	if c.key == schema.IDAttribute {
		return nil
	}
	return c.owner.Has(c.key)
}

// IsAssociation reports whether the condition tests an association
func (c *Condition) IsAssociation() bool {
	attr := c.Attribute()
	return attr != nil && attr.IsAssociation()
}

// Value returns the condition's value. Association values are resolved to
// Records: typed instances are used as-is, anything else is a key looked up
// on the target type. When required attribute names are given, a resolved
// instance missing any of them is reloaded once before failing.
func (c *Condition) Value(ctx context.Context, required ...string) (any, error) {
	if !c.IsAssociation() {
		return c.value, nil
	}

	if items, ok := c.value.([]any); ok {
		resolved := make([]any, len(items))
		for i, item := range items {
			rec, err := c.resolve(ctx, item, required)
			if err != nil {
				return nil, err
			}
			resolved[i] = rec
		}
		return resolved, nil
	}
	return c.resolve(ctx, c.value, required)
}

func (c *Condition) resolve(ctx context.Context, value any, required []string) (Record, error) {
	rec, ok := value.(Record)
	if !ok {
		attr := c.Attribute()
		target, err := attr.Target()
		if err != nil {
			return nil, err
		}
		resolver := c.query.resolver
		if resolver == nil {
			return nil, ormerrors.Configurationf("%s.%s: no resolver bound to look up %v",
				c.owner.Name, attr.Name, value)
		}
		rec, err = resolver.Find(ctx, target, IDOf(value))
		if err != nil {
			return nil, err
		}
	}

	if len(required) == 0 {
		return rec, nil
	}
	missing, err := missingAttribute(ctx, rec, required)
	if err != nil || missing == "" {
		return rec, err
	}

	if c.query.resolver == nil {
		return nil, ormerrors.Resolutionf("expected %s to have %s", IDOf(rec), missing)
	}
	reloaded, err := c.query.resolver.Reload(ctx, rec)
	if err != nil {
		return nil, ormerrors.Resolutionf("expected %s to have %s: %v", IDOf(rec), missing, err)
	}
	missing, err = missingAttribute(ctx, reloaded, required)
	if err != nil {
		return nil, err
	}
	if missing != "" {
		return nil, ormerrors.Resolutionf("expected %s to have %s", IDOf(reloaded), missing)
	}
	return reloaded, nil
}

func missingAttribute(ctx context.Context, rec Record, required []string) (string, error) {
	for _, name := range required {
		if name == schema.IDAttribute {
			if rec.ID() == "" {
				return name, nil
			}
			continue
		}
		v, err := rec.Attr(ctx, name)
		if err != nil {
			return "", err
		}
		if v == nil {
			return name, nil
		}
	}
	return "", nil
}

// Matches compares the candidate's attribute with the condition: by operator
// for scalars, by membership for sequences, by id for associations
func (c *Condition) Matches(ctx context.Context, rec Record) (bool, error) {
	name := c.Name()

	var candidate any
	if name == schema.IDAttribute {
		candidate = rec.ID()
	} else {
		v, err := rec.Attr(ctx, name)
		if err != nil {
			return false, err
		}
		candidate = v
	}

	if c.IsAssociation() || name == schema.IDAttribute {
		return matchIDs(candidate, c.value), nil
	}

	if items, ok := c.value.([]any); ok {
		for _, item := range items {
			if compare(candidate, item, OpEqual) {
				return true, nil
			}
		}
		return false, nil
	}
	return compare(candidate, c.value, c.op), nil
}

func matchIDs(candidate, want any) bool {
	have := idSet(candidate)
	if len(have) == 0 {
		return false
	}
	wanted, ok := asSlice(want)
	if !ok {
		wanted = []any{want}
	}
	for _, w := range wanted {
		if _, ok := have[IDOf(w)]; ok {
			return true
		}
	}
	return false
}

func idSet(v any) map[string]struct{} {
	set := make(map[string]struct{})
	items, ok := asSlice(v)
	if !ok {
		items = []any{v}
	}
	for _, item := range items {
		if id := IDOf(item); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// String renders the condition as name OP value
func (c *Condition) String() string {
	if c.op == OpIn {
		return fmt.Sprintf("%s IN %v", c.Name(), describe(c.value))
	}
	return fmt.Sprintf("%s %s %v", c.Name(), c.op, describe(c.value))
}

func describe(v any) any {
	switch val := v.(type) {
	case Record:
		return IDOf(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = describe(item)
		}
		return out
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return val
	}
}
