package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/graphmap/internal/orm/schema"
)

// Placeholder marks a bound value position in a Filter
const Placeholder = "?"

// FilterTerm is one (name, operator, placeholder) entry, or a nested group
type FilterTerm struct {
	Name        string
	Operator    Operator
	Placeholder string
	Association bool
	Group       *Filter
}

// Filter is a positional-parameter filter expression. Args holds the bound
// values of every term, nested groups included, in placeholder order.
type Filter struct {
	Terms      []FilterTerm
	Args       []any
	Combinator Combinator
}

// Empty reports whether the filter has no terms
func (f *Filter) Empty() bool {
	return f == nil || len(f.Terms) == 0
}

// String renders the filter with ? placeholders
func (f *Filter) String() string {
	if f.Empty() {
		return ""
	}
	parts := make([]string, 0, len(f.Terms))
	for _, term := range f.Terms {
		switch {
		case term.Group != nil:
			parts = append(parts, "("+term.Group.String()+")")
		case term.Operator == OpIn:
			parts = append(parts, fmt.Sprintf("%s IN (%s)", term.Name, term.Placeholder))
		default:
			parts = append(parts, fmt.Sprintf("%s %s %s", term.Name, term.Operator, term.Placeholder))
		}
	}
	return strings.Join(parts, " "+f.Combinator.String()+" ")
}

// ToParameterizedFilter translates the condition tree into a filter with
// ordered bound values. Association values bind the target's id.
func (q *Query) ToParameterizedFilter(ctx context.Context) (*Filter, error) {
	f := &Filter{
		Terms:      make([]FilterTerm, 0),
		Args:       make([]any, 0),
		Combinator: q.combinator,
	}

	for _, clause := range q.Conditions() {
		switch c := clause.(type) {
		case *Query:
			group, err := c.ToParameterizedFilter(ctx)
			if err != nil {
				return nil, err
			}
			if group.Empty() {
				continue
			}
			f.Terms = append(f.Terms, FilterTerm{Group: group})
			f.Args = append(f.Args, group.Args...)

		case *Condition:
			value, err := c.boundValue(ctx)
			if err != nil {
				return nil, err
			}
			f.Terms = append(f.Terms, FilterTerm{
				Name:        c.Name(),
				Operator:    c.op,
				Placeholder: Placeholder,
				Association: c.IsAssociation(),
			})
			f.Args = append(f.Args, value)
		}
	}
	return f, nil
}

// boundValue resolves the condition value for binding: association targets
// become their ids
func (c *Condition) boundValue(ctx context.Context) (any, error) {
	if !c.IsAssociation() {
		return c.value, nil
	}
	value, err := c.Value(ctx, schema.IDAttribute)
	if err != nil {
		return nil, err
	}
	if items, ok := value.([]any); ok {
		ids := make([]any, len(items))
		for i, item := range items {
			ids[i] = IDOf(item)
		}
		return ids, nil
	}
	return IDOf(value), nil
}
