package query

import (
	"context"
	"fmt"

	"github.com/conduit-lang/graphmap/internal/orm/schema"
)

// Term is a statement position: an IRI, a Variable or a Literal
type Term interface {
	String() string
}

// IRI is a resource identifier
type IRI string

func (i IRI) String() string { return "<" + string(i) + ">" }

// Variable is a query variable, optionally constrained by an operator and value
type Variable struct {
	Name     string
	Operator Operator
	Value    any
	Bound    bool
}

func (v *Variable) String() string { return "?" + v.Name }

// Literal is a plain value in object position
type Literal struct {
	Value any
}

func (l Literal) String() string { return fmt.Sprintf("%q", fmt.Sprint(l.Value)) }

// Statement is one subject/predicate/object triple of a graph pattern
type Statement struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func (s Statement) String() string {
	return fmt.Sprintf("%s %s %s .", s.Subject, s.Predicate, s.Object)
}

// namer hands out variable names unique within one pattern
type namer struct {
	used map[string]int
}

func newNamer() *namer {
	return &namer{used: make(map[string]int)}
}

func (n *namer) next(base string) string {
	n.used[base]++
	if count := n.used[base]; count > 1 {
		return fmt.Sprintf("%s_%d", base, count)
	}
	return base
}

// ToGraphPattern translates the query into ordered statements: the subject's
// type statement first, then one or more statements per condition. The
// subject is the pinned id when an id condition exists, a variable otherwise.
// Nested levels contribute their statements onto the same subject.
func (q *Query) ToGraphPattern(ctx context.Context) ([]Statement, Term, error) {
	n := newNamer()

	var subject Term
	if id := q.ID(); id != "" {
		subject = IRI(id)
	} else {
		subject = &Variable{Name: n.next("s")}
	}

	statements := []Statement{{Subject: subject, Predicate: IRI(schema.RDFType), Object: IRI(q.et.Type())}}
	for _, cond := range q.Flatten() {
		if cond.Name() == schema.IDAttribute {
			continue
		}
		more, err := cond.statements(ctx, subject, n)
		if err != nil {
			return nil, nil, err
		}
		statements = append(statements, more...)
	}
	return statements, subject, nil
}

// Statements returns the condition as statements about subject
func (c *Condition) Statements(ctx context.Context, subject Term) ([]Statement, error) {
	return c.statements(ctx, subject, newNamer())
}

func (c *Condition) statements(ctx context.Context, subject Term, n *namer) ([]Statement, error) {
	attr := c.Attribute()
	if attr == nil {
		return nil, nil
	}
	predicate := IRI(attr.Predicate())

	if !attr.IsAssociation() {
		object := &Variable{Name: n.next(attr.Name), Operator: c.op, Value: c.value, Bound: true}
		return []Statement{{Subject: subject, Predicate: predicate, Object: object}}, nil
	}

	value, err := c.Value(ctx, schema.IDAttribute)
	if err != nil {
		return nil, err
	}
	targets, ok := value.([]any)
	if !ok {
		targets = []any{value}
	}

	statements := make([]Statement, 0, len(targets)*2)
	for _, t := range targets {
		rec := t.(Record)
		object := IRI(rec.ID())
		statements = append(statements,
			Statement{Subject: object, Predicate: IRI(schema.RDFType), Object: IRI(rec.EntityType().Type())},
			Statement{Subject: subject, Predicate: predicate, Object: object},
		)
	}
	return statements, nil
}
