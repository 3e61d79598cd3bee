package query

import (
	"regexp"
	"strings"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/spf13/cast"
)

// Template grammar, tried in this order at the head of the remaining text:
//
//	(                     open a nested query
//	)                     close the current level
//	name IN (?)           membership, consumes one bound sequence
//	AND | OR              set the combinator of the current level
//	name OP literal       OP is = > < >= <=, literal is "quoted" or a number
var (
	inPattern         = regexp.MustCompile(`^([^\s()]+)\s+IN\s*\(\s*\?\s*\)`)
	combinatorPattern = regexp.MustCompile(`^(AND|OR)\b`)
	comparePattern    = regexp.MustCompile(`^([^\s()=<>]+)\s*(>=|<=|=|>|<)\s*(?:"([^"]*)"|(-?\d+(?:\.\d+)?))`)
)

// parserState is the scan position shared by every level of a parse: the
// unconsumed template text and the unconsumed bound values. Each step takes
// a state and returns the advanced one.
type parserState struct {
	rest string
	args []any
}

func (s parserState) skipSpace() parserState {
	s.rest = strings.TrimLeft(s.rest, " \t\r\n")
	return s
}

func (q *Query) parseTemplate(template string, args []any) error {
	p := &templateParser{template: template}
	st, err := p.parseLevel(q, parserState{rest: template, args: args}, 0)
	if err != nil {
		return err
	}
	if len(st.args) > 0 {
		return p.fail(st, "unused bound values")
	}
	return nil
}

type templateParser struct {
	template string
}

func (p *templateParser) fail(st parserState, reason string) error {
	return &ormerrors.ParseError{Template: p.template, Fragment: st.rest, Reason: reason}
}

// parseLevel consumes clauses into q until the end of input or the ')'
// closing this level, and returns the state after it
func (p *templateParser) parseLevel(q *Query, st parserState, depth int) (parserState, error) {
	for {
		st = st.skipSpace()
		if st.rest == "" {
			if depth > 0 {
				return st, p.fail(st, "missing closing parenthesis")
			}
			return st, nil
		}

		switch st.rest[0] {
		case '(':
			sub := q.child()
			next, err := p.parseLevel(sub, parserState{rest: st.rest[1:], args: st.args}, depth+1)
			if err != nil {
				return next, err
			}
			q.clauses = append(q.clauses, sub)
			st = next
			continue
		case ')':
			if depth == 0 {
				return st, p.fail(st, "unexpected closing parenthesis")
			}
			return parserState{rest: st.rest[1:], args: st.args}, nil
		}

		var err error
		switch {
		case inPattern.MatchString(st.rest):
			st, err = p.readMembership(q, st)
		case combinatorPattern.MatchString(st.rest):
			st = p.readCombinator(q, st)
		case comparePattern.MatchString(st.rest):
			st, err = p.readComparison(q, st)
		default:
			err = p.fail(st, "no matching expression")
		}
		if err != nil {
			return st, err
		}
	}
}

func (p *templateParser) readMembership(q *Query, st parserState) (parserState, error) {
	m := inPattern.FindStringSubmatch(st.rest)
	if len(st.args) == 0 {
		return st, p.fail(st, "missing bound value for "+m[1])
	}
	value := st.args[0]
	if _, ok := asSlice(value); !ok {
		return st, p.fail(st, "IN requires a sequence value for "+m[1])
	}
	if err := q.Where(m[1], OpIn, value); err != nil {
		return st, err
	}
	return parserState{rest: st.rest[len(m[0]):], args: st.args[1:]}, nil
}

func (p *templateParser) readCombinator(q *Query, st parserState) parserState {
	m := combinatorPattern.FindStringSubmatch(st.rest)
	if m[1] == "OR" {
		q.combinator = Or
	} else {
		q.combinator = And
	}
	st.rest = st.rest[len(m[0]):]
	return st
}

func (p *templateParser) readComparison(q *Query, st parserState) (parserState, error) {
	m := comparePattern.FindStringSubmatchIndex(st.rest)
	name := st.rest[m[2]:m[3]]
	op, err := ParseOperator(st.rest[m[4]:m[5]])
	if err != nil {
		return st, p.fail(st, err.Error())
	}

	var value any
	if m[6] >= 0 {
		value = st.rest[m[6]:m[7]]
	} else {
		value = cast.ToFloat64(st.rest[m[8]:m[9]])
	}

	if err := q.Where(name, op, value); err != nil {
		return st, err
	}
	st.rest = st.rest[m[1]:]
	return st, nil
}
