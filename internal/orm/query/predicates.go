// Package query builds and evaluates condition trees over entity types.
// Conditions come from a structured key/value map or from a small template
// grammar, and translate into a parameterized filter or a graph pattern for
// adapters.
package query

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"
)

// Operator represents a comparison operator
type Operator int

const (
	OpEqual Operator = iota
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
)

// String returns the string representation of the operator
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	default:
		return "UNKNOWN"
	}
}

// ParseOperator converts a comparison token to an Operator
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "=":
		return OpEqual, nil
	case ">":
		return OpGreaterThan, nil
	case ">=":
		return OpGreaterThanOrEqual, nil
	case "<":
		return OpLessThan, nil
	case "<=":
		return OpLessThanOrEqual, nil
	case "IN":
		return OpIn, nil
	default:
		return 0, fmt.Errorf("unsupported operator: %s", s)
	}
}

// Combinator joins the clauses of one query level
type Combinator int

const (
	And Combinator = iota
	Or
)

// String returns the string representation of the combinator
func (c Combinator) String() string {
	if c == Or {
		return "OR"
	}
	return "AND"
}

// compare applies op to a candidate value and a literal. Values that both
// convert to numbers compare numerically, everything else as strings.
func compare(candidate, literal any, op Operator) bool {
	if candidate == nil || literal == nil {
		return op == OpEqual && candidate == nil && literal == nil
	}

	if a, aok := toNumber(candidate); aok {
		if b, bok := toNumber(literal); bok {
			switch op {
			case OpEqual, OpIn:
				return a == b
			case OpGreaterThan:
				return a > b
			case OpGreaterThanOrEqual:
				return a >= b
			case OpLessThan:
				return a < b
			case OpLessThanOrEqual:
				return a <= b
			}
			return false
		}
	}

	a, b := cast.ToString(candidate), cast.ToString(literal)
	switch op {
	case OpEqual, OpIn:
		return a == b
	case OpGreaterThan:
		return a > b
	case OpGreaterThanOrEqual:
		return a >= b
	case OpLessThan:
		return a < b
	case OpLessThanOrEqual:
		return a <= b
	}
	return false
}

func toNumber(v any) (float64, bool) {
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// asSlice returns the elements of any slice or array value, except byte
// slices. ok is false for non-sequence values.
func asSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
