package sparqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/spf13/cast"
)

const (
	xsdInteger = "http://www.w3.org/2001/XMLSchema#integer"
	xsdInt     = "http://www.w3.org/2001/XMLSchema#int"
	xsdLong    = "http://www.w3.org/2001/XMLSchema#long"
	xsdDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	xsdDouble  = "http://www.w3.org/2001/XMLSchema#double"
	xsdFloat   = "http://www.w3.org/2001/XMLSchema#float"
)

// renderTerm formats a statement position in SPARQL syntax
func renderTerm(t query.Term) string {
	switch term := t.(type) {
	case query.IRI:
		return "<" + string(term) + ">"
	case *query.Variable:
		return "?" + term.Name
	case query.Literal:
		return renderLiteral(term.Value)
	default:
		return t.String()
	}
}

// renderLiteral formats a value: numbers and booleans bare, everything
// else as a quoted string
func renderLiteral(v any) string {
	switch val := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToString(val)
	case float32, float64:
		return strconv.FormatFloat(cast.ToFloat64(val), 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case query.Record:
		return "<" + val.ID() + ">"
	default:
		return quoteString(cast.ToString(val))
	}
}

// quoteString renders a double-quoted SPARQL string literal. Only the
// grammar's ECHAR escapes are used; other control characters become \uXXXX.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func renderTriple(st query.Statement) string {
	return fmt.Sprintf("%s %s %s .", renderTerm(st.Subject), renderTerm(st.Predicate), renderTerm(st.Object))
}

// renderFilter turns a bound variable into a FILTER expression
func renderFilter(v *query.Variable) string {
	if v.Operator == query.OpIn {
		items, _ := v.Value.([]any)
		values := make([]string, len(items))
		for i, item := range items {
			values[i] = renderLiteral(item)
		}
		return fmt.Sprintf("FILTER(?%s IN (%s))", v.Name, strings.Join(values, ", "))
	}
	return fmt.Sprintf("FILTER(?%s %s %s)", v.Name, v.Operator, renderLiteral(v.Value))
}

// binding is one cell of a SPARQL JSON result row
type binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// resultSet is the application/sparql-results+json document
type resultSet struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]binding `json:"bindings"`
	} `json:"results"`
}

// value converts a binding to a Go value by its datatype
func (b binding) value() any {
	if b.Type != "literal" && b.Type != "typed-literal" {
		return b.Value
	}
	switch b.Datatype {
	case xsdInteger, xsdInt, xsdLong:
		if n, err := cast.ToInt64E(b.Value); err == nil {
			return n
		}
	case xsdDecimal, xsdDouble, xsdFloat:
		if f, err := cast.ToFloat64E(b.Value); err == nil {
			return f
		}
	}
	return b.Value
}
