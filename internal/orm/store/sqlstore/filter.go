package sqlstore

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
)

// renderFilter renders a parameterized filter as a WHERE expression,
// numbering placeholders from *counter
func (s *Store) renderFilter(t *tableMap, f *query.Filter, counter *int) (string, []any, error) {
	if f.Empty() {
		return "", nil, nil
	}

	parts := make([]string, 0, len(f.Terms))
	args := make([]any, 0, len(f.Args))
	next := 0

	for _, term := range f.Terms {
		if term.Group != nil {
			sql, groupArgs, err := s.renderFilter(t, term.Group, counter)
			if err != nil {
				return "", nil, err
			}
			next += len(term.Group.Args)
			if sql != "" {
				parts = append(parts, "("+sql+")")
				args = append(args, groupArgs...)
			}
			continue
		}

		c, ok := t.byAttr[term.Name]
		if !ok {
			return "", nil, ormerrors.Configurationf("attribute %s has no column in %s", term.Name, t.name)
		}
		value := f.Args[next]
		next++

		if term.Operator == query.OpIn {
			values, _ := value.([]any)
			if len(values) == 0 {
				// IN with empty list always returns false
				parts = append(parts, "1 = 0")
				continue
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				args = append(args, columnValue(c, v))
				placeholders[i] = s.dialect.placeholder(*counter)
				*counter++
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", c.column, strings.Join(placeholders, ", ")))
			continue
		}

		args = append(args, columnValue(c, value))
		parts = append(parts, fmt.Sprintf("%s %s %s", c.column, term.Operator, s.dialect.placeholder(*counter)))
		*counter++
	}

	connector := " AND "
	if f.Combinator == query.Or {
		connector = " OR "
	}
	return strings.Join(parts, connector), args, nil
}
