package sqlstore

import (
	"database/sql"

	"github.com/conduit-lang/graphmap/internal/orm/store"
)

// scanRows scans every row into a column-keyed map
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(map[string]any)
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// toAttributes renames columns back to attribute names. Columns the table
// does not map are dropped.
func (t *tableMap) toAttributes(row map[string]any) store.Attributes {
	attrs := make(store.Attributes, len(row))
	for _, c := range t.columns {
		if v, ok := row[c.column]; ok {
			attrs[c.attribute] = v
		}
	}
	return attrs
}
