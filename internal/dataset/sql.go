package dataset

import (
	"database/sql"
	"fmt"
)

// FromRows reads every row of a query result into a frame named by the
// result's columns. Byte slices are copied into strings.
func FromRows(rows *sql.Rows) (*Frame, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	f := &Frame{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", len(f.Rows)+1, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		f.Rows = append(f.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return f, nil
}
