package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Frame is a column-named table handed to the engine by a source.
// Cells hold whatever the source produced: strings from CSV, driver values from SQL.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// ColumnStats describes a single column of a frame.
type ColumnStats struct {
	Name     string
	Distinct int
	Missing  int
}

// Description summarizes the shape and quality of a frame.
type Description struct {
	RowCount    int
	ColumnCount int
	Columns     []ColumnStats
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Index returns the position of a column, or -1 if absent.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the frame carries the named column.
func (f *Frame) Has(name string) bool {
	return f.Index(name) >= 0
}

// Value returns the cell at row i for the named column.
func (f *Frame) Value(i int, name string) any {
	idx := f.Index(name)
	if idx < 0 || idx >= len(f.Rows[i]) {
		return nil
	}
	return f.Rows[i][idx]
}

// WithColumn returns a copy of the frame with the named column set to values.
// An existing column of the same name is replaced.
func (f *Frame) WithColumn(name string, values []any) (*Frame, error) {
	if len(values) != len(f.Rows) {
		return nil, fmt.Errorf("column %s has %d values for %d rows", name, len(values), len(f.Rows))
	}

	idx := f.Index(name)
	cols := append([]string(nil), f.Columns...)
	if idx < 0 {
		cols = append(cols, name)
		idx = len(cols) - 1
	}

	rows := make([][]any, len(f.Rows))
	for i, row := range f.Rows {
		r := make([]any, len(cols))
		copy(r, row)
		r[idx] = values[i]
		rows[i] = r
	}
	return &Frame{Columns: cols, Rows: rows}, nil
}

// Describe counts distinct and missing values per column.
func (f *Frame) Describe() Description {
	d := Description{RowCount: f.Len(), ColumnCount: len(f.Columns)}
	for ci, name := range f.Columns {
		seen := make(map[string]struct{})
		missing := 0
		for _, row := range f.Rows {
			if ci >= len(row) || isMissing(row[ci]) {
				missing++
				continue
			}
			seen[String(row[ci])] = struct{}{}
		}
		d.Columns = append(d.Columns, ColumnStats{Name: name, Distinct: len(seen), Missing: missing})
	}
	sort.SliceStable(d.Columns, func(i, j int) bool { return d.Columns[i].Name < d.Columns[j].Name })
	return d
}

func isMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []byte:
		return len(x) == 0
	}
	return false
}

// String renders a cell as text.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Float coerces a cell to float64.
func Float(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string, []byte:
		s := strings.TrimSpace(String(x))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing %q as number: %w", s, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing numeric value")
	}
	return 0, fmt.Errorf("unsupported numeric value %T", v)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// Time coerces a cell to a UTC timestamp.
func Time(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string, []byte:
		s := strings.TrimSpace(String(x))
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	case nil:
		return time.Time{}, fmt.Errorf("missing date")
	}
	return time.Time{}, fmt.Errorf("unsupported date value %T", v)
}
