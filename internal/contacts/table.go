// Package contacts holds the parsed recruitment-contact table and the
// dedup and aggregate queries the dashboard is built on.
package contacts

// Row is one contact record. Values are aligned with the owning table's
// columns; rows are shared between derived tables and must not be mutated.
type Row []string

// Table is an ordered, immutable sequence of rows under a fixed header.
// Row order is the CSV row order of the upload it was loaded from.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

func newTable(columns []string, rows []Row) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	if rows == nil {
		rows = []Row{}
	}
	return &Table{columns: columns, index: index, rows: rows}
}

// NewTable builds a table from a header and rows. Rows shorter than the
// header are padded with empty values; longer rows are truncated.
func NewTable(columns []string, rows [][]string) *Table {
	cols := append([]string(nil), columns...)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		row := make(Row, len(cols))
		copy(row, r)
		out = append(out, row)
	}
	return newTable(cols, out)
}

// derive returns a table sharing t's header over a subsequence of rows.
func (t *Table) derive(rows []Row) *Table {
	if rows == nil {
		rows = []Row{}
	}
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

// Columns returns the header in declaration order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// row returns a copy of row i.
func (t *Table) row(i int) Row {
	return append(Row(nil), t.rows[i]...)
}

// Records returns a copy of all rows as plain string slices.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// HasColumn reports whether the header declares name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of name, or a SchemaError.
func (t *Table) ColumnIndex(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, &SchemaError{Missing: []string{name}}
	}
	return i, nil
}

// Value returns the value of column name in row i.
func (t *Table) Value(i int, name string) (string, error) {
	col, err := t.ColumnIndex(name)
	if err != nil {
		return "", err
	}
	return t.rows[i][col], nil
}

// Require checks that every named column is present. The returned
// SchemaError lists all missing columns in the order they were asked for.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}
