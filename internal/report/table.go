// Package report renders flattened tables as CSV, PDF and XLSX documents.
package report

import "unicode/utf8"

// NoDataNotice replaces the body of a table that has no rows
const NoDataNotice = "Aucune donnée"

// Table is a named, ordered sequence of rows sharing the same columns.
// Renderers treat it as read-only.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// NewTable creates an empty table with the given columns
func NewTable(name string, columns ...string) Table {
	return Table{Name: name, Columns: columns, Rows: [][]string{}}
}

// Len returns the number of data rows
func (t Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether there is nothing to render besides the header
func (t Table) Empty() bool {
	return len(t.Columns) == 0 || len(t.Rows) == 0
}

// ColumnIndex returns the position of a column, or -1
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy
func (t Table) Clone() Table {
	c := Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = append([]string(nil), row...)
	}
	return c
}

// WithRows returns a table with the same name and columns holding rows
func (t Table) WithRows(rows [][]string) Table {
	return Table{Name: t.Name, Columns: t.Columns, Rows: rows}
}

// contentWidths returns max(header length, longest cell) per column, in runes
func contentWidths(t Table) []int {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = utf8.RuneCountInString(c)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := utf8.RuneCountInString(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		if widths[i] < 1 {
			widths[i] = 1
		}
	}
	return widths
}

// cell returns row[i], or "" for short rows
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
