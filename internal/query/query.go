// Package query holds the read-only filters the presentation layer applies
// to flattened tables.
package query

import (
	"strings"

	"github.com/garyjia/expense-reports/internal/report"
)

// Search keeps rows whose joined text contains every whitespace-separated
// term of q, ignoring case. An empty q keeps every row.
func Search(t report.Table, q string) report.Table {
	terms := strings.Fields(strings.ToLower(q))
	if len(terms) == 0 {
		return t.WithRows(copyRows(t.Rows))
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		text := strings.ToLower(strings.Join(row, " "))
		if matchesAll(text, terms) {
			rows = append(rows, append([]string(nil), row...))
		}
	}
	return t.WithRows(rows)
}

func matchesAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// FilterEquals keeps rows whose column equals value exactly. An unknown
// column or an empty value keeps every row.
func FilterEquals(t report.Table, column, value string) report.Table {
	i := t.ColumnIndex(column)
	if i < 0 || value == "" {
		return t.WithRows(copyRows(t.Rows))
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if i < len(row) && row[i] == value {
			rows = append(rows, append([]string(nil), row...))
		}
	}
	return t.WithRows(rows)
}

// Filter bundles the selections offered to a user
type Filter struct {
	Search     string
	Profile    string
	NatureID   string
	ProfileCol string
	NatureCol  string
}

// Apply narrows t by profile, nature then search
func (f Filter) Apply(t report.Table) report.Table {
	if f.ProfileCol != "" {
		t = FilterEquals(t, f.ProfileCol, f.Profile)
	}
	if f.NatureCol != "" {
		t = FilterEquals(t, f.NatureCol, f.NatureID)
	}
	return Search(t, f.Search)
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
