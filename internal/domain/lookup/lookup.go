// Package lookup derives id->name maps from a parsed document.
package lookup

import "github.com/garyjia/expense-reports/internal/domain/document"

// NatureLookup maps a nature id to its display name
type NatureLookup map[int]string

// Name returns the display name and whether the id is defined
func (l NatureLookup) Name(id int) (string, bool) {
	name, ok := l[id]
	return name, ok
}

// BuildNatureLookup maps each nature id to its display name.
// The first nature wins when an id is declared twice.
func BuildNatureLookup(doc *document.Document) NatureLookup {
	lookup := make(NatureLookup, len(doc.Natures))
	for _, n := range doc.Natures {
		if _, exists := lookup[n.ID]; exists {
			continue
		}
		lookup[n.ID] = n.DisplayName()
	}
	return lookup
}

// BuildNatureStatusLookup maps each nature id to its derived status
func BuildNatureStatusLookup(doc *document.Document) map[int]document.NatureStatus {
	statuses := make(map[int]document.NatureStatus, len(doc.Natures))
	for _, n := range doc.Natures {
		if _, exists := statuses[n.ID]; exists {
			continue
		}
		statuses[n.ID] = n.Status()
	}
	return statuses
}

// BuildCostsAccountLookup maps each costs account id of a chart to its display value
func BuildCostsAccountLookup(chart document.ChartOfAccounts) map[int]string {
	accounts := make(map[int]string, len(chart.CostsAccounts))
	for _, acc := range chart.CostsAccounts {
		if _, exists := accounts[acc.ID]; exists {
			continue
		}
		accounts[acc.ID] = acc.DisplayValue
	}
	return accounts
}

// BuildChartLookups builds one costs account lookup per chart, in chart order.
// Charts may lack an id or share one, so lookups are addressed by position.
func BuildChartLookups(doc *document.Document) []map[int]string {
	charts := make([]map[int]string, len(doc.ChartsOfAccounts))
	for i, chart := range doc.ChartsOfAccounts {
		charts[i] = BuildCostsAccountLookup(chart)
	}
	return charts
}
