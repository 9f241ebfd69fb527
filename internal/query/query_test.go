package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/expense-reports/internal/report"
)

func sample() report.Table {
	return report.Table{
		Name:    "profile-natures",
		Columns: []string{"Profil", "ID Nature", "Nom de la nature"},
		Rows: [][]string{
			{"Cadre", "1", "Repas"},
			{"Cadre", "2", "Hôtel"},
			{"Employé", "1", "Repas"},
		},
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "empty query keeps all", query: "  ", want: 3},
		{name: "case insensitive", query: "repas", want: 2},
		{name: "terms are ANDed", query: "cadre repas", want: 1},
		{name: "term across columns", query: "HÔTEL 2", want: 1},
		{name: "no match", query: "taxi", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Search(sample(), tt.query)
			assert.Equal(t, tt.want, got.Len())
			assert.Equal(t, sample().Columns, got.Columns)
			assert.Equal(t, "profile-natures", got.Name)
		})
	}
}

func TestSearch_DoesNotMutateInput(t *testing.T) {
	in := sample()
	out := Search(in, "cadre")
	out.Rows[0][0] = "changed"
	assert.Equal(t, sample(), in)
}

func TestFilterEquals(t *testing.T) {
	assert.Equal(t, 2, FilterEquals(sample(), "Profil", "Cadre").Len())
	assert.Equal(t, 2, FilterEquals(sample(), "ID Nature", "1").Len())
	assert.Equal(t, 0, FilterEquals(sample(), "Profil", "cadre").Len())
	assert.Equal(t, 3, FilterEquals(sample(), "Inconnue", "x").Len())
	assert.Equal(t, 3, FilterEquals(sample(), "Profil", "").Len())
}

func TestFilter_Apply(t *testing.T) {
	f := Filter{Profile: "Cadre", ProfileCol: "Profil", NatureID: "1", NatureCol: "ID Nature", Search: "repas"}
	got := f.Apply(sample())
	assert.Equal(t, [][]string{{"Cadre", "1", "Repas"}}, got.Rows)

	assert.Equal(t, 3, Filter{}.Apply(sample()).Len())
}
