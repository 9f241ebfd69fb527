package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-reports/internal/domain/document"
	"github.com/garyjia/expense-reports/internal/domain/flatten"
	"github.com/garyjia/expense-reports/internal/domain/lookup"
)

func parse(t *testing.T, raw string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(raw), document.Options{})
	require.NoError(t, err)
	return doc
}

func TestFindOrphanNatureIDs(t *testing.T) {
	doc := parse(t, `{
		"natures": [{"id": 1, "multilingualName": {"fr-FR": "Repas"}}],
		"profiles": [
			{"id": 10, "idNatures": [1, 42]},
			{"id": 11, "idNatures": [42, 7]}
		]
	}`)
	natures := lookup.BuildNatureLookup(doc)
	rows := flatten.ProfileNatureRows(doc, natures, nil, flatten.Options{})

	assert.Equal(t, []int{7, 42}, FindOrphanNatureIDs(rows, natures))
	assert.Empty(t, FindOrphanNatureIDs(nil, natures))
}

func TestFindOrphanNatureIDs_Scenario(t *testing.T) {
	doc := parse(t, `{
		"natures": [{"id": 1}],
		"profiles": [{"id": 10, "idNatures": [1, 2], "limits": [{"idNatures": [1], "thresholds": [{"amount": 50}]}]}]
	}`)
	natures := lookup.BuildNatureLookup(doc)
	rows := flatten.ProfileNatureRows(doc, natures, nil, flatten.Options{})

	assert.Equal(t, []int{2}, FindOrphanNatureIDs(rows, natures))
	assert.Empty(t, FindRuleOrphanNatureIDs(doc, natures))
	assert.Empty(t, FindDegenerateRules(doc, natures))
}

func TestFindRuleOrphanNatureIDs(t *testing.T) {
	doc := parse(t, `{
		"natures": [{"id": 1}],
		"profiles": [{"limits": [{"idNatures": [1, 9]}], "allowances": [{"idNatures": [3, 9]}]}]
	}`)
	assert.Equal(t, []int{3, 9}, FindRuleOrphanNatureIDs(doc, lookup.BuildNatureLookup(doc)))
}

func TestFindDegenerateRules(t *testing.T) {
	tests := []struct {
		name       string
		thresholds string
		want       []Reason
	}{
		{name: "empty thresholds", thresholds: `[]`, want: []Reason{ReasonMissingAmount}},
		{name: "zero amount", thresholds: `[{"amount": 0}]`, want: []Reason{ReasonZeroAmount}},
		{name: "zero decimal", thresholds: `[{"amount": 0.00}]`, want: []Reason{ReasonZeroAmount}},
		{name: "null amount", thresholds: `[{"amount": null}]`, want: []Reason{ReasonMissingAmount}},
		{name: "positive amount", thresholds: `[{"amount": 15}]`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, `{
				"natures": [{"id": 1, "multilingualName": {"fr-FR": "Repas"}}],
				"profiles": [{"multilingualName": {"fr-FR": "Cadre"}, "limits": [{"idNatures": [1, 5], "thresholds": `+tt.thresholds+`}]}]
			}`)
			warnings := FindDegenerateRules(doc, lookup.BuildNatureLookup(doc))

			var reasons []Reason
			for _, w := range warnings {
				reasons = append(reasons, w.Reason)
				assert.Equal(t, "Cadre", w.ProfileName)
				assert.Equal(t, flatten.RuleLimit, w.RuleKind)
				assert.Equal(t, []string{"Repas", "ID 5"}, w.NatureNames)
			}
			assert.Equal(t, tt.want, reasons)
		})
	}
}

func TestFindDegenerateRules_Allowances(t *testing.T) {
	doc := parse(t, `{
		"natures": [],
		"profiles": [{"multilingualName": {"fr-FR": "P"}, "allowances": [{"thresholds": [{"amount": 0}]}, {"thresholds": [{"amount": 12}]}]}]
	}`)
	warnings := FindDegenerateRules(doc, lookup.BuildNatureLookup(doc))
	require.Len(t, warnings, 1)
	assert.Equal(t, flatten.RuleAllowance, warnings[0].RuleKind)
	assert.Empty(t, warnings[0].NatureNames)
	assert.Equal(t, "Allowance du profil P (aucune nature) : montant nul", warnings[0].String())
}

func TestRun(t *testing.T) {
	doc := parse(t, `{
		"natures": [{"id": 1, "multilingualName": {"fr-FR": "Repas"}}, {"id": 4, "isValid": "yes"}],
		"profiles": [{"multilingualName": {"fr-FR": "Cadre"}, "idNatures": [1, 2], "limits": [{"idNatures": [3], "thresholds": []}]}]
	}`)
	natures := lookup.BuildNatureLookup(doc)
	rows := flatten.ProfileNatureRows(doc, natures, nil, flatten.Options{})

	r := Run(doc, rows, natures)
	assert.Equal(t, []int{2}, r.OrphanNatureIDs)
	assert.Equal(t, []int{3}, r.RuleOrphanNatureIDs)
	require.Len(t, r.DegenerateRules, 1)
	require.Len(t, r.Notes, 1)
	assert.False(t, r.Clean())
	assert.Equal(t, 4, r.Count())

	assert.Equal(t, []string{
		"Natures accordées mais non définies : 2",
		"Natures citées dans des règles mais non définies : 3",
		"Limit du profil Cadre (ID 3) : montant non défini",
		"Champ ignoré ou complété : " + r.Notes[0].String(),
	}, r.Messages())
}

func TestRun_CleanDocument(t *testing.T) {
	doc := parse(t, `{"natures": [], "profiles": []}`)
	r := Run(doc, nil, lookup.BuildNatureLookup(doc))
	assert.True(t, r.Clean())
	assert.Empty(t, r.Messages())
	assert.NotNil(t, r.Notes)
}
