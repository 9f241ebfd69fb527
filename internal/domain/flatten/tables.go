package flatten

import (
	"strconv"
	"strings"

	"github.com/garyjia/expense-reports/internal/report"
)

// Table names served by the query and export layers
const (
	TableProfileNatures = "profile-natures"
	TableRules          = "rules"
	TableAccounting     = "accounting"
	TableComparison     = "comparison"
)

// TableNames lists the per-document tables in export order
var TableNames = []string{TableProfileNatures, TableRules, TableAccounting}

// Column headers
const (
	ColProfile      = "Profil"
	ColNatureID     = "ID Nature"
	ColNatureName   = "Nom de la nature"
	ColStatus       = "Statut"
	ColRuleKind     = "Type de règle"
	ColNatures      = "Natures concernées"
	ColCapKind      = "Type de plafond"
	ColAmount       = "Montant"
	ColCurrency     = "Devise"
	ColPeriod       = "Période"
	ColChart        = "Plan comptable"
	ColCostsAccount = "Compte de charge"
	ColVatIDs       = "ID de TVA applicables"
	ColGranted      = "Nature accordée"
	ColLimits       = "Limites"
	ColAllowances   = "Indemnités"
)

// ProfileNatureTable converts rows to the profile-natures table. With
// IncludeRuleNatures set, a last column tells granted natures from those
// only reached through rules.
func ProfileNatureTable(rows []ProfileNatureRow, opts Options) report.Table {
	columns := []string{ColProfile, ColNatureID, ColNatureName, ColStatus}
	if opts.IncludeRuleNatures {
		columns = append(columns, ColGranted)
	}
	t := report.NewTable(TableProfileNatures, columns...)
	for _, r := range rows {
		row := []string{r.Profile, strconv.Itoa(r.NatureID), r.NatureName, r.Status}
		if opts.IncludeRuleNatures {
			row = append(row, yesNo(r.Granted))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// RuleTable converts rows to the rules table
func RuleTable(rows []RuleRow) report.Table {
	t := report.NewTable(TableRules, ColProfile, ColRuleKind, ColNatures, ColCapKind, ColAmount, ColCurrency, ColPeriod)
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Profile, string(r.Kind), r.Natures, r.CapKind, r.AmountText(), r.CurrencyText(), r.Period})
	}
	return t
}

// AccountingTable converts rows to the accounting table
func AccountingTable(rows []AccountingRow) report.Table {
	t := report.NewTable(TableAccounting, ColChart, ColNatureID, ColNatureName, ColCostsAccount, ColVatIDs)
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Chart, strconv.Itoa(r.NatureID), r.NatureName, r.CostsAccount, r.VatIDs})
	}
	return t
}

// ComparisonTable converts rows to the comparison table of one nature
func ComparisonTable(rows []ComparisonRow) report.Table {
	t := report.NewTable(TableComparison, ColProfile, ColGranted, ColLimits, ColAllowances)
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Profile, yesNo(r.Granted), strings.Join(r.Limits, "; "), strings.Join(r.Allowances, "; ")})
	}
	return t
}

func yesNo(b bool) string {
	if b {
		return "Oui"
	}
	return "Non"
}
