// Package flatten projects a parsed document into tabular rows and a
// nature to profile reverse index. Every function is a pure read of the
// document.
package flatten

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-reports/internal/domain/document"
	"github.com/garyjia/expense-reports/internal/domain/lookup"
)

// Sentinels rendered in place of values that failed to resolve
const (
	UnknownNatureName = "❓ Inconnu"
	UnknownStatus     = "❓"
	AccountNotFound   = "Non trouvé"
	NoVatIDs          = "Aucun"
)

// RuleKind tells limits and allowances apart in the rules table
type RuleKind string

const (
	RuleLimit     RuleKind = "Limit"
	RuleAllowance RuleKind = "Allowance"
)

var periodLabels = map[string]string{
	document.PeriodDay:   "per day",
	document.PeriodNone:  "per expense",
	document.PeriodMonth: "per month",
	document.PeriodYear:  "per year",
}

// PeriodLabel translates a limit period, passing unknown values through
func PeriodLabel(period string) string {
	if label, ok := periodLabels[period]; ok {
		return label
	}
	return period
}

// CapKind upper-cases the first letter of a limit kind and lower-cases the rest.
// The "N/A" default is returned as is.
func CapKind(kind string) string {
	if kind == "" || kind == document.NotAvailable {
		return document.NotAvailable
	}
	r, size := utf8.DecodeRuneInString(kind)
	return string(unicode.ToUpper(r)) + strings.ToLower(kind[size:])
}

// Options selects between the variants of the profile-nature table
type Options struct {
	// IncludeRuleNatures appends natures that only appear in a profile's
	// rules after its granted ones.
	IncludeRuleNatures bool
}

// ProfileNatureRow is one (profile, nature) pair
type ProfileNatureRow struct {
	Profile    string `json:"profile"`
	NatureID   int    `json:"nature_id"`
	NatureName string `json:"nature_name"`
	Status     string `json:"status"`
	Known      bool   `json:"known"`
	Granted    bool   `json:"granted"`
}

// ProfileNatureRows emits one row per granted nature id, in source order.
// Ids missing from natures get the unknown sentinels.
func ProfileNatureRows(doc *document.Document, natures lookup.NatureLookup, statuses map[int]document.NatureStatus, opts Options) []ProfileNatureRow {
	rows := make([]ProfileNatureRow, 0)
	for _, p := range doc.Profiles {
		name := p.DisplayName()
		for _, id := range p.NatureIDs {
			rows = append(rows, natureRow(name, id, true, natures, statuses))
		}
		if !opts.IncludeRuleNatures {
			continue
		}
		seen := make(map[int]bool, len(p.NatureIDs))
		for _, id := range p.NatureIDs {
			seen[id] = true
		}
		for _, id := range ruleNatureIDs(p) {
			if seen[id] {
				continue
			}
			seen[id] = true
			rows = append(rows, natureRow(name, id, false, natures, statuses))
		}
	}
	return rows
}

func natureRow(profile string, id int, granted bool, natures lookup.NatureLookup, statuses map[int]document.NatureStatus) ProfileNatureRow {
	row := ProfileNatureRow{
		Profile:    profile,
		NatureID:   id,
		NatureName: UnknownNatureName,
		Status:     UnknownStatus,
		Granted:    granted,
	}
	if name, ok := natures.Name(id); ok {
		row.NatureName = name
		row.Known = true
		if status, ok := statuses[id]; ok {
			row.Status = status.Label()
		}
	}
	return row
}

// ruleNatureIDs lists nature ids of limits then allowances, in order
func ruleNatureIDs(p document.Profile) []int {
	var ids []int
	for _, l := range p.Limits {
		ids = append(ids, l.NatureIDs...)
	}
	for _, a := range p.Allowances {
		ids = append(ids, a.NatureIDs...)
	}
	return ids
}

// RuleRow is one limit or allowance of a profile
type RuleRow struct {
	Profile   string           `json:"profile"`
	Kind      RuleKind         `json:"kind"`
	Natures   string           `json:"natures"`
	NatureIDs []int            `json:"nature_ids"`
	CapKind   string           `json:"cap_kind"`
	Amount    *decimal.Decimal `json:"amount"`
	Currency  *string          `json:"currency"`
	Period    string           `json:"period"`
}

// AmountText renders the amount, or "N/A" when it is unknown
func (r RuleRow) AmountText() string {
	if r.Amount == nil {
		return document.NotAvailable
	}
	return r.Amount.String()
}

// CurrencyText renders the currency, or "" when absent
func (r RuleRow) CurrencyText() string {
	if r.Currency == nil {
		return ""
	}
	return *r.Currency
}

// RuleRows emits the limits then the allowances of every profile, in order
func RuleRows(doc *document.Document, natures lookup.NatureLookup) []RuleRow {
	rows := make([]RuleRow, 0)
	for _, p := range doc.Profiles {
		rows = append(rows, profileRuleRows(p, natures)...)
	}
	return rows
}

func profileRuleRows(p document.Profile, natures lookup.NatureLookup) []RuleRow {
	name := p.DisplayName()
	rows := make([]RuleRow, 0, len(p.Limits)+len(p.Allowances))
	for _, l := range p.Limits {
		rows = append(rows, RuleRow{
			Profile:   name,
			Kind:      RuleLimit,
			Natures:   KnownNames(l.NatureIDs, natures),
			NatureIDs: l.NatureIDs,
			CapKind:   CapKind(l.Kind),
			Amount:    l.Threshold.Amount,
			Currency:  l.CurrencyCode,
			Period:    PeriodLabel(l.Period),
		})
	}
	for _, a := range p.Allowances {
		rows = append(rows, RuleRow{
			Profile:   name,
			Kind:      RuleAllowance,
			Natures:   KnownNames(a.NatureIDs, natures),
			NatureIDs: a.NatureIDs,
			CapKind:   document.AllowanceCapKind,
			Amount:    a.Threshold.Amount,
			Currency:  a.CurrencyCode,
			Period:    document.AllowancePeriod,
		})
	}
	return rows
}

// KnownNames joins the names of ids present in natures with ", ".
// Unknown ids are left out.
func KnownNames(ids []int, natures lookup.NatureLookup) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := natures.Name(id); ok {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// AccountingRow is one nature to costs account mapping of a chart
type AccountingRow struct {
	ChartID      int    `json:"chart_id"`
	Chart        string `json:"chart"`
	NatureID     int    `json:"nature_id"`
	NatureName   string `json:"nature_name"`
	CostsAccount string `json:"costs_account"`
	VatIDs       string `json:"vat_ids"`
}

// AccountingRows emits one row per mapping, charts and mappings in source order.
// charts[i] holds the costs accounts of the i-th chart.
func AccountingRows(doc *document.Document, natures lookup.NatureLookup, charts []map[int]string) []AccountingRow {
	rows := make([]AccountingRow, 0)
	for i, chart := range doc.ChartsOfAccounts {
		var accounts map[int]string
		if i < len(charts) {
			accounts = charts[i]
		}
		for _, m := range chart.NatureMappings {
			row := AccountingRow{
				ChartID:      chart.ID,
				Chart:        chart.DisplayName(),
				NatureID:     m.NatureID,
				NatureName:   UnknownNatureName,
				CostsAccount: AccountNotFound,
				VatIDs:       NoVatIDs,
			}
			if name, ok := natures.Name(m.NatureID); ok {
				row.NatureName = name
			}
			if m.CostsAccountID != nil {
				if value, ok := accounts[*m.CostsAccountID]; ok {
					row.CostsAccount = value
				}
			}
			if len(m.VatIDs) > 0 {
				row.VatIDs = joinInts(m.VatIDs)
			}
			rows = append(rows, row)
		}
	}
	return rows
}
