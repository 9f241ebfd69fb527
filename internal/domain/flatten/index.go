package flatten

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/expense-reports/internal/domain/document"
	"github.com/garyjia/expense-reports/internal/domain/lookup"
)

// ProfileRules holds the rules of one profile that concern one nature.
// Both lists are empty, not nil, when the profile only grants the nature.
type ProfileRules struct {
	Limits     []document.Limit     `json:"limits"`
	Allowances []document.Allowance `json:"allowances"`
}

// ReverseIndex maps nature id -> profile display name -> rules
type ReverseIndex map[int]map[string]ProfileRules

// Lookup returns the entry of a profile for a nature and whether it exists
func (idx ReverseIndex) Lookup(natureID int, profile string) (ProfileRules, bool) {
	rules, ok := idx[natureID][profile]
	return rules, ok
}

// BuildReverseIndex indexes grants, limits and allowances of every profile.
// Profiles sharing a display name share an entry.
func BuildReverseIndex(doc *document.Document) ReverseIndex {
	idx := make(ReverseIndex)
	entry := func(natureID int, profile string) ProfileRules {
		byProfile, ok := idx[natureID]
		if !ok {
			byProfile = make(map[string]ProfileRules)
			idx[natureID] = byProfile
		}
		rules, ok := byProfile[profile]
		if !ok {
			rules = ProfileRules{Limits: []document.Limit{}, Allowances: []document.Allowance{}}
		}
		return rules
	}

	for _, p := range doc.Profiles {
		name := p.DisplayName()
		for _, id := range p.NatureIDs {
			rules := entry(id, name)
			idx[id][name] = rules
		}
		for _, l := range p.Limits {
			for _, id := range unique(l.NatureIDs) {
				rules := entry(id, name)
				rules.Limits = append(rules.Limits, l)
				idx[id][name] = rules
			}
		}
		for _, a := range p.Allowances {
			for _, id := range unique(a.NatureIDs) {
				rules := entry(id, name)
				rules.Allowances = append(rules.Allowances, a)
				idx[id][name] = rules
			}
		}
	}
	return idx
}

func unique(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

// ComparisonRow describes how one profile treats the compared nature
type ComparisonRow struct {
	Profile    string   `json:"profile"`
	Granted    bool     `json:"granted"`
	Limits     []string `json:"limits"`
	Allowances []string `json:"allowances"`
}

// NatureComparisonRows lists, in document order, every profile that grants
// the nature or has a rule on it
func NatureComparisonRows(doc *document.Document, idx ReverseIndex, natureID int) []ComparisonRow {
	rows := make([]ComparisonRow, 0)
	byProfile := idx[natureID]
	if len(byProfile) == 0 {
		return rows
	}

	granted := make(map[string]bool)
	var order []string
	for _, p := range doc.Profiles {
		name := p.DisplayName()
		if _, ok := byProfile[name]; !ok {
			continue
		}
		if _, listed := granted[name]; !listed {
			order = append(order, name)
			granted[name] = false
		}
		for _, id := range p.NatureIDs {
			if id == natureID {
				granted[name] = true
			}
		}
	}

	for _, name := range order {
		rules := byProfile[name]
		row := ComparisonRow{
			Profile:    name,
			Granted:    granted[name],
			Limits:     make([]string, 0, len(rules.Limits)),
			Allowances: make([]string, 0, len(rules.Allowances)),
		}
		for _, l := range rules.Limits {
			row.Limits = append(row.Limits, DescribeLimit(l))
		}
		for _, a := range rules.Allowances {
			row.Allowances = append(row.Allowances, DescribeAllowance(a))
		}
		rows = append(rows, row)
	}
	return rows
}

// DescribeLimit renders a limit as "Absolute: 50 EUR per day"
func DescribeLimit(l document.Limit) string {
	return fmt.Sprintf("%s: %s %s", CapKind(l.Kind), amountWithCurrency(l.Threshold, l.CurrencyCode), PeriodLabel(l.Period))
}

// DescribeAllowance renders an allowance as "Forfait: 30 EUR"
func DescribeAllowance(a document.Allowance) string {
	return fmt.Sprintf("%s: %s", document.AllowanceCapKind, amountWithCurrency(a.Threshold, a.CurrencyCode))
}

func amountWithCurrency(t document.Threshold, currency *string) string {
	amount := document.NotAvailable
	if t.Known() {
		amount = t.Amount.String()
	}
	if currency == nil || *currency == "" {
		return amount
	}
	return amount + " " + *currency
}

// ProfileDetail gathers everything shown for a single profile
type ProfileDetail struct {
	Profile    string             `json:"profile"`
	Natures    []ProfileNatureRow `json:"natures"`
	Limits     []RuleRow          `json:"limits"`
	Allowances []RuleRow          `json:"allowances"`
}

// BuildProfileDetail returns the first profile whose display name is name.
// Empty Limits or Allowances mean the profile defines none.
func BuildProfileDetail(doc *document.Document, natures lookup.NatureLookup, statuses map[int]document.NatureStatus, name string) (ProfileDetail, bool) {
	for _, p := range doc.Profiles {
		if p.DisplayName() != name {
			continue
		}
		detail := ProfileDetail{
			Profile:    name,
			Natures:    make([]ProfileNatureRow, 0, len(p.NatureIDs)),
			Limits:     make([]RuleRow, 0, len(p.Limits)),
			Allowances: make([]RuleRow, 0, len(p.Allowances)),
		}
		for _, id := range p.NatureIDs {
			detail.Natures = append(detail.Natures, natureRow(name, id, true, natures, statuses))
		}
		for _, r := range profileRuleRows(p, natures) {
			if r.Kind == RuleLimit {
				detail.Limits = append(detail.Limits, r)
			} else {
				detail.Allowances = append(detail.Allowances, r)
			}
		}
		return detail, true
	}
	return ProfileDetail{}, false
}
