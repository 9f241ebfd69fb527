// Package audit scans a document and its flattened views for referential
// gaps and degenerate rules. Findings are advisory and never fail.
package audit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/garyjia/expense-reports/internal/domain/document"
	"github.com/garyjia/expense-reports/internal/domain/flatten"
	"github.com/garyjia/expense-reports/internal/domain/lookup"
)

// Reason explains why a rule is degenerate
type Reason string

const (
	ReasonMissingAmount Reason = "missing amount"
	ReasonZeroAmount    Reason = "zero amount"
)

// Label returns the French wording used in messages
func (r Reason) Label() string {
	switch r {
	case ReasonZeroAmount:
		return "montant nul"
	default:
		return "montant non défini"
	}
}

// Warning flags a rule whose amount is unknown or zero
type Warning struct {
	ProfileName string           `json:"profile_name"`
	RuleKind    flatten.RuleKind `json:"rule_kind"`
	NatureNames []string         `json:"nature_names"`
	Reason      Reason           `json:"reason"`
}

func (w Warning) String() string {
	natures := "aucune nature"
	if len(w.NatureNames) > 0 {
		natures = strings.Join(w.NatureNames, ", ")
	}
	return fmt.Sprintf("%s du profil %s (%s) : %s", w.RuleKind, w.ProfileName, natures, w.Reason.Label())
}

// FindOrphanNatureIDs returns the sorted nature ids present in rows but not in natures
func FindOrphanNatureIDs(rows []flatten.ProfileNatureRow, natures lookup.NatureLookup) []int {
	set := make(map[int]bool)
	for _, r := range rows {
		if _, ok := natures.Name(r.NatureID); !ok {
			set[r.NatureID] = true
		}
	}
	return sortedKeys(set)
}

// FindRuleOrphanNatureIDs returns the sorted nature ids referenced by a
// limit or allowance but not defined in natures
func FindRuleOrphanNatureIDs(doc *document.Document, natures lookup.NatureLookup) []int {
	set := make(map[int]bool)
	add := func(ids []int) {
		for _, id := range ids {
			if _, ok := natures.Name(id); !ok {
				set[id] = true
			}
		}
	}
	for _, p := range doc.Profiles {
		for _, l := range p.Limits {
			add(l.NatureIDs)
		}
		for _, a := range p.Allowances {
			add(a.NatureIDs)
		}
	}
	return sortedKeys(set)
}

// FindDegenerateRules emits one warning per limit or allowance whose amount
// is unknown or exactly zero, in document order
func FindDegenerateRules(doc *document.Document, natures lookup.NatureLookup) []Warning {
	warnings := make([]Warning, 0)
	for _, p := range doc.Profiles {
		name := p.DisplayName()
		for _, l := range p.Limits {
			if reason, bad := degenerate(l.Threshold); bad {
				warnings = append(warnings, Warning{ProfileName: name, RuleKind: flatten.RuleLimit, NatureNames: natureNames(l.NatureIDs, natures), Reason: reason})
			}
		}
		for _, a := range p.Allowances {
			if reason, bad := degenerate(a.Threshold); bad {
				warnings = append(warnings, Warning{ProfileName: name, RuleKind: flatten.RuleAllowance, NatureNames: natureNames(a.NatureIDs, natures), Reason: reason})
			}
		}
	}
	return warnings
}

func degenerate(t document.Threshold) (Reason, bool) {
	if !t.Known() {
		return ReasonMissingAmount, true
	}
	if t.Amount.IsZero() {
		return ReasonZeroAmount, true
	}
	return "", false
}

// natureNames resolves every id, falling back to "ID n" for unknown ones
func natureNames(ids []int, natures lookup.NatureLookup) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := natures.Name(id)
		if !ok {
			name = fmt.Sprintf(document.NatureFallbackFormat, id)
		}
		names = append(names, name)
	}
	return names
}

func sortedKeys(set map[int]bool) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Report aggregates every finding of a document
type Report struct {
	OrphanNatureIDs     []int           `json:"orphan_nature_ids"`
	RuleOrphanNatureIDs []int           `json:"rule_orphan_nature_ids"`
	DegenerateRules     []Warning       `json:"degenerate_rules"`
	Notes               []document.Note `json:"notes"`
}

// Run performs every scan
func Run(doc *document.Document, rows []flatten.ProfileNatureRow, natures lookup.NatureLookup) Report {
	notes := doc.Notes
	if notes == nil {
		notes = []document.Note{}
	}
	return Report{
		OrphanNatureIDs:     FindOrphanNatureIDs(rows, natures),
		RuleOrphanNatureIDs: FindRuleOrphanNatureIDs(doc, natures),
		DegenerateRules:     FindDegenerateRules(doc, natures),
		Notes:               notes,
	}
}

// Clean reports whether there is nothing to warn about
func (r Report) Clean() bool {
	return r.Count() == 0
}

// Count returns the number of individual findings
func (r Report) Count() int {
	return len(r.OrphanNatureIDs) + len(r.RuleOrphanNatureIDs) + len(r.DegenerateRules) + len(r.Notes)
}

// Messages renders findings as advisory lines: orphans first, then rules,
// then parse notes
func (r Report) Messages() []string {
	msgs := make([]string, 0, r.Count())
	if len(r.OrphanNatureIDs) > 0 {
		msgs = append(msgs, "Natures accordées mais non définies : "+joinIDs(r.OrphanNatureIDs))
	}
	if len(r.RuleOrphanNatureIDs) > 0 {
		msgs = append(msgs, "Natures citées dans des règles mais non définies : "+joinIDs(r.RuleOrphanNatureIDs))
	}
	for _, w := range r.DegenerateRules {
		msgs = append(msgs, w.String())
	}
	for _, n := range r.Notes {
		msgs = append(msgs, "Champ ignoré ou complété : "+n.String())
	}
	return msgs
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
