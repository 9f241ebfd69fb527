package service

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/garyjia/expense-reports/internal/domain/audit"
	"github.com/garyjia/expense-reports/internal/domain/document"
	"github.com/garyjia/expense-reports/internal/domain/flatten"
	"github.com/garyjia/expense-reports/internal/domain/lookup"
	"github.com/garyjia/expense-reports/internal/query"
	"github.com/garyjia/expense-reports/internal/report"
)

// Snapshot holds every view derived from one uploaded document.
// It is built completely before being published and never changes afterwards.
type Snapshot struct {
	Fingerprint string
	Strict      bool
	ProcessedAt time.Time

	Document       *document.Document
	Natures        lookup.NatureLookup
	Statuses       map[int]document.NatureStatus
	Charts         []map[int]string
	ProfileNatures []flatten.ProfileNatureRow
	Rules          []flatten.RuleRow
	Accounting     []flatten.AccountingRow
	Index          flatten.ReverseIndex
	Audit          audit.Report

	tables map[string]report.Table
}

// Summary is the outcome of processing an upload
type Summary struct {
	Fingerprint       string    `json:"fingerprint"`
	ProcessedAt       time.Time `json:"processed_at"`
	Strict            bool      `json:"strict"`
	Profiles          int       `json:"profiles"`
	Natures           int       `json:"natures"`
	ChartsOfAccounts  int       `json:"charts_of_accounts"`
	ProfileNatureRows int       `json:"profile_nature_rows"`
	RuleRows          int       `json:"rule_rows"`
	AccountingRows    int       `json:"accounting_rows"`
	Warnings          []string  `json:"warnings"`
}

// Selection narrows a table to what a user picked
type Selection struct {
	Search   string
	Profile  string
	NatureID string
}

// Summary reports counts and advisory warnings
func (s *Snapshot) Summary() Summary {
	return Summary{
		Fingerprint:       s.Fingerprint,
		ProcessedAt:       s.ProcessedAt,
		Strict:            s.Strict,
		Profiles:          len(s.Document.Profiles),
		Natures:           len(s.Document.Natures),
		ChartsOfAccounts:  len(s.Document.ChartsOfAccounts),
		ProfileNatureRows: len(s.ProfileNatures),
		RuleRows:          len(s.Rules),
		AccountingRows:    len(s.Accounting),
		Warnings:          s.Audit.Messages(),
	}
}

// Table returns a copy of a per-document table
func (s *Snapshot) Table(name string) (report.Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return report.Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t.Clone(), nil
}

// Tables returns copies of every per-document table in export order
func (s *Snapshot) Tables() []report.Table {
	tables := make([]report.Table, 0, len(flatten.TableNames))
	for _, name := range flatten.TableNames {
		tables = append(tables, s.tables[name].Clone())
	}
	return tables
}

// Query returns the named table narrowed by sel. The comparison table
// needs sel.NatureID.
func (s *Snapshot) Query(name string, sel Selection) (report.Table, error) {
	var (
		t   report.Table
		err error
	)
	if name == flatten.TableComparison {
		id, convErr := strconv.Atoi(sel.NatureID)
		if convErr != nil {
			return report.Table{}, fmt.Errorf("%w: %q", ErrUnknownNature, sel.NatureID)
		}
		t, _, err = s.Comparison(id)
		sel.NatureID = ""
	} else {
		t, err = s.Table(name)
	}
	if err != nil {
		return report.Table{}, err
	}

	if name == flatten.TableRules && sel.NatureID != "" {
		t = s.rulesForNature(t, sel.NatureID)
	}

	f := query.Filter{Search: sel.Search, Profile: sel.Profile, NatureID: sel.NatureID}
	if t.ColumnIndex(flatten.ColProfile) >= 0 {
		f.ProfileCol = flatten.ColProfile
	}
	if t.ColumnIndex(flatten.ColNatureID) >= 0 {
		f.NatureCol = flatten.ColNatureID
	}
	return f.Apply(t), nil
}

// rulesForNature keeps rule rows whose rule covers the given id. Rows of the
// rules table follow s.Rules one to one.
func (s *Snapshot) rulesForNature(t report.Table, natureID string) report.Table {
	id, err := strconv.Atoi(natureID)
	if err != nil {
		return t.WithRows([][]string{})
	}
	rows := make([][]string, 0, len(t.Rows))
	for i, row := range t.Rows {
		if i < len(s.Rules) && slices.Contains(s.Rules[i].NatureIDs, id) {
			rows = append(rows, row)
		}
	}
	return t.WithRows(rows)
}

// Comparison returns how every profile treats a nature
func (s *Snapshot) Comparison(natureID int) (report.Table, []flatten.ComparisonRow, error) {
	_, defined := s.Natures.Name(natureID)
	_, indexed := s.Index[natureID]
	if !defined && !indexed {
		return report.Table{}, nil, fmt.Errorf("%w: %d", ErrUnknownNature, natureID)
	}
	rows := flatten.NatureComparisonRows(s.Document, s.Index, natureID)
	return flatten.ComparisonTable(rows), rows, nil
}

// ProfileDetail returns the natures and rules of a profile
func (s *Snapshot) ProfileDetail(name string) (flatten.ProfileDetail, error) {
	detail, ok := flatten.BuildProfileDetail(s.Document, s.Natures, s.Statuses, name)
	if !ok {
		return flatten.ProfileDetail{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return detail, nil
}

// NatureName resolves a nature id for titles
func (s *Snapshot) NatureName(id int) string {
	if name, ok := s.Natures.Name(id); ok {
		return name
	}
	return fmt.Sprintf(document.NatureFallbackFormat, id)
}
