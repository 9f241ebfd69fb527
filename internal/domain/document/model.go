package document

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultLocale is the locale used to resolve multilingual names
const DefaultLocale = "fr-FR"

// Fallback labels used when the export leaves a field empty
const (
	NotAvailable         = "N/A"
	UnnamedProfileFormat = "Profil sans nom (ID: %d)"
	UnidentifiedProfile  = "Profil non identifié"
	NatureFallbackFormat = "ID %d"
	AllowanceCapKind     = "Forfait"
	AllowancePeriod      = NotAvailable
	PeriodDay            = "Day"
	PeriodNone           = "None"
	PeriodMonth          = "Month"
	PeriodYear           = "Year"
)

// NatureStatus is the derived state of an expense nature
type NatureStatus int

const (
	StatusValid NatureStatus = iota
	StatusDisabled
	StatusInvalid
)

// Label returns the display label used in reports
func (s NatureStatus) Label() string {
	switch s {
	case StatusInvalid:
		return "❌ Invalide"
	case StatusDisabled:
		return "⛔ Désactivée"
	default:
		return "✅ Valide"
	}
}

func (s NatureStatus) String() string {
	switch s {
	case StatusInvalid:
		return "Invalid"
	case StatusDisabled:
		return "Disabled"
	default:
		return "Valid"
	}
}

// MultilingualName maps a locale (e.g. "fr-FR") to a label
type MultilingualName map[string]string

// Resolve returns the label for locale, or the first non-empty label in
// sorted locale order. ok is false when no label exists at all.
func (m MultilingualName) Resolve(locale string) (string, bool) {
	if name := m[locale]; name != "" {
		return name, true
	}
	locales := make([]string, 0, len(m))
	for l := range m {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	for _, l := range locales {
		if m[l] != "" {
			return m[l], true
		}
	}
	return "", false
}

// Nature is an expense category
type Nature struct {
	ID        int
	Names     MultilingualName
	IsValid   bool
	IsEnabled bool

	displayName string
}

// DisplayName never returns an empty string
func (n Nature) DisplayName() string {
	if n.displayName != "" {
		return n.displayName
	}
	return fmt.Sprintf(NatureFallbackFormat, n.ID)
}

// Status applies the precedence Invalid > Disabled > Valid
func (n Nature) Status() NatureStatus {
	if !n.IsValid {
		return StatusInvalid
	}
	if !n.IsEnabled {
		return StatusDisabled
	}
	return StatusValid
}

// Threshold holds the amount of a rule. A nil Amount means unknown, not zero.
type Threshold struct {
	Amount *decimal.Decimal
}

// Known reports whether the amount is present
func (t Threshold) Known() bool {
	return t.Amount != nil
}

// Limit is a capped-amount rule tied to one or more natures
type Limit struct {
	NatureIDs    []int
	Kind         string
	Period       string
	CurrencyCode *string
	Threshold    Threshold
}

// Allowance is a flat-rate rule tied to one or more natures
type Allowance struct {
	NatureIDs    []int
	CurrencyCode *string
	Threshold    Threshold
}

// Profile is a named bundle of granted natures and spending rules
type Profile struct {
	ID         *int
	Names      MultilingualName
	NatureIDs  []int
	Limits     []Limit
	Allowances []Allowance

	displayName string
}

// DisplayName never returns an empty string
func (p Profile) DisplayName() string {
	if p.displayName != "" {
		return p.displayName
	}
	if p.ID != nil {
		return fmt.Sprintf(UnnamedProfileFormat, *p.ID)
	}
	return UnidentifiedProfile
}

// CostsAccount is an account of a chart of accounts
type CostsAccount struct {
	ID           int
	DisplayValue string
}

// NatureAccountMapping links a nature to a costs account and VAT codes
type NatureAccountMapping struct {
	NatureID       int
	CostsAccountID *int
	VatIDs         []int
}

// ChartOfAccounts is a named accounting ledger structure
type ChartOfAccounts struct {
	ID             int
	Name           *string
	CostsAccounts  []CostsAccount
	NatureMappings []NatureAccountMapping
}

// DisplayName returns the chart name or a fallback built from its id
func (c ChartOfAccounts) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return fmt.Sprintf("Plan comptable %d", c.ID)
}

// Note records a field that was defaulted or skipped during a permissive parse
type Note struct {
	Path    string
	Message string
}

func (n Note) String() string {
	return n.Path + ": " + n.Message
}

// Document is the parsed export. It is never mutated after Parse returns.
type Document struct {
	Locale           string
	Profiles         []Profile
	Natures          []Nature
	ChartsOfAccounts []ChartOfAccounts
	Notes            []Note
}

// NewNature builds a nature whose display name is resolved for locale
func NewNature(id int, names MultilingualName, isValid, isEnabled bool, locale string) Nature {
	n := Nature{ID: id, Names: names, IsValid: isValid, IsEnabled: isEnabled}
	if name, ok := names.Resolve(locale); ok {
		n.displayName = name
	}
	return n
}

// NewProfile builds a profile whose display name is resolved for locale
func NewProfile(id *int, names MultilingualName, natureIDs []int, limits []Limit, allowances []Allowance, locale string) Profile {
	p := Profile{ID: id, Names: names, NatureIDs: natureIDs, Limits: limits, Allowances: allowances}
	if p.NatureIDs == nil {
		p.NatureIDs = []int{}
	}
	if p.Limits == nil {
		p.Limits = []Limit{}
	}
	if p.Allowances == nil {
		p.Allowances = []Allowance{}
	}
	if name, ok := names.Resolve(locale); ok {
		p.displayName = name
	}
	return p
}
