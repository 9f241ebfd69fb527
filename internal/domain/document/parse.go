package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Options controls how Parse treats fields of the wrong type
type Options struct {
	// Strict fails on the first nested type mismatch instead of defaulting
	Strict bool
	// Locale selects the multilingual name to display (default fr-FR)
	Locale string
}

// Parse turns a raw JSON export into a Document.
//
// The top level must be an object holding "profiles" and "natures" lists.
// Nested fields are defaulted when missing or null. In strict mode a nested
// field of the wrong type is reported as a *ValidationError carrying its path;
// otherwise the field is defaulted and a Note is recorded on the Document.
func Parse(raw []byte, opts Options) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrMalformedJSON)
	}

	obj, ok := root.(map[string]interface{})
	if !ok {
		return nil, ErrNotAnObject
	}
	profiles, ok := obj["profiles"].([]interface{})
	if !ok {
		return nil, ErrMissingProfiles
	}
	natures, ok := obj["natures"].([]interface{})
	if !ok {
		return nil, ErrMissingNatures
	}

	locale := opts.Locale
	if locale == "" {
		locale = DefaultLocale
	}
	p := &parser{strict: opts.Strict, locale: locale}

	doc := &Document{Locale: locale}
	doc.Natures = p.natures(natures)
	doc.Profiles = p.profiles(profiles)
	doc.ChartsOfAccounts = p.charts(p.list(obj, "chartsOfAccounts", ""))

	if p.err != nil {
		return nil, p.err
	}
	doc.Notes = p.notes
	return doc, nil
}

// parser walks the decoded JSON in document order. Only the first
// violation is kept so strict mode reports the earliest offending path.
type parser struct {
	strict bool
	locale string
	err    *ValidationError
	notes  []Note
}

func (p *parser) mismatch(path, reason string) {
	if p.strict {
		if p.err == nil {
			p.err = &ValidationError{Path: path, Reason: reason}
		}
		return
	}
	p.notes = append(p.notes, Note{Path: path, Message: reason})
}

func (p *parser) note(path, message string) {
	if !p.strict {
		p.notes = append(p.notes, Note{Path: path, Message: message})
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func (p *parser) object(v interface{}, path string) (map[string]interface{}, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		p.mismatch(path, "expected an object")
	}
	return obj, ok
}

func (p *parser) list(obj map[string]interface{}, key, path string) []interface{} {
	v, present := obj[key]
	if !present || v == nil {
		return nil
	}
	l, ok := v.([]interface{})
	if !ok {
		p.mismatch(join(path, key), "expected a list")
		return nil
	}
	return l
}

func (p *parser) str(obj map[string]interface{}, key, path string) *string {
	v, present := obj[key]
	if !present || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		p.mismatch(join(path, key), "expected a string")
		return nil
	}
	return &s
}

func (p *parser) strOr(obj map[string]interface{}, key, path, fallback string) string {
	if s := p.str(obj, key, path); s != nil && *s != "" {
		return *s
	}
	return fallback
}

func (p *parser) boolean(obj map[string]interface{}, key, path string, fallback bool) bool {
	v, present := obj[key]
	if !present || v == nil {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		p.mismatch(join(path, key), "expected a boolean")
		return fallback
	}
	return b
}

func toInt(v interface{}) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return int(i), true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// integer returns (value, present). A value of the wrong type counts as absent.
func (p *parser) integer(obj map[string]interface{}, key, path string) (int, bool) {
	v, present := obj[key]
	if !present || v == nil {
		return 0, false
	}
	i, ok := toInt(v)
	if !ok {
		p.mismatch(join(path, key), "expected an integer")
		return 0, false
	}
	return i, true
}

func (p *parser) requiredInt(obj map[string]interface{}, key, path string) (int, bool) {
	if v, present := obj[key]; !present || v == nil {
		p.mismatch(join(path, key), "required integer is missing")
		return 0, false
	}
	return p.integer(obj, key, path)
}

func (p *parser) intList(obj map[string]interface{}, key, path string) []int {
	raw := p.list(obj, key, path)
	ids := make([]int, 0, len(raw))
	for i, v := range raw {
		id, ok := toInt(v)
		if !ok {
			p.mismatch(index(join(path, key), i), "expected an integer")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (p *parser) names(obj map[string]interface{}, key, path string) MultilingualName {
	v, present := obj[key]
	if !present || v == nil {
		return MultilingualName{}
	}
	raw, ok := p.object(v, join(path, key))
	if !ok {
		return MultilingualName{}
	}
	locales := make([]string, 0, len(raw))
	for locale := range raw {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	names := make(MultilingualName, len(raw))
	for _, locale := range locales {
		s, ok := raw[locale].(string)
		if !ok {
			p.mismatch(join(join(path, key), locale), "expected a string")
			continue
		}
		names[locale] = s
	}
	return names
}

func (p *parser) amount(obj map[string]interface{}, key, path string) *decimal.Decimal {
	v, present := obj[key]
	if !present || v == nil {
		return nil
	}
	switch x := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			p.mismatch(join(path, key), "expected a number")
			return nil
		}
		return &d
	case string:
		if p.strict {
			p.mismatch(join(path, key), "expected a number")
			return nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			p.note(join(path, key), "amount is not numeric, treated as unknown")
			return nil
		}
		p.note(join(path, key), "amount given as a string")
		return &d
	default:
		p.mismatch(join(path, key), "expected a number")
		return nil
	}
}

func (p *parser) threshold(obj map[string]interface{}, path string) Threshold {
	raw := p.list(obj, "thresholds", path)
	if len(raw) == 0 {
		return Threshold{}
	}
	tpath := join(path, "thresholds")
	if len(raw) > 1 {
		p.mismatch(tpath, fmt.Sprintf("expected at most one threshold, got %d", len(raw)))
	}
	t, ok := p.object(raw[0], index(tpath, 0))
	if !ok {
		return Threshold{}
	}
	return Threshold{Amount: p.amount(t, "amount", index(tpath, 0))}
}

func (p *parser) natures(raw []interface{}) []Nature {
	natures := make([]Nature, 0, len(raw))
	seen := make(map[int]bool, len(raw))
	for i, v := range raw {
		path := index("natures", i)
		obj, ok := p.object(v, path)
		if !ok {
			continue
		}
		id, ok := p.requiredInt(obj, "id", path)
		if !ok {
			p.note(path, "nature skipped: no usable id")
			continue
		}
		if seen[id] {
			p.mismatch(join(path, "id"), fmt.Sprintf("duplicate nature id %d", id))
		}
		seen[id] = true
		natures = append(natures, NewNature(
			id,
			p.names(obj, "multilingualName", path),
			p.boolean(obj, "isValid", path, true),
			p.boolean(obj, "isEnabled", path, true),
			p.locale,
		))
	}
	return natures
}

func (p *parser) limit(obj map[string]interface{}, path string) Limit {
	return Limit{
		NatureIDs:    p.intList(obj, "idNatures", path),
		Kind:         p.strOr(obj, "type", path, NotAvailable),
		Period:       p.strOr(obj, "period", path, NotAvailable),
		CurrencyCode: p.str(obj, "currencyCode", path),
		Threshold:    p.threshold(obj, path),
	}
}

func (p *parser) allowance(obj map[string]interface{}, path string) Allowance {
	return Allowance{
		NatureIDs:    p.intList(obj, "idNatures", path),
		CurrencyCode: p.str(obj, "currencyCode", path),
		Threshold:    p.threshold(obj, path),
	}
}

func (p *parser) profiles(raw []interface{}) []Profile {
	profiles := make([]Profile, 0, len(raw))
	for i, v := range raw {
		path := index("profiles", i)
		obj, ok := p.object(v, path)
		if !ok {
			continue
		}

		var id *int
		if n, ok := p.integer(obj, "id", path); ok {
			id = &n
		}

		var limits []Limit
		for j, lv := range p.list(obj, "limits", path) {
			lpath := index(join(path, "limits"), j)
			if lobj, ok := p.object(lv, lpath); ok {
				limits = append(limits, p.limit(lobj, lpath))
			}
		}

		var allowances []Allowance
		for j, av := range p.list(obj, "allowances", path) {
			apath := index(join(path, "allowances"), j)
			if aobj, ok := p.object(av, apath); ok {
				allowances = append(allowances, p.allowance(aobj, apath))
			}
		}

		profiles = append(profiles, NewProfile(
			id,
			p.names(obj, "multilingualName", path),
			p.intList(obj, "idNatures", path),
			limits,
			allowances,
			p.locale,
		))
	}
	return profiles
}

func (p *parser) costsAccount(obj map[string]interface{}, path string) (CostsAccount, bool) {
	id, ok := p.requiredInt(obj, "id", path)
	if !ok {
		p.note(path, "costs account skipped: no usable id")
		return CostsAccount{}, false
	}
	display := NotAvailable
	if formats := p.list(obj, "format", path); len(formats) > 0 {
		fpath := index(join(path, "format"), 0)
		if f, ok := p.object(formats[0], fpath); ok {
			display = p.strOr(f, "value", fpath, NotAvailable)
		}
	}
	return CostsAccount{ID: id, DisplayValue: display}, true
}

func (p *parser) mapping(obj map[string]interface{}, path string) (NatureAccountMapping, bool) {
	natureID, ok := p.requiredInt(obj, "idNature", path)
	if !ok {
		p.note(path, "mapping skipped: no usable nature id")
		return NatureAccountMapping{}, false
	}
	m := NatureAccountMapping{NatureID: natureID, VatIDs: []int{}}
	if id, ok := p.integer(obj, "idCostsAccount", path); ok {
		m.CostsAccountID = &id
	}
	if v, present := obj["vatOptions"]; present && v != nil {
		vpath := join(path, "vatOptions")
		if vat, ok := p.object(v, vpath); ok {
			m.VatIDs = p.intList(vat, "idCountryVats", vpath)
		}
	}
	return m, true
}

func (p *parser) charts(raw []interface{}) []ChartOfAccounts {
	charts := make([]ChartOfAccounts, 0, len(raw))
	for i, v := range raw {
		path := index("chartsOfAccounts", i)
		obj, ok := p.object(v, path)
		if !ok {
			continue
		}
		id, ok := p.integer(obj, "id", path)
		if !ok {
			p.note(join(path, "id"), "chart id missing, defaulted to 0")
		}
		chart := ChartOfAccounts{
			ID:             id,
			Name:           p.str(obj, "name", path),
			CostsAccounts:  []CostsAccount{},
			NatureMappings: []NatureAccountMapping{},
		}
		for j, av := range p.list(obj, "costsAccounts", path) {
			apath := index(join(path, "costsAccounts"), j)
			if aobj, ok := p.object(av, apath); ok {
				if acc, ok := p.costsAccount(aobj, apath); ok {
					chart.CostsAccounts = append(chart.CostsAccounts, acc)
				}
			}
		}
		for j, mv := range p.list(obj, "natureAccountMappings", path) {
			mpath := index(join(path, "natureAccountMappings"), j)
			if mobj, ok := p.object(mv, mpath); ok {
				if m, ok := p.mapping(mobj, mpath); ok {
					chart.NatureMappings = append(chart.NatureMappings, m)
				}
			}
		}
		charts = append(charts, chart)
	}
	return charts
}
