package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/domain/audit"
	"github.com/garyjia/expense-reports/internal/domain/document"
	"github.com/garyjia/expense-reports/internal/domain/flatten"
	"github.com/garyjia/expense-reports/internal/domain/lookup"
	"github.com/garyjia/expense-reports/internal/report"
)

// Stage names a step of the processing pipeline
type Stage string

const (
	StageParse   Stage = "parse"
	StageLookup  Stage = "lookup"
	StageFlatten Stage = "flatten"
	StageAudit   Stage = "audit"
)

var stages = []Stage{StageParse, StageLookup, StageFlatten, StageAudit}

// ProgressFunc is called after each completed stage
type ProgressFunc func(stage Stage, done, total int)

// ReportConfig holds the processing choices
type ReportConfig struct {
	Locale             string
	Strict             bool
	IncludeRuleNatures bool
}

// ProcessOptions tunes a single Process call
type ProcessOptions struct {
	Strict   bool
	Progress ProgressFunc
}

// ReportService turns uploaded documents into snapshots and keeps the
// latest one. Identical bytes processed in the same mode are served from
// the single-slot cache.
type ReportService struct {
	cfg    ReportConfig
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current *Snapshot
}

// NewReportService creates a new ReportService
func NewReportService(cfg ReportConfig, logger *zap.Logger) *ReportService {
	if cfg.Locale == "" {
		cfg.Locale = document.DefaultLocale
	}
	return &ReportService{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// DefaultStrict reports the configured parse mode
func (s *ReportService) DefaultStrict() bool {
	return s.cfg.Strict
}

// Fingerprint returns the hex SHA-256 of raw
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Process parses raw and derives every view. The new snapshot replaces the
// current one only once it is complete; on error the current one is kept.
// cached is true when the current snapshot already matched raw.
func (s *ReportService) Process(ctx context.Context, raw []byte, opts ProcessOptions) (snap *Snapshot, cached bool, err error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false, ErrEmptyDocumentInput
	}

	fingerprint := Fingerprint(raw)
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current != nil && current.Fingerprint == fingerprint && current.Strict == opts.Strict {
		s.logger.Debug("Document unchanged, reusing snapshot",
			zap.String("fingerprint", fingerprint))
		return current, true, nil
	}

	snap, err = s.build(ctx, raw, fingerprint, opts)
	if err != nil {
		s.logger.Warn("Failed to process document",
			zap.String("fingerprint", fingerprint),
			zap.Bool("strict", opts.Strict),
			zap.Error(err))
		return nil, false, err
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	s.logger.Info("Document processed",
		zap.String("fingerprint", fingerprint),
		zap.Int("profiles", len(snap.Document.Profiles)),
		zap.Int("natures", len(snap.Document.Natures)),
		zap.Int("charts", len(snap.Document.ChartsOfAccounts)),
		zap.Int("warnings", snap.Audit.Count()))

	return snap, false, nil
}

func (s *ReportService) build(ctx context.Context, raw []byte, fingerprint string, opts ProcessOptions) (*Snapshot, error) {
	progress := func(stage Stage, done int) error {
		if opts.Progress != nil {
			opts.Progress(stage, done, len(stages))
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("processing interrupted after %s: %w", stage, err)
		}
		return nil
	}

	doc, err := document.Parse(raw, document.Options{Strict: opts.Strict, Locale: s.cfg.Locale})
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if err := progress(StageParse, 1); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Fingerprint: fingerprint,
		Strict:      opts.Strict,
		ProcessedAt: s.now(),
		Document:    doc,
		Natures:     lookup.BuildNatureLookup(doc),
		Statuses:    lookup.BuildNatureStatusLookup(doc),
		Charts:      lookup.BuildChartLookups(doc),
	}
	if err := progress(StageLookup, 2); err != nil {
		return nil, err
	}

	flattenOpts := flatten.Options{IncludeRuleNatures: s.cfg.IncludeRuleNatures}
	snap.ProfileNatures = flatten.ProfileNatureRows(doc, snap.Natures, snap.Statuses, flattenOpts)
	snap.Rules = flatten.RuleRows(doc, snap.Natures)
	snap.Accounting = flatten.AccountingRows(doc, snap.Natures, snap.Charts)
	snap.Index = flatten.BuildReverseIndex(doc)
	snap.tables = map[string]report.Table{
		flatten.TableProfileNatures: flatten.ProfileNatureTable(snap.ProfileNatures, flattenOpts),
		flatten.TableRules:          flatten.RuleTable(snap.Rules),
		flatten.TableAccounting:     flatten.AccountingTable(snap.Accounting),
	}
	if err := progress(StageFlatten, 3); err != nil {
		return nil, err
	}

	snap.Audit = audit.Run(doc, snap.ProfileNatures, snap.Natures)
	if err := progress(StageAudit, 4); err != nil {
		return nil, err
	}

	return snap, nil
}

// Current returns the latest snapshot, if any
func (s *ReportService) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoDocument
	}
	return s.current, nil
}

// Reset drops the current snapshot
func (s *ReportService) Reset() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.logger.Info("Snapshot cleared")
}
