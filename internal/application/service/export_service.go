package service

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/domain/flatten"
	"github.com/garyjia/expense-reports/internal/report"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv, pdf and xlsx in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatPDF, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// ExportConfig holds rendering choices
type ExportConfig struct {
	PDF   report.PDFOptions
	Title string
}

// ExportRequest selects a table, a format and optional filters
type ExportRequest struct {
	Table     string
	Format    Format
	Selection Selection
}

// Export is a rendered file
type Export struct {
	Content     []byte
	ContentType string
	FileName    string
	Rows        int
}

// ExportService renders snapshot tables
type ExportService struct {
	cfg    ExportConfig
	logger *zap.Logger
}

// NewExportService creates a new ExportService
func NewExportService(cfg ExportConfig, logger *zap.Logger) *ExportService {
	if cfg.Title == "" {
		cfg.Title = "Rapports de configuration des dépenses"
	}
	return &ExportService{cfg: cfg, logger: logger}
}

var tableTitles = map[string]string{
	flatten.TableProfileNatures: "Rapport Complet - Profils & Natures",
	flatten.TableRules:          "Limites et indemnités par profil",
	flatten.TableAccounting:     "Analyse du plan comptable par nature",
}

func (s *ExportService) title(snap *Snapshot, name string, sel Selection) string {
	if name == flatten.TableComparison {
		if id, err := strconv.Atoi(sel.NatureID); err == nil {
			return "Comparaison des profils pour : " + snap.NatureName(id)
		}
	}
	if t, ok := tableTitles[name]; ok {
		return t
	}
	return s.cfg.Title
}

// FileName builds "rapport_<table>.<ext>"
func FileName(table string, f Format) string {
	return fmt.Sprintf("rapport_%s.%s", strings.ReplaceAll(table, "-", "_"), f)
}

// Export renders one filtered table
func (s *ExportService) Export(snap *Snapshot, req ExportRequest) (*Export, error) {
	if snap == nil {
		return nil, ErrNoDocument
	}
	t, err := snap.Query(req.Table, req.Selection)
	if err != nil {
		return nil, err
	}

	var content []byte
	switch req.Format {
	case FormatCSV:
		content, err = report.ToCSV(t)
	case FormatPDF:
		content, err = report.ToPDF(t, s.title(snap, req.Table, req.Selection), s.pdfOptions(snap))
	case FormatXLSX:
		content, err = report.ToWorkbook([]report.Sheet{{Name: req.Table, Table: t}})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		s.logger.Error("Failed to render export",
			zap.String("table", req.Table),
			zap.String("format", string(req.Format)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to render %s as %s: %w", req.Table, req.Format, err)
	}

	s.logger.Info("Export rendered",
		zap.String("table", req.Table),
		zap.String("format", string(req.Format)),
		zap.Int("rows", t.Len()),
		zap.Int("size", len(content)))

	return &Export{
		Content:     content,
		ContentType: req.Format.ContentType(),
		FileName:    FileName(req.Table, req.Format),
		Rows:        t.Len(),
	}, nil
}

// ExportWorkbook renders every table as a sheet of one workbook
func (s *ExportService) ExportWorkbook(snap *Snapshot) (*Export, error) {
	if snap == nil {
		return nil, ErrNoDocument
	}
	tables := snap.Tables()
	sheets := make([]report.Sheet, 0, len(tables))
	rows := 0
	for _, t := range tables {
		sheets = append(sheets, report.Sheet{Name: t.Name, Table: t})
		rows += t.Len()
	}

	content, err := report.ToWorkbook(sheets)
	if err != nil {
		s.logger.Error("Failed to render workbook", zap.Error(err))
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	s.logger.Info("Workbook rendered", zap.Int("sheets", len(sheets)), zap.Int("size", len(content)))

	return &Export{
		Content:     content,
		ContentType: FormatXLSX.ContentType(),
		FileName:    FileName("complet", FormatXLSX),
		Rows:        rows,
	}, nil
}

// ExportPDFBundle renders every table as successive titled sections
func (s *ExportService) ExportPDFBundle(snap *Snapshot) (*Export, error) {
	if snap == nil {
		return nil, ErrNoDocument
	}
	tables := snap.Tables()
	sections := make([]report.Section, 0, len(tables))
	rows := 0
	for _, t := range tables {
		sections = append(sections, report.Section{Title: s.title(snap, t.Name, Selection{}), Table: t})
		rows += t.Len()
	}

	content, err := report.ToPDFBundle(sections, s.pdfOptions(snap))
	if err != nil {
		s.logger.Error("Failed to render PDF bundle", zap.Error(err))
		return nil, fmt.Errorf("failed to render PDF bundle: %w", err)
	}
	s.logger.Info("PDF bundle rendered", zap.Int("sections", len(sections)), zap.Int("size", len(content)))

	return &Export{
		Content:     content,
		ContentType: FormatPDF.ContentType(),
		FileName:    FileName("complet", FormatPDF),
		Rows:        rows,
	}, nil
}

func (s *ExportService) pdfOptions(snap *Snapshot) report.PDFOptions {
	opts := s.cfg.PDF
	opts.CreationDate = snap.ProcessedAt
	return opts
}
