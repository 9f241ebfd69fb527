package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/gen2brain/go-fitz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/domain/flatten"
	"github.com/garyjia/expense-reports/internal/report"
)

func processScenario(t *testing.T) *Snapshot {
	t.Helper()
	snap, _, err := newReportService().Process(context.Background(), []byte(scenarioJSON), ProcessOptions{})
	require.NoError(t, err)
	return snap
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"csv", "PDF", " xlsx "} {
		_, err := ParseFormat(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportService_Export(t *testing.T) {
	snap := processScenario(t)
	svc := NewExportService(ExportConfig{PDF: report.DefaultPDFOptions()}, zap.NewNop())

	csvOut, err := svc.Export(snap, ExportRequest{Table: flatten.TableProfileNatures, Format: FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, "rapport_profile_natures.csv", csvOut.FileName)
	assert.Equal(t, "text/csv; charset=utf-8", csvOut.ContentType)
	assert.Equal(t,
		"Profil,ID Nature,Nom de la nature,Statut\nCadre,1,Repas,✅ Valide\nCadre,2,❓ Inconnu,❓\n",
		string(csvOut.Content))

	pdfOut, err := svc.Export(snap, ExportRequest{Table: flatten.TableProfileNatures, Format: FormatPDF})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfOut.ContentType)

	xlsxOut, err := svc.Export(snap, ExportRequest{Table: flatten.TableProfileNatures, Format: FormatXLSX})
	require.NoError(t, err)
	assert.Equal(t, "rapport_profile_natures.xlsx", xlsxOut.FileName)

	_, err = svc.Export(snap, ExportRequest{Table: flatten.TableRules, Format: "doc"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = svc.Export(nil, ExportRequest{Table: flatten.TableRules, Format: FormatCSV})
	assert.ErrorIs(t, err, ErrNoDocument)
}

// The three formats of the same filtered table carry the same rows.
func TestExportService_FormatsAgree(t *testing.T) {
	snap := processScenario(t)
	svc := NewExportService(ExportConfig{}, zap.NewNop())
	req := ExportRequest{Table: flatten.TableRules, Selection: Selection{Search: "cadre"}}

	req.Format = FormatCSV
	csvOut, err := svc.Export(snap, req)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(csvOut.Content)).ReadAll()
	require.NoError(t, err)

	req.Format = FormatXLSX
	xlsxOut, err := svc.Export(snap, req)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(xlsxOut.Content))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(flatten.TableRules)
	require.NoError(t, err)
	assert.Equal(t, records, rows)

	req.Format = FormatPDF
	pdfOut, err := svc.Export(snap, req)
	require.NoError(t, err)
	doc, err := fitz.NewFromMemory(pdfOut.Content)
	require.NoError(t, err)
	defer doc.Close()
	text, err := doc.Text(0)
	require.NoError(t, err)
	for _, record := range records[1:] {
		for _, value := range record {
			assert.Contains(t, text, report.SanitizeText(value))
		}
	}

	assert.Equal(t, csvOut.Rows, xlsxOut.Rows)
	assert.Equal(t, csvOut.Rows, pdfOut.Rows)
}

// A rule covering many natures keeps every name in the PDF, wrapped rather than cut.
func TestExportService_FormatsAgreeOnLongCells(t *testing.T) {
	snap, _, err := newReportService().Process(context.Background(), []byte(`{
		"natures": [
			{"id": 1, "multilingualName": {"fr-FR": "Repas d'affaires"}},
			{"id": 2, "multilingualName": {"fr-FR": "Hôtel"}},
			{"id": 3, "multilingualName": {"fr-FR": "Taxi"}},
			{"id": 4, "multilingualName": {"fr-FR": "Train"}},
			{"id": 5, "multilingualName": {"fr-FR": "Parking"}},
			{"id": 6, "multilingualName": {"fr-FR": "Péage"}},
			{"id": 7, "multilingualName": {"fr-FR": "Carburant"}}
		],
		"profiles": [{
			"id": 10,
			"multilingualName": {"fr-FR": "Cadre"},
			"idNatures": [1, 2, 3, 4, 5, 6, 7],
			"limits": [{
				"idNatures": [1, 2, 3, 4, 5, 6, 7],
				"type": "absolute",
				"period": "Day",
				"currencyCode": "EUR",
				"thresholds": [{"amount": 50}]
			}]
		}]
	}`), ProcessOptions{})
	require.NoError(t, err)
	svc := NewExportService(ExportConfig{}, zap.NewNop())

	csvOut, err := svc.Export(snap, ExportRequest{Table: flatten.TableRules, Format: FormatCSV})
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(csvOut.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	natures := records[1][2]
	require.Equal(t, "Repas d'affaires, Hôtel, Taxi, Train, Parking, Péage, Carburant", natures)

	pdfOut, err := svc.Export(snap, ExportRequest{Table: flatten.TableRules, Format: FormatPDF})
	require.NoError(t, err)
	doc, err := fitz.NewFromMemory(pdfOut.Content)
	require.NoError(t, err)
	defer doc.Close()
	text, err := doc.Text(0)
	require.NoError(t, err)

	assert.NotContains(t, text, "..")
	for _, value := range records[1] {
		for _, word := range strings.Fields(value) {
			assert.Contains(t, text, report.SanitizeText(word))
		}
	}
	for _, name := range []string{"Repas", "Hôtel", "Carburant"} {
		assert.Equal(t, strings.Count(natures, name), strings.Count(text, name), name)
	}
}

func TestExportService_Bundles(t *testing.T) {
	snap := processScenario(t)
	svc := NewExportService(ExportConfig{}, zap.NewNop())

	wb, err := svc.ExportWorkbook(snap)
	require.NoError(t, err)
	assert.Equal(t, "rapport_complet.xlsx", wb.FileName)
	assert.Equal(t, 4, wb.Rows)

	f, err := excelize.OpenReader(bytes.NewReader(wb.Content))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, flatten.TableNames, f.GetSheetList())

	bundle, err := svc.ExportPDFBundle(snap)
	require.NoError(t, err)
	doc, err := fitz.NewFromMemory(bundle.Content)
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 3, doc.NumPage())

	last, err := doc.Text(2)
	require.NoError(t, err)
	assert.True(t, strings.Contains(last, "625100"))
}

func TestExportService_ComparisonTitle(t *testing.T) {
	snap := processScenario(t)
	svc := NewExportService(ExportConfig{}, zap.NewNop())

	out, err := svc.Export(snap, ExportRequest{Table: flatten.TableComparison, Format: FormatPDF, Selection: Selection{NatureID: "1"}})
	require.NoError(t, err)
	assert.Equal(t, "rapport_comparison.pdf", out.FileName)

	doc, err := fitz.NewFromMemory(out.Content)
	require.NoError(t, err)
	defer doc.Close()
	text, err := doc.Text(0)
	require.NoError(t, err)
	assert.Contains(t, text, "Repas")
}
