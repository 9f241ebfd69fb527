package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

const (
	portrait  = "P"
	landscape = "L"

	// DefaultLandscapeThreshold is the column count above which pages turn landscape
	DefaultLandscapeThreshold = 7

	// maxColumnWeight caps the share a single long column takes, in runes;
	// longer cells wrap
	maxColumnWeight = 40
)

// PDFOptions controls page layout
type PDFOptions struct {
	LandscapeThreshold int
	PageSize           string
	FontFamily         string
	FontSize           float64
	TitleSize          float64
	RowHeight          float64
	Margin             float64
	// CreationDate is stamped in the document info when set, so identical
	// inputs produce identical bytes.
	CreationDate time.Time
}

// DefaultPDFOptions returns A4 pages with 8pt Helvetica cells
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		LandscapeThreshold: DefaultLandscapeThreshold,
		PageSize:           "A4",
		FontFamily:         "Helvetica",
		FontSize:           8,
		TitleSize:          12,
		RowHeight:          6,
		Margin:             10,
	}
}

func (o PDFOptions) withDefaults() PDFOptions {
	d := DefaultPDFOptions()
	if o.LandscapeThreshold <= 0 {
		o.LandscapeThreshold = d.LandscapeThreshold
	}
	if o.PageSize == "" {
		o.PageSize = d.PageSize
	}
	if o.FontFamily == "" {
		o.FontFamily = d.FontFamily
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.TitleSize <= 0 {
		o.TitleSize = d.TitleSize
	}
	if o.RowHeight <= 0 {
		o.RowHeight = d.RowHeight
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	return o
}

// Section is one titled table of a PDF bundle
type Section struct {
	Title string
	Table Table
}

// Orientation returns "L" when columns exceeds threshold, otherwise "P"
func Orientation(columns, threshold int) string {
	if columns > threshold {
		return landscape
	}
	return portrait
}

// ColumnWidths shares usable between columns in proportion to their content
// width, each column weighing at most maxColumnWeight runes
func ColumnWidths(t Table, usable float64) []float64 {
	weights := contentWidths(t)
	total := 0
	for i, w := range weights {
		if w > maxColumnWeight {
			weights[i] = maxColumnWeight
		}
		total += weights[i]
	}
	widths := make([]float64, len(weights))
	if total == 0 {
		return widths
	}
	for i, w := range weights {
		widths[i] = usable * float64(w) / float64(total)
	}
	return widths
}

// SanitizeText replaces every rune Windows-1252 cannot encode with '?'
// and flattens line breaks so a cell stays on one line.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\n', '\r', '\t':
			b.WriteByte(' ')
			continue
		}
		if _, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// ToPDF renders a single table under title
func ToPDF(t Table, title string, opts PDFOptions) ([]byte, error) {
	return ToPDFBundle([]Section{{Title: title, Table: t}}, opts)
}

// ToPDFBundle renders each section on its own pages, in order
func ToPDFBundle(sections []Section, opts PDFOptions) ([]byte, error) {
	opts = opts.withDefaults()

	pdf := fpdf.New(portrait, "mm", opts.PageSize, "")
	pdf.SetMargins(opts.Margin, opts.Margin, opts.Margin)
	pdf.SetAutoPageBreak(false, opts.Margin)
	pdf.SetCreator("reportctl", true)
	if !opts.CreationDate.IsZero() {
		pdf.SetCreationDate(opts.CreationDate)
		pdf.SetModificationDate(opts.CreationDate)
	}
	if len(sections) > 0 {
		pdf.SetTitle(sections[0].Title, true)
	}

	w := &pdfWriter{
		pdf:  pdf,
		opts: opts,
		tr:   pdf.UnicodeTranslatorFromDescriptor(""),
		size: pdf.GetPageSizeStr(opts.PageSize),
	}

	if len(sections) == 0 {
		w.addPage(portrait)
		w.notice()
	}
	for _, s := range sections {
		w.section(s)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf  *fpdf.Fpdf
	opts PDFOptions
	tr   func(string) string
	size fpdf.SizeType
}

func (w *pdfWriter) text(s string) string {
	return w.tr(SanitizeText(s))
}

func (w *pdfWriter) addPage(orientation string) {
	w.pdf.AddPageFormat(orientation, w.size)
}

func (w *pdfWriter) section(s Section) {
	t := s.Table
	orientation := Orientation(len(t.Columns), w.opts.LandscapeThreshold)
	w.addPage(orientation)

	if s.Title != "" {
		w.pdf.SetFont(w.opts.FontFamily, "B", w.opts.TitleSize)
		w.pdf.CellFormat(0, w.opts.TitleSize*0.6, w.text(s.Title), "", 1, "C", false, 0, "")
		w.pdf.Ln(4)
	}

	if len(t.Columns) == 0 {
		w.notice()
		return
	}

	pageW, pageH := w.pdf.GetPageSize()
	left, _, right, bottom := w.pdf.GetMargins()
	widths := ColumnWidths(t, pageW-left-right)

	w.header(t.Columns, widths)
	if len(t.Rows) == 0 {
		w.notice()
		return
	}

	w.pdf.SetFont(w.opts.FontFamily, "", w.opts.FontSize)
	for _, row := range t.Rows {
		cells := make([]string, len(widths))
		for i := range widths {
			cells[i] = cell(row, i)
		}
		lines, height := w.layout(cells, widths)
		if w.pdf.GetY()+height > pageH-bottom {
			w.addPage(orientation)
			w.header(t.Columns, widths)
			w.pdf.SetFont(w.opts.FontFamily, "", w.opts.FontSize)
		}
		w.row(lines, widths, height, "L", false)
	}
}

func (w *pdfWriter) header(columns []string, widths []float64) {
	w.pdf.SetFont(w.opts.FontFamily, "B", w.opts.FontSize)
	w.pdf.SetFillColor(230, 230, 230)
	lines, height := w.layout(columns, widths)
	w.row(lines, widths, height, "C", true)
}

func (w *pdfWriter) notice() {
	w.pdf.SetFont(w.opts.FontFamily, "I", w.opts.FontSize)
	w.pdf.CellFormat(0, w.opts.RowHeight, w.text(NoDataNotice), "", 1, "L", false, 0, "")
}

// lineHeight is the height of one wrapped line in a cell
func (w *pdfWriter) lineHeight() float64 {
	return w.opts.FontSize * 0.5
}

// layout wraps every cell to its column with the current font and returns
// the lines and the height of the tallest cell
func (w *pdfWriter) layout(cells []string, widths []float64) ([][]string, float64) {
	margin := w.pdf.GetCellMargin()
	lines := make([][]string, len(cells))
	most := 1
	for i, c := range cells {
		lines[i] = wrapText(SanitizeText(c), widths[i]-2*margin, func(s string) float64 {
			return w.pdf.GetStringWidth(w.tr(s))
		})
		if len(lines[i]) > most {
			most = len(lines[i])
		}
	}
	height := float64(most)*w.lineHeight() + 2
	if height < w.opts.RowHeight {
		height = w.opts.RowHeight
	}
	return lines, height
}

// row draws one bordered row of wrapped cells, each vertically centered
func (w *pdfWriter) row(lines [][]string, widths []float64, height float64, align string, fill bool) {
	left, _, _, _ := w.pdf.GetMargins()
	y := w.pdf.GetY()
	x := left
	style := "D"
	if fill {
		style = "FD"
	}
	lh := w.lineHeight()
	for i, width := range widths {
		w.pdf.Rect(x, y, width, height, style)
		top := y + (height-float64(len(lines[i]))*lh)/2
		for k, line := range lines[i] {
			w.pdf.SetXY(x, top+float64(k)*lh)
			w.pdf.CellFormat(width, lh, w.tr(line), "", 0, align, false, 0, "")
		}
		x += width
	}
	w.pdf.SetXY(left, y+height)
}

// wrapText splits s at spaces into lines no wider than limit, as measured by
// width. Words longer than a line are split between runes. The result
// always holds at least one line.
func wrapText(s string, limit float64, width func(string) float64) []string {
	var lines []string
	line := ""
	for _, word := range strings.Split(s, " ") {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if width(candidate) <= limit {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		line = word
		for width(line) > limit && utf8.RuneCountInString(line) > 1 {
			runes := []rune(line)
			n := len(runes) - 1
			for n > 1 && width(string(runes[:n])) > limit {
				n--
			}
			lines = append(lines, string(runes[:n]))
			line = string(runes[n:])
		}
	}
	return append(lines, line)
}
