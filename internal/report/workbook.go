package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	maxSheetNameLength = 31
	defaultSheetName   = "Feuille"
	minColumnWidth     = 8
	maxColumnWidth     = 60
)

// Sheet is one named table of a workbook
type Sheet struct {
	Name  string
	Table Table
}

// ToWorkbook writes one sheet per table, in order
func ToWorkbook(sheets []Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if len(sheets) == 0 {
		sheets = []Sheet{{Name: defaultSheetName, Table: Table{}}}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E6E6E6"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	names := SheetNames(sheets)
	first := f.GetSheetName(0)
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(first, names[i]); err != nil {
				return nil, fmt.Errorf("failed to rename sheet %s: %w", names[i], err)
			}
		} else if _, err := f.NewSheet(names[i]); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", names[i], err)
		}
		if err := writeSheet(f, names[i], s.Table, headerStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, t Table, headerStyle int) error {
	if len(t.Columns) == 0 {
		return f.SetCellValue(sheet, "A1", NoDataNotice)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of sheet %s: %w", sheet, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.Columns))
	if err != nil {
		return fmt.Errorf("failed to resolve last column: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header of sheet %s: %w", sheet, err)
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(t.Columns))
		for i := range values {
			values[i] = CellValue(cell(row, i))
		}
		addr, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row %d: %w", r+2, err)
		}
		if err := f.SetSheetRow(sheet, addr, &values); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %s: %w", r+2, sheet, err)
		}
	}
	if len(t.Rows) == 0 {
		if err := f.SetCellValue(sheet, "A2", NoDataNotice); err != nil {
			return fmt.Errorf("failed to write notice of sheet %s: %w", sheet, err)
		}
	}

	for i, width := range contentWidths(t) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column %d: %w", i+1, err)
		}
		w := float64(min(max(width+2, minColumnWidth), maxColumnWidth))
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// CellValue returns a float64 for cells holding a canonical decimal number
// so spreadsheet formulas work on them. Anything else stays text.
func CellValue(s string) interface{} {
	d, err := decimal.NewFromString(s)
	if err != nil || d.String() != s {
		return s
	}
	f, _ := d.Float64()
	return f
}

// SheetNames returns valid, unique sheet names for sheets, in order
func SheetNames(sheets []Sheet) []string {
	names := make([]string, len(sheets))
	seen := make(map[string]bool, len(sheets))
	for i, s := range sheets {
		base := sanitizeSheetName(s.Name)
		name := base
		for n := 2; seen[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			name = truncateRunes(base, maxSheetNameLength-utf8.RuneCountInString(suffix)) + suffix
		}
		seen[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func sanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" {
		name = defaultSheetName
	}
	return truncateRunes(name, maxSheetNameLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
