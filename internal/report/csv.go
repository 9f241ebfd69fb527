package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// ToCSV writes the header followed by every row, comma-separated, UTF-8
func ToCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if len(t.Columns) > 0 {
		if err := w.Write(t.Columns); err != nil {
			return nil, fmt.Errorf("failed to write CSV header: %w", err)
		}
	}
	for i, row := range t.Rows {
		record := make([]string, len(t.Columns))
		for j := range record {
			record[j] = cell(row, j)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}
