package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestToWorkbook(t *testing.T) {
	rules := Table{
		Columns: []string{"Profil", "Montant", "Devise"},
		Rows:    [][]string{{"Cadre", "50", "EUR"}, {"Cadre", "N/A", "EUR"}},
	}
	natures := Table{
		Columns: []string{"Profil", "ID Nature"},
		Rows:    [][]string{{"Cadre", "1"}},
	}

	data, err := ToWorkbook([]Sheet{{Name: "Règles", Table: rules}, {Name: "Natures", Table: natures}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Règles", "Natures"}, f.GetSheetList())

	rows, err := f.GetRows("Règles")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Profil", "Montant", "Devise"},
		{"Cadre", "50", "EUR"},
		{"Cadre", "N/A", "EUR"},
	}, rows)

	cellType, err := f.GetCellType("Règles", "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType)

	rows, err = f.GetRows("Natures")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestToWorkbook_EmptyInputs(t *testing.T) {
	data, err := ToWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Feuille"}, f.GetSheetList())

	data, err = ToWorkbook([]Sheet{{Name: "vide", Table: NewTable("vide", "A")}})
	require.NoError(t, err)
	f2, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f2.Close()
	rows, err := f2.GetRows("vide")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A"}, {NoDataNotice}}, rows)
}

func TestSheetNames(t *testing.T) {
	long := strings.Repeat("x", 40)
	names := SheetNames([]Sheet{
		{Name: "Règles"},
		{Name: "règles"},
		{Name: "a/b:c"},
		{Name: ""},
		{Name: long},
		{Name: long},
	})

	assert.Equal(t, "Règles", names[0])
	assert.Equal(t, "règles (2)", names[1])
	assert.Equal(t, "a_b_c", names[2])
	assert.Equal(t, "Feuille", names[3])
	assert.Len(t, names[4], 31)
	assert.Equal(t, strings.Repeat("x", 27)+" (2)", names[5])
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{in: "50", want: float64(50)},
		{in: "12.5", want: 12.5},
		{in: "-3", want: float64(-3)},
		{in: "N/A", want: "N/A"},
		{in: "007", want: "007"},
		{in: "1e3", want: "1e3"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CellValue(tt.in))
		})
	}
}
