package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, name, cell))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadVolunteers(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		{"Nombre", "Apellido Paterno", "Apellido Materno", "CURP", "Estudios", "Fecha de Pago"},
		{"Fernanda", "Garcia", "Gomez", "GAGF900101MDFRRN09", "BE-2026-01", "2026-01-15"},
		{"", "", "", "", "", ""},
		{"Juan", "Perez", "", "", "", ""},
	})

	rows, err := ReadVolunteers(buf, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Fernanda", rows[0].FirstName)
	assert.Equal(t, "Garcia", rows[0].Paternal)
	assert.Equal(t, "GAGF900101MDFRRN09", rows[0].CURP)
	assert.Equal(t, "BE-2026-01", rows[0].Studies)
	assert.Equal(t, "2026-01-15", rows[0].PaymentDate)

	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "Juan", rows[1].FirstName)
	assert.Empty(t, rows[1].Maternal)
}

func TestReadVolunteersEnglishHeaders(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		{"first_name", "last_name_paternal", "sex", "birth_date"},
		{"Ana", "Lopez", "F", "1990-05-20"},
	})

	rows, err := ReadVolunteers(buf, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "F", rows[0].Sex)
	assert.Equal(t, "1990-05-20", rows[0].BirthDate)
}

func TestReadVolunteersRowLimit(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		{"Nombre", "Apellido Paterno"},
		{"Ana", "Lopez"},
		{"Luis", "Diaz"},
	})

	_, err := ReadVolunteers(buf, 1)
	assert.ErrorContains(t, err, "limit is 1")
}

func TestReadVolunteersUnknownHeader(t *testing.T) {
	buf := buildWorkbook(t, [][]string{
		{"foo", "bar"},
		{"x", "y"},
	})

	_, err := ReadVolunteers(buf, 0)
	assert.ErrorContains(t, err, "no recognised columns")
}
