// Package spreadsheet reads volunteer import workbooks.
package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/crc-dev/volreg-api/internal/models"
)

// Column headers recognised on the first row, case-insensitive.
// Spanish aliases match the spreadsheets the site staff keep.
var headerAliases = map[string]string{
	"first_name":         "first_name",
	"nombre":             "first_name",
	"middle_name":        "middle_name",
	"segundo nombre":     "middle_name",
	"last_name_paternal": "paternal",
	"apellido paterno":   "paternal",
	"last_name_maternal": "maternal",
	"apellido materno":   "maternal",
	"curp":               "curp",
	"code":               "code",
	"codigo":             "code",
	"birth_date":         "birth_date",
	"fecha de nacimiento": "birth_date",
	"sex":                "sex",
	"sexo":               "sex",
	"phone":              "phone",
	"telefono":           "phone",
	"studies":            "studies",
	"estudios":           "studies",
	"payment_date":       "payment_date",
	"fecha de pago":      "payment_date",
}

// ReadVolunteers parses the first sheet of an xlsx workbook into
// import rows. The first row must be a header; Line numbers in the
// result are 1-based workbook rows so error reports match what the
// uploader sees.
func ReadVolunteers(r io.Reader, maxRows int) ([]models.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	columns := map[int]string{}
	for i, cell := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(cell))
		if field, ok := headerAliases[key]; ok {
			columns[i] = field
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no recognised columns in header row")
	}

	if maxRows > 0 && len(rows)-1 > maxRows {
		return nil, fmt.Errorf("workbook has %d data rows, limit is %d", len(rows)-1, maxRows)
	}

	out := make([]models.ImportRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		row := models.ImportRow{Line: i + 2}
		empty := true
		for j, cell := range cells {
			field, ok := columns[j]
			if !ok {
				continue
			}
			value := strings.TrimSpace(cell)
			if value != "" {
				empty = false
			}
			switch field {
			case "first_name":
				row.FirstName = value
			case "middle_name":
				row.MiddleName = value
			case "paternal":
				row.Paternal = value
			case "maternal":
				row.Maternal = value
			case "curp":
				row.CURP = value
			case "code":
				row.Code = value
			case "birth_date":
				row.BirthDate = value
			case "sex":
				row.Sex = value
			case "phone":
				row.Phone = value
			case "studies":
				row.Studies = value
			case "payment_date":
				row.PaymentDate = value
			}
		}
		if empty {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
