package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXGrids returns one grid per sheet. Rows carry raw cell values so long
// numeric codes survive; Display carries the formatted values.
func XLSXGrids(content []byte) ([]Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	out := []Grid{}
	for _, sheet := range f.GetSheetList() {
		raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			continue
		}
		display, err := f.GetRows(sheet)
		if err != nil {
			display = raw
		}
		if len(raw) == 0 {
			continue
		}
		out = append(out, Grid{Name: sheet, Rows: raw, Display: display})
	}
	return out, nil
}

// XLSXText renders every sheet as tab separated lines under a sheet marker.
func XLSXText(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "[Sheet: %s]\n", sheet)
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				if c = strings.TrimSpace(c); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				b.WriteString(strings.Join(cells, "\t"))
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}

func IsSpreadsheet(name, contentType string) bool {
	lower := strings.ToLower(name)
	ct := strings.ToLower(contentType)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm") || strings.HasSuffix(lower, ".xls") ||
		strings.Contains(ct, "spreadsheetml") || strings.Contains(ct, "ms-excel")
}
