package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"pricecase/internal"
	"pricecase/internal/util"
)

const reportSheet = "Price Discrepancies"

// ReportHeaders is the fixed column order of the discrepancy report.
var ReportHeaders = []string{
	"Unit (Store)",
	"EAN Code",
	"Document Creation Date",
	"Delivery Date",
	"Order Creation Date",
	"Supplier Price",
	"Internal (Own) Price",
	"Supplier Name",
	"Supplier Invoice Number",
	"Email Sender Address",
	"Email Link / Stable Reference",
	"Comments",
}

// WriteReport writes rows to a single-sheet workbook at outputPath.
func WriteReport(rows []internal.CaseRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, h := range ReportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(reportSheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(ReportHeaders), 1)
	if err := f.SetCellStyle(reportSheet, "A1", last, bold); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ReportHeaders))
	_ = f.SetColWidth(reportSheet, "A", lastCol, 20)

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(reportSheet, cell, value)
		}

		set(1, row.Store)
		set(2, row.EAN)
		set(3, util.FormatDate(row.DocumentDate))
		set(4, util.FormatDate(row.DeliveryDate))
		set(5, util.FormatDate(row.OrderDate))
		set(6, derefFloat(row.SupplierPrice))
		set(7, derefFloat(row.InternalPrice))
		set(8, util.DerefString(row.SupplierName))
		set(9, util.DerefString(row.InvoiceNumber))
		set(10, row.Sender)
		set(11, row.EmailRef)
		set(12, row.Comments)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// ReportFileName names the report after the run's date range.
func ReportFileName(from, to time.Time) string {
	a, b := from.Format("2006-01-02"), to.Format("2006-01-02")
	if a == b {
		return fmt.Sprintf("Price_Discrepancies_%s.xlsx", a)
	}
	return fmt.Sprintf("Price_Discrepancies_%s_to_%s.xlsx", a, b)
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
