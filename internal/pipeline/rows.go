package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"

	"pricecase/internal"
	"pricecase/internal/util"
)

const (
	placeholderEAN = "UNKNOWN"
	defaultStore   = "UNKNOWN"
)

// GenerateCaseRows emits one row per identifier of rec, or a single row
// with an empty identifier when rec has none.
func GenerateCaseRows(rec internal.MergedRecord, email internal.EmailItem) []internal.CaseRow {
	codes := rec.EANs
	if len(codes) == 0 {
		codes = []string{placeholderEAN}
	}

	ref := email.WebLink
	if ref == "" {
		ref = email.MessageID
	}
	comments := caseComments(rec)

	var supplier, invoice *string
	if rec.SupplierName != nil {
		supplier = util.StringPtr(util.TitleCase(*rec.SupplierName))
	}
	if rec.InvoiceNumber != nil {
		invoice = util.StringPtr(strings.ToUpper(strings.TrimSpace(*rec.InvoiceNumber)))
	}

	rows := make([]internal.CaseRow, 0, len(codes))
	for _, code := range codes {
		store := defaultStore
		if s := strings.TrimSpace(rec.Stores[code]); s != "" {
			store = strings.ToUpper(s)
		}
		rows = append(rows, internal.CaseRow{
			Store:         store,
			EAN:           util.DigitsOnly(code),
			DocumentDate:  rec.DocumentDate,
			DeliveryDate:  rec.DeliveryDate,
			OrderDate:     rec.OrderDate,
			SupplierPrice: roundedPrice(rec.SupplierPrices, code),
			InternalPrice: roundedPrice(rec.InternalPrices, code),
			SupplierName:  supplier,
			InvoiceNumber: invoice,
			Sender:        email.Sender,
			EmailRef:      ref,
			Comments:      comments,
		})
	}
	return rows
}

func roundedPrice(prices map[string]float64, code string) *float64 {
	v, ok := prices[code]
	if !ok {
		return nil
	}
	rounded, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return &rounded
}

func caseComments(rec internal.MergedRecord) string {
	parts := []string{"Sources: " + rec.Label}
	if len(rec.Conflicts) > 0 {
		parts = append(parts, "Conflicts: "+strings.Join(rec.Conflicts, "; "))
	}
	if rec.UsedSource(internal.SourceOCR) {
		parts = append(parts, "Used OCR for extraction")
	}
	return strings.Join(parts, " | ")
}
