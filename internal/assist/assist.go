// Package assist asks a language model to fill fields the regular
// extractors could not find. Whatever comes back is treated as untrusted
// input and validated like any other source.
package assist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pricecase/internal"
	"pricecase/internal/extract"
	"pricecase/internal/util"
)

// GapFiller returns a loosely typed result for the requested fields. Keys
// are the field names; absent values are missing or nil.
type GapFiller interface {
	FillGaps(ctx context.Context, text string, fields []string) (map[string]any, error)
}

const (
	KeyEANs           = "ean_codes"
	KeyDeliveryDate   = "delivery_date"
	KeyOrderDate      = "order_creation_date"
	KeyDocumentDate   = "document_creation_date"
	KeySupplierName   = "supplier_name"
	KeyInvoiceNumber  = "supplier_invoice_number"
	KeySupplierPrices = "supplier_prices"
	KeyInternalPrices = "internal_prices"
	KeyStores         = "stores"
)

// Fields is the full set requested from a gap filler.
var Fields = []string{
	KeyEANs, KeyDeliveryDate, KeyOrderDate, KeyDocumentDate,
	KeySupplierName, KeyInvoiceNumber, KeySupplierPrices, KeyInternalPrices, KeyStores,
}

// Fill runs filler over text and converts the answer into a record.
func Fill(ctx context.Context, filler GapFiller, text string, source internal.SourceKind, label string) (internal.ExtractedRecord, error) {
	result, err := filler.FillGaps(ctx, text, Fields)
	if err != nil {
		return internal.ExtractedRecord{}, fmt.Errorf("fill gaps: %w", err)
	}
	return ToRecord(result, source, label), nil
}

// ToRecord keeps only values that pass the same checks as extracted text:
// identifiers must validate, prices must be positive and dates must parse.
// Mapping entries are kept only for identifiers that survived validation.
func ToRecord(result map[string]any, source internal.SourceKind, label string) internal.ExtractedRecord {
	rec := internal.NewRecord(source, label)

	for _, raw := range asList(result[KeyEANs]) {
		if code := util.DigitsOnly(asString(raw)); extract.IsValidEAN(code) {
			rec.AddEAN(code)
		}
	}

	rec.DeliveryDate = asDate(result[KeyDeliveryDate])
	rec.OrderDate = asDate(result[KeyOrderDate])
	rec.DocumentDate = asDate(result[KeyDocumentDate])
	rec.SupplierName = asText(result[KeySupplierName])
	rec.InvoiceNumber = asText(result[KeyInvoiceNumber])

	for key, raw := range asMap(result[KeySupplierPrices]) {
		if code := util.DigitsOnly(key); rec.HasEAN(code) {
			if price, ok := util.ParsePrice(asString(raw)); ok {
				rec.SupplierPrices[code] = price
			}
		}
	}
	for key, raw := range asMap(result[KeyInternalPrices]) {
		if code := util.DigitsOnly(key); rec.HasEAN(code) {
			if price, ok := util.ParsePrice(asString(raw)); ok {
				rec.InternalPrices[code] = price
			}
		}
	}
	for key, raw := range asMap(result[KeyStores]) {
		if code := util.DigitsOnly(key); rec.HasEAN(code) {
			if store := util.NormalizeSpaces(asString(raw)); store != "" {
				rec.Stores[code] = store
			}
		}
	}
	return rec
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case string, float64:
		return []any{t}
	}
	return nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asString renders JSON scalars. Numbers keep every digit so long
// identifiers decoded as float64 survive.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	}
	return ""
}

func asText(v any) *string {
	s := util.NormalizeSpaces(asString(v))
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return util.StringPtr(s)
}

func asDate(v any) *time.Time {
	s := strings.TrimSpace(asString(v))
	if s == "" {
		return nil
	}
	return extract.ParseDate(s)
}
