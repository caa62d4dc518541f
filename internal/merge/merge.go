// Package merge combines the records of every extraction source of one email
// into a single record, resolving disagreements by source trust.
package merge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"pricecase/internal"
)

// TrustOrder lists source kinds from most to least trusted.
var TrustOrder = []internal.SourceKind{
	internal.SourceOCR,
	internal.SourceAttachment,
	internal.SourceBody,
}

const noDataLabel = "no data"

// Rank is the position of kind in TrustOrder. Unknown kinds rank last.
func Rank(kind internal.SourceKind) int {
	for i, k := range TrustOrder {
		if k == kind {
			return i
		}
	}
	return len(TrustOrder)
}

// Merge folds records into one. Scalars come from the most trusted record
// that has them, identifiers are the union in trust order and mapping
// entries are owned by the most trusted record that sets the key. Every
// disagreement is reported in Conflicts.
func Merge(records []internal.ExtractedRecord) internal.MergedRecord {
	if len(records) == 0 {
		return internal.MergedRecord{
			ExtractedRecord: internal.NewRecord(internal.SourceBody, noDataLabel),
		}
	}

	sorted := make([]internal.ExtractedRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Rank(sorted[i].Source) < Rank(sorted[j].Source)
	})

	labels := make([]string, 0, len(sorted))
	for _, rec := range sorted {
		labels = append(labels, rec.Label)
	}

	out := internal.MergedRecord{
		ExtractedRecord: internal.NewRecord(sorted[0].Source, strings.Join(labels, ", ")),
		Sources:         sourceKinds(sorted),
	}
	for _, rec := range sorted {
		for _, code := range rec.EANs {
			out.AddEAN(code)
		}
	}

	var conflicts []string
	out.DeliveryDate = mergeScalar(sorted, "delivery_date", &conflicts,
		func(r internal.ExtractedRecord) *time.Time { return r.DeliveryDate }, sameDate, formatDate)
	out.OrderDate = mergeScalar(sorted, "order_creation_date", &conflicts,
		func(r internal.ExtractedRecord) *time.Time { return r.OrderDate }, sameDate, formatDate)
	out.DocumentDate = mergeScalar(sorted, "document_creation_date", &conflicts,
		func(r internal.ExtractedRecord) *time.Time { return r.DocumentDate }, sameDate, formatDate)
	out.SupplierName = mergeScalar(sorted, "supplier_name", &conflicts,
		func(r internal.ExtractedRecord) *string { return r.SupplierName }, sameString, formatString)
	out.InvoiceNumber = mergeScalar(sorted, "supplier_invoice_number", &conflicts,
		func(r internal.ExtractedRecord) *string { return r.InvoiceNumber }, sameString, formatString)

	out.SupplierPrices = mergeMap(sorted, "supplier_prices", &conflicts,
		func(r internal.ExtractedRecord) map[string]float64 { return r.SupplierPrices }, formatPrice)
	out.InternalPrices = mergeMap(sorted, "internal_prices", &conflicts,
		func(r internal.ExtractedRecord) map[string]float64 { return r.InternalPrices }, formatPrice)
	out.Stores = mergeMap(sorted, "stores", &conflicts,
		func(r internal.ExtractedRecord) map[string]string { return r.Stores }, func(s string) string { return s })

	out.Conflicts = conflicts
	return out
}

func sourceKinds(sorted []internal.ExtractedRecord) []internal.SourceKind {
	var kinds []internal.SourceKind
	for _, rec := range sorted {
		if len(kinds) == 0 || kinds[len(kinds)-1] != rec.Source {
			kinds = append(kinds, rec.Source)
		}
	}
	return kinds
}

// mergeScalar walks sorted in trust order; the first non-nil value wins.
func mergeScalar[T any](
	sorted []internal.ExtractedRecord,
	field string,
	conflicts *[]string,
	get func(internal.ExtractedRecord) *T,
	same func(a, b T) bool,
	format func(T) string,
) *T {
	var winner *T
	winnerLabel := ""
	for _, rec := range sorted {
		value := get(rec)
		if value == nil {
			continue
		}
		if winner == nil {
			v := *value
			winner, winnerLabel = &v, rec.Label
			continue
		}
		if !same(*winner, *value) {
			*conflicts = append(*conflicts, fmt.Sprintf("%s: %s from %s (overridden by %s)",
				field, format(*value), rec.Label, winnerLabel))
		}
	}
	return winner
}

type owned[V any] struct {
	value V
	label string
}

// mergeMap applies records least trusted first so a more trusted record
// overwrites. Keys are visited in sorted order for stable conflict text.
func mergeMap[V comparable](
	sorted []internal.ExtractedRecord,
	field string,
	conflicts *[]string,
	get func(internal.ExtractedRecord) map[string]V,
	format func(V) string,
) map[string]V {
	merged := map[string]owned[V]{}
	for i := len(sorted) - 1; i >= 0; i-- {
		rec := sorted[i]
		values := get(rec)
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := values[k]
			if prev, ok := merged[k]; ok && prev.value != v {
				*conflicts = append(*conflicts, fmt.Sprintf("%s[%s]: %s from %s overridden by %s from %s",
					field, k, format(prev.value), prev.label, format(v), rec.Label))
			}
			merged[k] = owned[V]{value: v, label: rec.Label}
		}
	}

	out := make(map[string]V, len(merged))
	for k, o := range merged {
		out[k] = o.value
	}
	return out
}

func sameDate(a, b time.Time) bool { return a.Equal(b) }

func sameString(a, b string) bool { return a == b }

func formatDate(t time.Time) string { return t.Format("2006-01-02") }

func formatString(s string) string { return s }

func formatPrice(v float64) string { return fmt.Sprintf("%.2f", v) }
