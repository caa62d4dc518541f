package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"pricecase/internal"
	"pricecase/internal/util"
)

var (
	reDigitRun    = regexp.MustCompile(`\d+`)
	reNumberToken = regexp.MustCompile(`\d[\d.,]*\d`)
	rePriceShape  = regexp.MustCompile(`^(?:\d{1,3}(?:\.\d{3})+,\d{2}|\d+[.,]\d{2})$`)

	reSupplier = regexp.MustCompile(`(?im)(?:supplier|dobavitelj|prodajalec|vendor)(?:[ \t]*:[ \t]*|[ \t]+)([\p{L}\p{N}][\p{L}\p{N} \t&'.,/-]*?)[ \t]*$`)
	reInvoice  = regexp.MustCompile(`(?i)(?:invoice|račun|faktura|inv\.)(?:[ \t]+(?:number|num\.?|no\.?|nr\.?|št\.?|številka))?(?:[ \t]*[:#][ \t]*|[ \t]+)#?([A-Z0-9][A-Z0-9/-]*)`)
	reStore    = regexp.MustCompile(`(?i)(?:store|unit|enota|trgovina|poslovalnica)([ \t]*[:#][ \t]*|[ \t]+)([A-Z0-9][A-Z0-9-]*)`)
)

// ExtractEANs returns the valid 8 and 13 digit runs of text in order of
// first appearance.
func ExtractEANs(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, run := range reDigitRun.FindAllString(text, -1) {
		if len(run) != 8 && len(run) != 13 {
			continue
		}
		if _, ok := seen[run]; ok {
			continue
		}
		if !IsValidEAN(run) {
			continue
		}
		seen[run] = struct{}{}
		out = append(out, run)
	}
	return out
}

// ExtractPrices returns every positive two-decimal amount in text order.
// Date-shaped tokens and negative amounts are skipped.
func ExtractPrices(text string) []float64 {
	var out []float64
	for _, loc := range reNumberToken.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		if !rePriceShape.MatchString(token) {
			continue
		}
		if isNegated(text, loc[0]) {
			continue
		}
		if price, ok := util.ParsePrice(token); ok {
			out = append(out, price)
		}
	}
	return out
}

// ExtractSuppliers skips captures that start with a price word, so a
// column header line such as "Supplier Price\tStore" is not a supplier.
func ExtractSuppliers(text string) []string {
	var out []string
	for _, m := range reSupplier.FindAllStringSubmatch(normalizeNewlines(text), -1) {
		name := util.NormalizeSpaces(m[1])
		if name == "" || startsWithPriceWord(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func startsWithPriceWord(value string) bool {
	words := util.Words(strings.ToLower(value))
	if len(words) == 0 {
		return false
	}
	switch words[0] {
	case "price", "prices", "cena", "cene", "cost":
		return true
	}
	return false
}

func ExtractInvoiceNumbers(text string) []string {
	var out []string
	for _, m := range reInvoice.FindAllStringSubmatch(text, -1) {
		number := strings.Trim(m[1], "-/")
		if number != "" && util.HasDigit(number) {
			out = append(out, number)
		}
	}
	return out
}

// ExtractStores requires either an explicit separator after the label or a
// digit in the value, so prose like "unit price" is not read as a store.
func ExtractStores(text string) []string {
	var out []string
	for _, m := range reStore.FindAllStringSubmatch(text, -1) {
		sep, value := m[1], strings.Trim(m[2], "-")
		if value == "" {
			continue
		}
		if !strings.ContainsAny(sep, ":#") && !util.HasDigit(value) {
			continue
		}
		out = append(out, value)
	}
	return out
}

// ExtractDocumentFields reads only the document level scalars: the three
// dates, supplier and invoice number.
func ExtractDocumentFields(text string) internal.ExtractedRecord {
	rec := internal.ExtractedRecord{
		DeliveryDate: FindDateByKeyword(text, DeliveryKeywords...),
		OrderDate:    FindDateByKeyword(text, OrderKeywords...),
		DocumentDate: FindDateByKeyword(text, DocumentKeywords...),
	}
	if suppliers := ExtractSuppliers(text); len(suppliers) > 0 {
		rec.SupplierName = util.StringPtr(suppliers[0])
	}
	if invoices := ExtractInvoiceNumbers(text); len(invoices) > 0 {
		rec.InvoiceNumber = util.StringPtr(invoices[0])
	}
	return rec
}

// ExtractFields is the unstructured fallback. Prices are paired with
// identifiers by position and the first store label applies to every
// identifier, so associations here are heuristic.
func ExtractFields(text string, source internal.SourceKind, label string) internal.ExtractedRecord {
	rec := internal.NewRecord(source, label)
	for _, code := range ExtractEANs(text) {
		rec.AddEAN(code)
	}

	prices := ExtractPrices(text)
	for i, code := range rec.EANs {
		if i >= len(prices) {
			break
		}
		rec.SupplierPrices[code] = prices[i]
	}

	if stores := ExtractStores(text); len(stores) > 0 {
		for _, code := range rec.EANs {
			rec.Stores[code] = stores[0]
		}
	}

	internal.FillMissing(&rec, ExtractDocumentFields(text))
	return rec
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// isNegated reports whether the token at start carries a minus sign. A dash
// counts as a sign only at the start of text, after whitespace or after a
// currency marker; "10.50-12.00" is a range.
func isNegated(text string, start int) bool {
	if start == 0 || text[start-1] != '-' {
		return false
	}
	before := text[:start-1]
	if before == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(before)
	if unicode.IsSpace(r) || strings.ContainsRune("€$£", r) {
		return true
	}
	upper := strings.ToUpper(before)
	return strings.HasSuffix(upper, "EUR") || strings.HasSuffix(upper, "USD") || strings.HasSuffix(upper, "GBP")
}
