package assist

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a data extraction assistant for price discrepancy emails.

Rules:
1. Extract only values that are literally present in the text.
2. Never guess, infer or complete missing values.
3. If a value is absent or ambiguous, return null for it.
4. Do not interpret intent beyond what is written.`

// BuildPrompt asks for fields as one JSON object over text.
func BuildPrompt(text string, fields []string) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from the text below.\n\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s: %s\n", f, fieldHint(f))
	}
	b.WriteString("\nText:\n")
	b.WriteString(text)
	b.WriteString("\n\nRespond with ONLY one JSON object using exactly these keys. Use null for anything not found.")
	return b.String()
}

func fieldHint(field string) string {
	switch field {
	case KeyEANs:
		return "array of 8 or 13 digit EAN barcodes as strings"
	case KeyDeliveryDate, KeyOrderDate, KeyDocumentDate:
		return "date as YYYY-MM-DD"
	case KeySupplierName:
		return "supplier company name"
	case KeyInvoiceNumber:
		return "supplier invoice or document number"
	case KeySupplierPrices:
		return "object mapping EAN to the supplier price as a number"
	case KeyInternalPrices:
		return "object mapping EAN to our own price as a number"
	case KeyStores:
		return "object mapping EAN to the store or unit label"
	}
	return "value"
}
