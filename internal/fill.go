package internal

// FillMissing copies into dst every value of src that dst does not have yet.
// Identifiers are appended when new, mapping entries are added only for keys
// dst lacks, and populated scalars are never replaced.
func FillMissing(dst *ExtractedRecord, src ExtractedRecord) {
	for _, code := range src.EANs {
		dst.AddEAN(code)
	}

	fillPtr(&dst.DeliveryDate, src.DeliveryDate)
	fillPtr(&dst.OrderDate, src.OrderDate)
	fillPtr(&dst.DocumentDate, src.DocumentDate)
	fillPtr(&dst.SupplierName, src.SupplierName)
	fillPtr(&dst.InvoiceNumber, src.InvoiceNumber)

	dst.SupplierPrices = fillMap(dst.SupplierPrices, src.SupplierPrices)
	dst.InternalPrices = fillMap(dst.InternalPrices, src.InternalPrices)
	dst.Stores = fillMap(dst.Stores, src.Stores)
}

func fillPtr[T any](dst **T, value *T) {
	if *dst != nil || value == nil {
		return
	}
	v := *value
	*dst = &v
}

func fillMap[V any](dst, src map[string]V) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
	return dst
}
