package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecase/internal"
	"pricecase/internal/util"
)

func record(kind internal.SourceKind, label string) internal.ExtractedRecord {
	return internal.NewRecord(kind, label)
}

func TestMergeSupplierByTrust(t *testing.T) {
	ocr := record(internal.SourceOCR, "OCR from images")
	ocr.SupplierName = util.StringPtr("A")
	att := record(internal.SourceAttachment, "Attachment: cenik.xlsx")
	att.SupplierName = util.StringPtr("B")
	body := record(internal.SourceBody, "Email body")
	body.SupplierName = util.StringPtr("C")

	// input order must not matter
	merged := Merge([]internal.ExtractedRecord{body, ocr, att})

	require.NotNil(t, merged.SupplierName)
	assert.Equal(t, "A", *merged.SupplierName)
	require.Len(t, merged.Conflicts, 2)
	assert.Contains(t, merged.Conflicts[0], "B")
	assert.Contains(t, merged.Conflicts[1], "C")
	assert.Equal(t, "supplier_name: B from Attachment: cenik.xlsx (overridden by OCR from images)", merged.Conflicts[0])
	assert.Equal(t, internal.SourceOCR, merged.Source)
	assert.Equal(t, "OCR from images, Attachment: cenik.xlsx, Email body", merged.Label)
	assert.Equal(t, []internal.SourceKind{internal.SourceOCR, internal.SourceAttachment, internal.SourceBody}, merged.Sources)
}

func TestMergeEANUnion(t *testing.T) {
	ocr := record(internal.SourceOCR, "OCR from images")
	ocr.EANs = []string{"111", "222"}
	att := record(internal.SourceAttachment, "Attachment: a.pdf")
	att.EANs = []string{"222", "333"}

	merged := Merge([]internal.ExtractedRecord{att, ocr})

	assert.Equal(t, []string{"111", "222", "333"}, merged.EANs)
	assert.Empty(t, merged.Conflicts)
}

func TestMergePriceMaps(t *testing.T) {
	ocr := record(internal.SourceOCR, "OCR from images")
	ocr.SupplierPrices = map[string]float64{"111": 10.50}
	att := record(internal.SourceAttachment, "Attachment: a.xlsx (structured)")
	att.SupplierPrices = map[string]float64{"111": 15.00, "222": 20.00}

	merged := Merge([]internal.ExtractedRecord{ocr, att})

	assert.Equal(t, map[string]float64{"111": 10.50, "222": 20.00}, merged.SupplierPrices)
	require.Len(t, merged.Conflicts, 1)
	assert.Contains(t, merged.Conflicts[0], "111")
	assert.Equal(t,
		"supplier_prices[111]: 15.00 from Attachment: a.xlsx (structured) overridden by 10.50 from OCR from images",
		merged.Conflicts[0])
}

func TestMergeEqualValuesAreNotConflicts(t *testing.T) {
	d1 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	d2 := d1.In(time.FixedZone("CET", 3600))
	att := record(internal.SourceAttachment, "Attachment: a.pdf")
	att.DeliveryDate = &d1
	att.Stores = map[string]string{"111": "LJ01"}
	body := record(internal.SourceBody, "Email body")
	body.DeliveryDate = &d2
	body.Stores = map[string]string{"111": "LJ01"}

	merged := Merge([]internal.ExtractedRecord{att, body})

	assert.Empty(t, merged.Conflicts)
	require.NotNil(t, merged.DeliveryDate)
	assert.True(t, merged.DeliveryDate.Equal(d1))
	assert.Equal(t, "LJ01", merged.Stores["111"])
}

func TestMergeDateConflictFormat(t *testing.T) {
	d1 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	att := record(internal.SourceAttachment, "Attachment: a.pdf")
	att.OrderDate = &d1
	body := record(internal.SourceBody, "Email body")
	body.OrderDate = &d2

	merged := Merge([]internal.ExtractedRecord{body, att})

	require.Len(t, merged.Conflicts, 1)
	assert.Equal(t, "order_creation_date: 2024-01-16 from Email body (overridden by Attachment: a.pdf)", merged.Conflicts[0])
}

func TestMergeEmpty(t *testing.T) {
	merged := Merge(nil)

	assert.Equal(t, internal.SourceBody, merged.Source)
	assert.Equal(t, "no data", merged.Label)
	assert.Empty(t, merged.Conflicts)
	assert.Empty(t, merged.EANs)
	assert.True(t, merged.IsEmpty())
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	att := record(internal.SourceAttachment, "Attachment: a.pdf")
	att.SupplierName = util.StringPtr("Mercator")
	att.SupplierPrices["111"] = 1

	merged := Merge([]internal.ExtractedRecord{att})
	*merged.SupplierName = "changed"
	merged.SupplierPrices["111"] = 2

	assert.Equal(t, "Mercator", *att.SupplierName)
	assert.Equal(t, 1.0, att.SupplierPrices["111"])
}

func TestRank(t *testing.T) {
	assert.Less(t, Rank(internal.SourceOCR), Rank(internal.SourceAttachment))
	assert.Less(t, Rank(internal.SourceAttachment), Rank(internal.SourceBody))
	assert.Equal(t, len(TrustOrder), Rank("OTHER"))
}
